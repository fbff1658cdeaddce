package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/allbin/go-rs485/internal/tui/colors"
)

// TxStatus tracks a burst from submission to turnaround
type TxStatus string

const (
	TxPending      TxStatus = "PENDING"
	TxTransmitting TxStatus = "TRANSMITTING"
	TxReleased     TxStatus = "RELEASED" // last bit sent, RTS dropped
	TxError        TxStatus = "ERROR"
)

type DataReceivedMsg struct {
	Timestamp time.Time
	Data      []byte
	IsTX      bool
	Status    TxStatus // empty for RX
	Notice    bool     // adapter event rather than line data
}

type DisplayMode struct {
	ShowHex        bool
	ShowASCII      bool
	ShowTimestamps bool
	ShowIndicators bool
}

type DataFormatter struct {
	mode DisplayMode
}

func NewDataFormatter(showHex, showASCII bool) *DataFormatter {
	return &DataFormatter{
		mode: DisplayMode{
			ShowHex:        showHex,
			ShowASCII:      showASCII,
			ShowTimestamps: true,
			ShowIndicators: true,
		},
	}
}

// SetFormatOptions hides the timestamp and direction columns
func (df *DataFormatter) SetFormatOptions(noTimestamps, noIndicators bool) {
	df.mode.ShowTimestamps = !noTimestamps
	df.mode.ShowIndicators = !noIndicators
}

func (df *DataFormatter) GetDisplayMode() DisplayMode {
	return df.mode
}

func (df *DataFormatter) indicator(msg DataReceivedMsg) string {
	if msg.Notice {
		return lipgloss.NewStyle().
			Foreground(colors.Maroon).
			Bold(true).
			Render("! --")
	}

	if !msg.IsTX {
		return lipgloss.NewStyle().
			Foreground(colors.Sky).
			Bold(true).
			Render("↙ RX")
	}

	var txColor lipgloss.Color
	var statusText string

	switch msg.Status {
	case TxPending:
		txColor = colors.Yellow
		statusText = "TX ○"
	case TxTransmitting:
		txColor = colors.Blue
		statusText = "TX ⏸"
	case TxReleased:
		txColor = colors.Green
		statusText = "TX ✓"
	case TxError:
		txColor = colors.Red
		statusText = "TX ✗"
	default:
		txColor = colors.Peach
		statusText = "TX"
	}

	return lipgloss.NewStyle().
		Foreground(txColor).
		Bold(true).
		Render("↗ " + statusText)
}

func (df *DataFormatter) FormatMessage(msg DataReceivedMsg) string {
	var parts []string

	if msg.Notice {
		parts = append(parts, string(msg.Data))
	} else {
		if df.mode.ShowHex {
			parts = append(parts, fmt.Sprintf("HEX: % X", msg.Data))
		}
		if df.mode.ShowASCII {
			parts = append(parts, "ASCII: "+printable(msg.Data))
		}
		if !df.mode.ShowHex && !df.mode.ShowASCII {
			parts = append(parts, fmt.Sprintf("BYTES: %d", len(msg.Data)))
		}
	}

	line := strings.Join(parts, "  ")
	if df.mode.ShowIndicators {
		line = df.indicator(msg) + ": " + line
	}
	if df.mode.ShowTimestamps {
		timestamp := lipgloss.NewStyle().
			Foreground(colors.Subtext0).
			Render(fmt.Sprintf("[%s]", msg.Timestamp.Format("15:04:05.000")))
		line = timestamp + " " + line
	}
	return line
}

// printable replaces bytes outside printable ASCII with dots so no control
// sequence reaches the terminal
func printable(data []byte) string {
	var b strings.Builder
	b.Grow(len(data))
	for _, c := range data {
		if c >= 32 && c <= 126 {
			b.WriteByte(c)
		} else {
			b.WriteByte('.')
		}
	}
	return b.String()
}

func (df *DataFormatter) FormatMessages(messages []DataReceivedMsg) []string {
	formatted := make([]string, len(messages))
	for i, msg := range messages {
		formatted[i] = df.FormatMessage(msg)
	}
	return formatted
}

func (df *DataFormatter) ToggleHex() {
	df.mode.ShowHex = !df.mode.ShowHex
}

func (df *DataFormatter) ToggleASCII() {
	df.mode.ShowASCII = !df.mode.ShowASCII
}

func (df *DataFormatter) ToggleTimestamps() {
	df.mode.ShowTimestamps = !df.mode.ShowTimestamps
}

func (df *DataFormatter) ToggleIndicators() {
	df.mode.ShowIndicators = !df.mode.ShowIndicators
}
