package components

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	rs485 "github.com/allbin/go-rs485"
	"github.com/allbin/go-rs485/internal/tui/colors"
)

// StatsMsg carries a fresh counter snapshot from the adapter
type StatsMsg struct {
	Stats     rs485.Stats
	Timestamp time.Time
}

type ConnectionInfo struct {
	PortAddress  uint16
	IRQ          int
	BaudRate     int
	BufferSize   int
	Received     int
	Transmitting bool
	Dropped      uint64
	LineErrors   uint64
}

// NewConnectionInfo describes an adapter configuration
func NewConnectionInfo(config rs485.Config) *ConnectionInfo {
	return &ConnectionInfo{
		PortAddress: config.PortAddress,
		IRQ:         config.IRQLine,
		BaudRate:    config.BaudRate,
		BufferSize:  config.BufferSize,
	}
}

type StatusBar struct {
	title          string
	portName       string
	status         string
	err            error
	width          int
	connectionInfo *ConnectionInfo
}

func NewStatusBar(title, portName string) *StatusBar {
	return &StatusBar{
		title:    title,
		portName: portName,
		status:   "Initializing...",
	}
}

func (sb *StatusBar) SetWidth(width int) {
	sb.width = width
}

func (sb *StatusBar) SetConnectionInfo(info *ConnectionInfo) {
	sb.connectionInfo = info
}

// UpdateStats refreshes the live part of the connection info
func (sb *StatusBar) UpdateStats(stats rs485.Stats) {
	if sb.connectionInfo == nil {
		return
	}
	sb.connectionInfo.Received = stats.Received
	sb.connectionInfo.Transmitting = stats.Transmitting
	sb.connectionInfo.Dropped = stats.DroppedBytes
	sb.connectionInfo.LineErrors = stats.ReceiveErrors
}

func (sb *StatusBar) SetConnecting() {
	sb.status = "Connecting..."
	sb.err = nil
}

func (sb *StatusBar) SetConnected() {
	sb.status = "Connected - listening for data..."
	sb.err = nil
}

func (sb *StatusBar) SetDisconnected(err error) {
	if err != nil {
		sb.status = fmt.Sprintf("Connection failed: %v", err)
		sb.err = err
	} else {
		sb.status = "Disconnected"
		sb.err = nil
	}
}

// Status returns the current status text and error
func (sb *StatusBar) Status() (string, error) {
	return sb.status, sb.err
}

func (sb *StatusBar) describe() string {
	info := sb.connectionInfo
	if info == nil {
		return "⚡ rs485"
	}

	direction := "RX"
	if info.Transmitting {
		direction = "TX"
	}

	s := fmt.Sprintf("⚡ 0x%03X irq%d %d 8N1 %s %d/%d",
		info.PortAddress, info.IRQ, info.BaudRate, direction, info.Received, info.BufferSize)
	if info.Dropped > 0 {
		s += fmt.Sprintf(" drop:%d", info.Dropped)
	}
	if info.LineErrors > 0 {
		s += fmt.Sprintf(" err:%d", info.LineErrors)
	}
	return s
}

// ComprehensiveStatusBar renders a comprehensive status bar with all connection info
func (sb *StatusBar) ComprehensiveStatusBar(inputMode, sendingMode string, connected bool, timestamp string) string {
	terminalWidth := sb.width
	if terminalWidth <= 0 {
		terminalWidth = 80
	}

	// Mode indicator (like NORMAL in nvim)
	modeStyle := lipgloss.NewStyle().
		Foreground(colors.Base).
		Background(colors.Blue).
		Bold(true).
		Padding(0, 1)
	modeText := inputMode
	switch inputMode {
	case "INSERT":
		modeStyle = modeStyle.Background(colors.Green)
	case "":
		modeText = sb.title
		modeStyle = modeStyle.Background(colors.Mauve)
	}
	mode := modeStyle.Render(modeText)

	port := lipgloss.NewStyle().
		Foreground(colors.Mauve).
		Bold(true).
		Padding(0, 1).
		Render(sb.portName)

	var connStyle lipgloss.Style
	var connIndicator string
	switch {
	case sb.err != nil:
		connStyle = lipgloss.NewStyle().Foreground(colors.Red)
		connIndicator = "✗"
	case connected:
		connStyle = lipgloss.NewStyle().Foreground(colors.Green)
		connIndicator = "●"
	case sb.status == "Connecting...":
		connStyle = lipgloss.NewStyle().Foreground(colors.Yellow)
		connIndicator = "○"
	default:
		connStyle = lipgloss.NewStyle().Foreground(colors.Red)
		connIndicator = "○"
	}
	connectionIndicator := connStyle.Render(connIndicator)

	connectionDetails := lipgloss.NewStyle().
		Foreground(colors.Subtext0).
		Padding(0, 1).
		Render(sb.describe())

	clock := lipgloss.NewStyle().
		Foreground(colors.Subtext1).
		Padding(0, 1).
		Render(timestamp)

	divider := lipgloss.NewStyle().
		Foreground(colors.Surface2).
		Padding(0, 1).
		Render("│")

	left := []string{mode, port, connectionIndicator}
	if inputMode == "INSERT" {
		left = append(left, lipgloss.NewStyle().
			Foreground(colors.Peach).
			Bold(true).
			Padding(0, 1).
			Render(fmt.Sprintf("[%s] Tab to toggle", sendingMode)))
	}
	left = append(left, divider)

	leftSide := lipgloss.JoinHorizontal(lipgloss.Left, left...)
	rightSide := lipgloss.JoinHorizontal(lipgloss.Left, connectionDetails, divider, clock)

	spacerWidth := terminalWidth - lipgloss.Width(leftSide) - lipgloss.Width(rightSide)
	if spacerWidth < 1 {
		spacerWidth = 1
	}
	spacer := lipgloss.NewStyle().Width(spacerWidth).Render("")

	statusBarStyle := lipgloss.NewStyle().
		Foreground(colors.Text).
		Background(colors.Surface0).
		Width(terminalWidth)

	return statusBarStyle.Render(lipgloss.JoinHorizontal(lipgloss.Left, leftSide, spacer, rightSide))
}
