/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	rs485 "github.com/allbin/go-rs485"
	"github.com/allbin/go-rs485/internal/tui/components"
	"github.com/allbin/go-rs485/internal/tui/keys"
	"github.com/allbin/go-rs485/internal/tui/models"
	"github.com/allbin/go-rs485/internal/tui/styles"
)

// connectCmd represents the connect command
var connectCmd = &cobra.Command{
	Use:   "connect [port]",
	Short: "Interactive request/reply session on the RS-485 line",
	Long: `Open the adapter in a terminal UI that both sends and listens.

Each line entered in insert mode goes out as one burst. The TX entry moves
from pending to transmitting to released once the adapter has dropped RTS,
and anything the remote node answers shows up as RX below it.
Features include:
- Hex (default) and ASCII input, Tab to toggle
- Input history with the arrow keys
- Live buffer fill, dropped bytes and line errors in the status bar

Example usage:
  rs485 connect ttyS1
  rs485 connect ttyS1 --baud 9600 --send-timeout 2s
  rs485 connect --sim`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		interval, _ := cmd.Flags().GetDuration("interval")
		sendTimeout, _ := cmd.Flags().GetDuration("send-timeout")

		if err := runConnectTUI(portArg(args, 0), interval, sendTimeout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(connectCmd)

	connectCmd.Flags().DurationP("interval", "i", 20*time.Millisecond, "Receive buffer polling period")
	connectCmd.Flags().DurationP("send-timeout", "t", 5*time.Second, "Give up on a burst if turnaround has not happened by then")
}

// connectModel represents the Bubble Tea model for the connect command
type connectModel struct {
	*models.AdapterModel
	terminal    *components.Terminal
	statusBar   *components.StatusBar
	input       *components.Input
	help        help.Model
	keys        keys.ConnectKeys
	sendTimeout time.Duration
}

func runConnectTUI(portName string, interval, sendTimeout time.Duration) error {
	if _, err := resolveConfig(); err != nil {
		return err
	}

	m := connectModel{
		AdapterModel: models.NewAdapterModel(portName),
		terminal:     components.NewTerminal(0, 0), // sized by WindowSizeMsg
		statusBar:    components.NewStatusBar("CONNECT", portLabel(portName)),
		input:        components.NewInput(),
		help:         help.New(),
		keys:         keys.NewConnectKeys(),
		sendTimeout:  sendTimeout,
	}
	m.statusBar.SetConnecting()

	p := tea.NewProgram(&m, tea.WithAltScreen(), tea.WithMouseCellMotion())

	go startAdapter(p, m.AdapterModel, interval)

	_, err := p.Run()

	m.Cleanup()
	return err
}

func (m *connectModel) Init() tea.Cmd {
	return tickClock()
}

// txStatusMsg reports progress of a burst started from the input line
type txStatusMsg struct {
	data   []byte
	status components.TxStatus
	err    error
}

// transmit runs one Write off the UI goroutine. The first message fires as
// soon as the burst is handed to the adapter, the second at turnaround.
func (m *connectModel) transmit(dev rs485.Device, data []byte) tea.Cmd {
	started := make(chan struct{})
	result := make(chan error, 1)

	go func() {
		ctx, cancel := context.WithTimeout(m.GetContext(), m.sendTimeout)
		defer cancel()

		close(started)
		_, err := dev.WriteContext(ctx, data)
		result <- err
	}()

	return tea.Sequence(
		func() tea.Msg {
			<-started
			return txStatusMsg{data: data, status: components.TxTransmitting}
		},
		func() tea.Msg {
			if err := <-result; err != nil {
				return txStatusMsg{data: data, status: components.TxError, err: err}
			}
			return txStatusMsg{data: data, status: components.TxReleased}
		},
	)
}

func (m *connectModel) submit() tea.Cmd {
	dev := m.GetDevice()
	value := m.input.Value()
	if value == "" || dev == nil {
		return nil
	}

	data, err := m.input.Payload()
	if err != nil {
		m.notice(fmt.Sprintf("Invalid hex input: %v", err))
		return nil
	}

	txData := components.DataReceivedMsg{
		Timestamp: time.Now(),
		Data:      data,
		IsTX:      true,
		Status:    components.TxPending,
	}
	m.AddRawData(txData)
	m.terminal.AddMessage(txData)

	m.input.AddToHistory(value)
	m.input.SetValue("")

	return m.transmit(dev, data)
}

func (m *connectModel) notice(text string) {
	msg := components.DataReceivedMsg{
		Timestamp: time.Now(),
		Data:      []byte(text),
		Notice:    true,
	}
	m.AddRawData(msg)
	m.terminal.AddMessage(msg)
}

func (m *connectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		inputHeight := 3 // includes border
		statusBarHeight := 1
		m.terminal.SetSize(msg.Width, msg.Height-inputHeight-statusBarHeight-1)
		m.input.SetWidth(msg.Width)
		m.statusBar.SetWidth(msg.Width)
		m.help.Width = msg.Width
		m.SetReady(true)

		_, cmd := m.terminal.Update(msg)
		cmds = append(cmds, cmd)

	case clockMsg:
		cmds = append(cmds, tickClock())

	case txStatusMsg:
		m.UpdateTxStatus(msg.data, msg.status)
		m.terminal.RefreshDisplayWithRawData(m.GetRawData())
		if msg.err != nil {
			m.notice(fmt.Sprintf("Write failed: %v", msg.err))
		}

	case models.ConnectionStatusMsg:
		handleAdapterMsg(m.AdapterModel, m.terminal, m.statusBar, msg)
		if msg.Connected {
			m.SetInputMode(models.InputModeInsert)
			m.input.Focus()
		}

	case tea.KeyMsg:
		if m.IsInInsertMode() {
			switch {
			case key.Matches(msg, m.keys.Escape):
				m.SetInputMode(models.InputModeNormal)
				m.input.Blur()
			case key.Matches(msg, m.keys.Enter):
				cmds = append(cmds, m.submit())
			case key.Matches(msg, m.keys.HistoryUp):
				m.input.NavigateHistoryUp()
			case key.Matches(msg, m.keys.HistoryDown):
				m.input.NavigateHistoryDown()
			case key.Matches(msg, m.keys.ToggleSendMode):
				m.input.ToggleSendingMode()
			default:
				var cmd tea.Cmd
				m.input, cmd = m.input.Update(msg)
				cmds = append(cmds, cmd)
			}
			return m, tea.Batch(cmds...)
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			m.Cleanup()
			return m, tea.Quit
		case key.Matches(msg, m.keys.InsertMode):
			m.SetInputMode(models.InputModeInsert)
			m.input.Focus()
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		case key.Matches(msg, m.keys.ToggleSendMode):
			m.input.ToggleSendingMode()
		default:
			handleScrollKeys(m.AdapterModel, m.terminal, m.keys.TerminalKeys, msg)
		}

	default:
		handleAdapterMsg(m.AdapterModel, m.terminal, m.statusBar, msg)
	}

	if m.IsInInsertMode() {
		if _, isKey := msg.(tea.KeyMsg); !isKey {
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	return m, tea.Batch(cmds...)
}

func (m *connectModel) View() string {
	content := "Initializing..."
	if m.IsReady() {
		content = m.terminal.View()
	}
	if err := m.GetError(); err != nil && len(m.GetRawData()) == 0 {
		content = styles.ErrorStyle.Render(err.Error())
	}

	parts := []string{
		styles.ContentBorderStyle.Render(content),
		m.input.ViewWithMode(m.IsInInsertMode()),
	}
	if m.help.ShowAll {
		parts = append(parts, m.help.View(m.keys))
	}
	parts = append(parts, m.statusBar.ComprehensiveStatusBar(
		m.GetInputMode().String(),
		m.input.GetSendingMode().String(),
		m.IsConnected(),
		time.Now().Format("15:04:05"),
	))

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
