/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/allbin/go-rs485/internal/tui/components"
	"github.com/allbin/go-rs485/internal/tui/keys"
	"github.com/allbin/go-rs485/internal/tui/models"
	"github.com/allbin/go-rs485/internal/tui/styles"
)

// listenCmd represents the listen command
var listenCmd = &cobra.Command{
	Use:   "listen [port]",
	Short: "Watch line traffic with a real-time display",
	Long: `Watch what the adapter hears on the RS-485 line in a terminal UI.

The receive buffer is drained every --interval and each chunk is shown with a
timestamp. The status bar tracks buffer fill, dropped bytes and line errors.
Features include:
- ASCII and hex display modes
- Toggleable timestamps and RX/TX indicators
- Scrollback with vim-style navigation

Example usage:
  rs485 listen ttyS1
  rs485 listen ttyS1 --baud 9600
  rs485 listen --sim --raw`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		noTimestamps, _ := cmd.Flags().GetBool("no-timestamps")
		showIndicators, _ := cmd.Flags().GetBool("show-indicators")
		rawMode, _ := cmd.Flags().GetBool("raw")
		interval, _ := cmd.Flags().GetDuration("interval")

		if rawMode {
			noTimestamps, showIndicators = true, false
		}

		if err := runListenTUI(portArg(args, 0), interval, noTimestamps, !showIndicators); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(listenCmd)

	listenCmd.Flags().Bool("no-timestamps", false, "Hide timestamps from output")
	listenCmd.Flags().Bool("show-indicators", false, "Show RX/TX indicators (off by default)")
	listenCmd.Flags().Bool("raw", false, "Raw output mode: no timestamps, no indicators")
	listenCmd.Flags().DurationP("interval", "i", 20*time.Millisecond, "Receive buffer polling period")
}

// listenModel represents the Bubble Tea model for the listen command
type listenModel struct {
	*models.AdapterModel
	terminal  *components.Terminal
	statusBar *components.StatusBar
	help      help.Model
	keys      keys.TerminalKeys
}

// startAdapter opens the adapter off the UI goroutine and starts polling it
func startAdapter(p *tea.Program, m *models.AdapterModel, interval time.Duration) {
	dev, err := openDevice(m.GetPortName())
	if err != nil {
		p.Send(models.ConnectionStatusMsg{Connected: false, Error: err})
		return
	}

	m.SetDevice(dev)
	p.Send(models.ConnectionStatusMsg{Connected: true})

	m.Poll(dev, interval, p.Send)
}

func portLabel(portName string) string {
	if portName == "" {
		return "rs485"
	}
	return portName
}

func runListenTUI(portName string, interval time.Duration, noTimestamps, noIndicators bool) error {
	if _, err := resolveConfig(); err != nil {
		return err
	}

	terminal := components.NewTerminal(80, 20)
	terminal.SetFormatOptions(noTimestamps, noIndicators)

	m := listenModel{
		AdapterModel: models.NewAdapterModel(portName),
		terminal:     terminal,
		statusBar:    components.NewStatusBar("LISTEN", portLabel(portName)),
		help:         help.New(),
		keys:         keys.NewTerminalKeys(),
	}
	m.statusBar.SetConnecting()

	p := tea.NewProgram(&m, tea.WithAltScreen(), tea.WithMouseCellMotion())

	go startAdapter(p, m.AdapterModel, interval)

	_, err := p.Run()

	m.Cleanup()
	return err
}

func (m *listenModel) Init() tea.Cmd {
	return tickClock()
}

type clockMsg time.Time

// tickClock redraws the status bar clock once a second
func tickClock() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return clockMsg(t)
	})
}

// handleAdapterMsg applies messages common to both adapter TUIs
func handleAdapterMsg(m *models.AdapterModel, terminal *components.Terminal, statusBar *components.StatusBar, msg tea.Msg) {
	switch msg := msg.(type) {
	case models.ConnectionStatusMsg:
		m.SetConnected(msg.Connected)
		if msg.Error != nil {
			m.SetError(msg.Error)
			statusBar.SetDisconnected(msg.Error)
			return
		}
		if dev := m.GetDevice(); dev != nil {
			statusBar.SetConnectionInfo(components.NewConnectionInfo(dev.Config()))
		}
		statusBar.SetConnected()

	case components.StatsMsg:
		statusBar.UpdateStats(msg.Stats)

	case components.DataReceivedMsg:
		if m.IsReady() {
			m.AddRawData(msg)
			terminal.AddMessage(msg)
		}
	}
}

// handleScrollKeys applies the display keys shared by both adapter TUIs
func handleScrollKeys(m *models.AdapterModel, terminal *components.Terminal, k keys.TerminalKeys, msg tea.KeyMsg) {
	switch {
	case key.Matches(msg, k.Clear):
		m.ClearData()
		terminal.Clear()
	case key.Matches(msg, k.ToggleHex):
		terminal.ToggleHex()
		terminal.RefreshDisplayWithRawData(m.GetRawData())
	case key.Matches(msg, k.ToggleASCII):
		terminal.ToggleASCII()
		terminal.RefreshDisplayWithRawData(m.GetRawData())
	case key.Matches(msg, k.ToggleTimestamps):
		terminal.ToggleTimestamps()
		terminal.RefreshDisplayWithRawData(m.GetRawData())
	case key.Matches(msg, k.ToggleIndicators):
		terminal.ToggleIndicators()
		terminal.RefreshDisplayWithRawData(m.GetRawData())
	case key.Matches(msg, k.Up):
		terminal.ScrollUp()
	case key.Matches(msg, k.Down):
		terminal.ScrollDown()
	case key.Matches(msg, k.GotoTop):
		terminal.GotoTop()
	case key.Matches(msg, k.GotoBottom):
		terminal.GotoBottom()
	}
}

func (m *listenModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		statusBarHeight := 1
		helpHeight := lipgloss.Height(m.help.View(m.keys))
		m.terminal.SetSize(msg.Width, msg.Height-statusBarHeight-helpHeight-1)
		m.statusBar.SetWidth(msg.Width)
		m.help.Width = msg.Width
		m.SetReady(true)

		_, cmd := m.terminal.Update(msg)
		cmds = append(cmds, cmd)

	case clockMsg:
		cmds = append(cmds, tickClock())

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.Cleanup()
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		default:
			handleScrollKeys(m.AdapterModel, m.terminal, m.keys, msg)
		}

	default:
		handleAdapterMsg(m.AdapterModel, m.terminal, m.statusBar, msg)
	}

	return m, tea.Batch(cmds...)
}

func (m *listenModel) View() string {
	content := "Initializing..."
	if m.IsReady() {
		content = m.terminal.View()
	}
	if err := m.GetError(); err != nil && len(m.GetRawData()) == 0 {
		content = styles.ErrorStyle.Render(err.Error())
	}

	statusBar := m.statusBar.ComprehensiveStatusBar("", "", m.IsConnected(), time.Now().Format("15:04:05"))

	return lipgloss.JoinVertical(
		lipgloss.Left,
		styles.ContentBorderStyle.Render(content),
		m.help.View(m.keys),
		statusBar,
	)
}
