/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/evertras/bubble-table/table"
	"github.com/spf13/cobra"

	rs485 "github.com/allbin/go-rs485"
)

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats [port]",
	Short: "Show adapter diagnostic counters",
	Long: `Open the adapter, let it run for a while and print its counters.

Counters cover interrupt passes, receive line errors, modem status changes,
bytes dropped on a full receive buffer, spurious transmit-empty interrupts
and turnarounds where the shift register never reported empty.

Example usage:
  rs485 stats ttyS1 --listen 5s`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		listen, _ := cmd.Flags().GetDuration("listen")

		dev, err := openDevice(portArg(args, 0))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening adapter: %v\n", err)
			os.Exit(1)
		}
		defer dev.Close()

		time.Sleep(listen)

		stats, err := dev.Stats()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading stats: %v\n", err)
			os.Exit(1)
		}

		fmt.Println(renderStats(stats))
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().DurationP("listen", "l", time.Second, "How long to run before sampling the counters")
}

const (
	columnKeyCounter = "counter"
	columnKeyValue   = "value"
)

func renderStats(stats rs485.Stats) string {
	columns := []table.Column{
		table.NewColumn(columnKeyCounter, "Counter", 24),
		table.NewColumn(columnKeyValue, "Value", 20),
	}

	lastActivity := "never"
	if !stats.LastActivity.IsZero() {
		lastActivity = time.Since(stats.LastActivity).Round(time.Millisecond).String() + " ago"
	}

	entries := []struct {
		name  string
		value any
	}{
		{"Interrupts", stats.Interrupts},
		{"Receive errors", stats.ReceiveErrors},
		{"Modem status changes", stats.ModemStatusChanges},
		{"Dropped bytes", stats.DroppedBytes},
		{"Spurious THRE", stats.SpuriousTransmitEmpty},
		{"Drain timeouts", stats.DrainTimeouts},
		{"Received", fmt.Sprintf("%d / %d", stats.Received, stats.BufferSize)},
		{"Transmitting", stats.Transmitting},
		{"Last activity", lastActivity},
	}

	rows := make([]table.Row, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, table.NewRow(table.RowData{
			columnKeyCounter: e.name,
			columnKeyValue:   e.value,
		}))
	}

	return table.New(columns).
		WithRows(rows).
		BorderRounded().
		HeaderStyle(lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))).
		View()
}
