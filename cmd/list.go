/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/evertras/bubble-table/table"
	"github.com/spf13/cobra"

	rs485 "github.com/allbin/go-rs485"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List legacy UARTs with I/O resources",
	Long: `List the ttyS ports the kernel has assigned an I/O base to.

Placeholder ttyS entries without hardware are skipped, as are USB and
platform serial devices: only port-mapped 8250-family UARTs can carry the
adapter.

Example usage:
  rs485 list
  rs485 list --table
  rs485 list --filter 16550`,
	Run: func(cmd *cobra.Command, args []string) {
		ports, err := rs485.ListUARTs()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing ports: %v\n", err)
			os.Exit(1)
		}

		filterType, _ := cmd.Flags().GetString("filter")
		tableFormat, _ := cmd.Flags().GetBool("table")

		filteredPorts := filterPorts(ports, filterType)

		if len(filteredPorts) == 0 {
			if filterType != "" {
				fmt.Printf("No UARTs found matching filter: %s\n", filterType)
			} else {
				fmt.Println("No UARTs found")
			}
			return
		}

		if tableFormat {
			renderTable(filteredPorts)
		} else {
			renderSimple(filteredPorts)
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringP("filter", "f", "", "Filter by UART type, e.g. 8250, 16550")
	listCmd.Flags().BoolP("table", "t", false, "Display output in a styled table format")
}

// filterPorts keeps the ports whose UART description contains filterType
func filterPorts(ports []rs485.PortInfo, filterType string) []rs485.PortInfo {
	if filterType == "" || filterType == "all" {
		return ports
	}

	var filtered []rs485.PortInfo
	for _, port := range ports {
		if strings.Contains(strings.ToLower(port.Description), strings.ToLower(filterType)) {
			filtered = append(filtered, port)
		}
	}
	return filtered
}

const (
	columnKeyPort = "port"
	columnKeyBase = "base"
	columnKeyIRQ  = "irq"
	columnKeyType = "type"
)

// renderTable renders the port list in a styled static table
func renderTable(ports []rs485.PortInfo) {
	fmt.Printf("Found %d UART(s):\n\n", len(ports))

	columns := []table.Column{
		table.NewColumn(columnKeyPort, "Port", 12),
		table.NewColumn(columnKeyBase, "I/O Base", 10),
		table.NewColumn(columnKeyIRQ, "IRQ", 5),
		table.NewColumn(columnKeyType, "UART", 14),
	}

	rows := make([]table.Row, 0, len(ports))
	for _, port := range ports {
		rows = append(rows, table.NewRow(table.RowData{
			columnKeyPort: port.Name,
			columnKeyBase: fmt.Sprintf("0x%03X", port.PortAddress),
			columnKeyIRQ:  port.IRQ,
			columnKeyType: port.Description,
		}))
	}

	t := table.New(columns).
		WithRows(rows).
		BorderRounded().
		HeaderStyle(lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99")))

	fmt.Println(t.View())
}

// renderSimple renders the port list in simple text format
func renderSimple(ports []rs485.PortInfo) {
	for _, port := range ports {
		fmt.Printf("%s\t0x%03X\tIRQ %d\n", port.Name, port.PortAddress, port.IRQ)
	}
}
