/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// signalsCmd represents the signals command
var signalsCmd = &cobra.Command{
	Use:   "signals [port]",
	Short: "Display current modem signal states",
	Long: `Display the current state of the UART's modem control lines.

RTS is owned by the adapter: it is high only while a burst is on the wire.
OUT2 gates the UART's interrupt onto the bus and stays high while the
adapter is open.

Examples:
  rs485 signals ttyS1
  rs485 signals --port-address 0x3F8

Signal meanings:
  CTS  - Clear To Send (input)
  DSR  - Data Set Ready (input)
  RI   - Ring Indicator (input)
  DCD  - Data Carrier Detect (input)
  RTS  - Request To Send (output, transceiver direction)
  DTR  - Data Terminal Ready (output)
  OUT2 - Interrupt enable (output)`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		portName := portArg(args, 0)

		dev, err := openDevice(portName)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening adapter: %v\n", err)
			os.Exit(1)
		}
		defer dev.Close()

		signals, err := dev.ModemSignals()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading modem signals: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Modem Signals at 0x%03X:\n\n", dev.Config().PortAddress)
		fmt.Printf("  CTS  (Clear To Send):       %s\n", formatSignalState(signals.CTS))
		fmt.Printf("  DSR  (Data Set Ready):      %s\n", formatSignalState(signals.DSR))
		fmt.Printf("  RI   (Ring Indicator):      %s\n", formatSignalState(signals.RI))
		fmt.Printf("  DCD  (Data Carrier Detect): %s\n", formatSignalState(signals.DCD))
		fmt.Printf("  RTS  (Request To Send):     %s\n", formatSignalState(signals.RTS))
		fmt.Printf("  DTR  (Data Terminal Ready): %s\n", formatSignalState(signals.DTR))
		fmt.Printf("  OUT2 (Interrupt Enable):    %s\n", formatSignalState(signals.OUT2))
	},
}

func formatSignalState(state bool) string {
	if state {
		return "HIGH"
	}
	return "LOW"
}

func init() {
	rootCmd.AddCommand(signalsCmd)
}
