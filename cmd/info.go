/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	rs485 "github.com/allbin/go-rs485"
	"github.com/allbin/go-rs485/internal/uart8250"
)

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info <port>",
	Short: "Display the hardware resources of a UART",
	Long: `Display the I/O base, interrupt line and UART type the kernel assigned
to a legacy serial port, along with the register map the adapter would use.

Examples:
  rs485 info ttyS0
  rs485 info /dev/ttyS1`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		info, err := rs485.ResolvePort(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting port info: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Port Information: %s\n\n", info.Path)
		fmt.Printf("  Name:        %s\n", info.Name)
		fmt.Printf("  Description: %s\n", info.Description)
		fmt.Printf("  I/O Base:    0x%03X\n", info.PortAddress)
		fmt.Printf("  IRQ:         %d\n", info.IRQ)

		regs := uart8250.NewRegisterMap(info.PortAddress)
		fmt.Println("\nRegister Map:")
		fmt.Printf("  RBR/THR/DLL: 0x%03X\n", regs.RBR)
		fmt.Printf("  IER/DLM:     0x%03X\n", regs.IER)
		fmt.Printf("  IIR:         0x%03X\n", regs.IIR)
		fmt.Printf("  LCR:         0x%03X\n", regs.LCR)
		fmt.Printf("  MCR:         0x%03X\n", regs.MCR)
		fmt.Printf("  LSR:         0x%03X\n", regs.LSR)
		fmt.Printf("  MSR:         0x%03X\n", regs.MSR)

		fmt.Println("\nSupported Baud Rates:")
		for _, rate := range uart8250.SupportedBaudRates() {
			divisor, _ := uart8250.Divisor(rate)
			fmt.Printf("  %6d  divisor 0x%02X\n", rate, divisor)
		}
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
