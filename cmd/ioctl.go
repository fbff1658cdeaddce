/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"encoding/binary"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	rs485 "github.com/allbin/go-rs485"
)

// ioctlCmd represents the ioctl command
var ioctlCmd = &cobra.Command{
	Use:   "ioctl <query> [port]",
	Short: "Issue a device control query",
	Long: `Issue one of the adapter's control queries and decode the answer.

Queries:
  hello              no-op, checks that the adapter answers (0x90002400)
  get-receive-count  bytes waiting in the receive buffer (0x90002404)
  get-elapsed-ms     milliseconds since the last line activity (0x90002408)

Example usage:
  rs485 ioctl get-receive-count ttyS1
  rs485 ioctl get-elapsed-ms --sim`,
	Args: cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		code, err := rs485.ParseControlCode(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		dev, err := openDevice(portArg(args, 1))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening adapter: %v\n", err)
			os.Exit(1)
		}
		defer dev.Close()

		out := make([]byte, 8)
		n, err := dev.Control(code, out)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error issuing %s: %v\n", code, err)
			os.Exit(1)
		}

		switch code {
		case rs485.ControlHello:
			fmt.Printf("%s %s acknowledged\n", successStyle.Render("✓"), code)
		case rs485.ControlGetReceiveCount:
			fmt.Printf("%s %s: %d bytes (% X)\n", successStyle.Render("✓"), code,
				binary.LittleEndian.Uint32(out[:n]), out[:n])
		case rs485.ControlGetElapsedMs:
			ms := int64(binary.LittleEndian.Uint64(out[:n]))
			fmt.Printf("%s %s: %v (% X)\n", successStyle.Render("✓"), code,
				time.Duration(ms)*time.Millisecond, out[:n])
		}
	},
}

func init() {
	rootCmd.AddCommand(ioctlCmd)
}
