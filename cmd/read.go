/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// readCmd represents the read command
var readCmd = &cobra.Command{
	Use:   "read [port]",
	Short: "Read whatever the adapter has received",
	Long: `Open the adapter, let it listen for a while and print the receive buffer.

Read never blocks on the line: it returns the bytes collected so far and
empties the buffer. Bytes beyond the buffer capacity are dropped by the
interrupt handler and show up in the stats command.

Example usage:
  rs485 read ttyS1 --listen 2s
  rs485 read ttyS1 --size 16`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		listen, _ := cmd.Flags().GetDuration("listen")
		size, _ := cmd.Flags().GetInt("size")

		dev, err := openDevice(portArg(args, 0))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening adapter: %v\n", err)
			os.Exit(1)
		}
		defer dev.Close()

		time.Sleep(listen)

		if size <= 0 {
			size = dev.Config().BufferSize
		}
		buf := make([]byte, size)
		n, err := dev.Read(buf)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading: %v\n", err)
			os.Exit(1)
		}

		if n == 0 {
			fmt.Printf("%s Nothing received in %v\n", infoStyle.Render("📥"), listen)
			return
		}
		fmt.Printf("%s Received %d bytes\n", successStyle.Render("📥"), n)
		fmt.Printf("  HEX:   % X\n", buf[:n])
		fmt.Printf("  ASCII: %s\n", preview(buf[:n]))
	},
}

func init() {
	rootCmd.AddCommand(readCmd)

	readCmd.Flags().DurationP("listen", "l", time.Second, "How long to collect data before reading")
	readCmd.Flags().IntP("size", "s", 0, "Read buffer size (default: the adapter buffer size)")
}
