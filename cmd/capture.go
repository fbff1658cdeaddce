/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	rs485 "github.com/allbin/go-rs485"
)

// captureCmd represents the capture command
var captureCmd = &cobra.Command{
	Use:   "capture <output-file> [port]",
	Short: "Capture received line traffic to a file",
	Long: `Capture bytes heard on the RS-485 line to a file.

The receive buffer is drained every --interval. Pick an interval short enough
that the buffer cannot fill between polls: at 19200 baud a 2048 byte buffer
lasts about a second. Runs until interrupted (Ctrl+C).

The output file is opened in append mode, allowing you to resume captures
without overwriting existing data.

Example usage:
  rs485 capture data.log ttyS1
  rs485 capture output.bin ttyS1 --baud 9600
  rs485 capture capture.log ttyS1 --console`,
	Args: cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		outputPath := args[0]
		interval, _ := cmd.Flags().GetDuration("interval")
		showConsole, _ := cmd.Flags().GetBool("console")

		if err := runCapture(portArg(args, 1), outputPath, interval, showConsole); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(captureCmd)

	captureCmd.Flags().DurationP("interval", "i", 20*time.Millisecond, "Receive buffer polling period")
	captureCmd.Flags().BoolP("console", "c", false, "Display incoming data on console while capturing")
}

func runCapture(portName, outputPath string, interval time.Duration, showConsole bool) error {
	dev, err := openDevice(portName)
	if err != nil {
		return fmt.Errorf("failed to open adapter: %w", err)
	}
	defer dev.Close()

	file, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open output file: %w", err)
	}
	defer file.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(os.Stderr, "Capturing data from 0x%03X to %s\n", dev.Config().PortAddress, outputPath)
	if showConsole {
		fmt.Fprintf(os.Stderr, "Console display enabled\n")
	}
	fmt.Fprintf(os.Stderr, "Press Ctrl+C to stop\n\n")

	var out io.Writer = file
	if showConsole {
		out = io.MultiWriter(file, os.Stdout)
	}

	startTime := time.Now()
	written, err := pollReceive(ctx, dev, out, interval)

	fmt.Fprintf(os.Stderr, "\nCapture complete: %d bytes written in %v\n", written, time.Since(startTime).Round(time.Millisecond))
	if stats, serr := dev.Stats(); serr == nil && stats.DroppedBytes > 0 {
		fmt.Fprintf(os.Stderr, "Warning: %d bytes dropped on a full receive buffer\n", stats.DroppedBytes)
	}
	return err
}

// pollReceive drains the receive buffer into out until ctx is done
func pollReceive(ctx context.Context, dev rs485.Device, out io.Writer, interval time.Duration) (int64, error) {
	buffer := make([]byte, dev.Config().BufferSize)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var total int64
	for {
		select {
		case <-ctx.Done():
			return total, nil
		case <-ticker.C:
		}

		n, err := dev.Read(buffer)
		if err != nil {
			return total, fmt.Errorf("read error: %w", err)
		}
		if n == 0 {
			continue
		}

		written, err := out.Write(buffer[:n])
		total += int64(written)
		if err != nil {
			return total, fmt.Errorf("write error: %w", err)
		}
	}
}
