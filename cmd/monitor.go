/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	rs485 "github.com/allbin/go-rs485"
)

var (
	monitorSignals  []string
	monitorInterval time.Duration
)

// signalMask selects which modem inputs are reported
type signalMask uint8

const (
	signalCTS signalMask = 1 << iota
	signalDSR
	signalRI
	signalDCD
)

// monitorCmd represents the monitor command
var monitorCmd = &cobra.Command{
	Use:   "monitor [port]",
	Short: "Monitor modem signal and counter changes",
	Long: `Sample the modem inputs and the adapter counters and report every change.

The adapter does not enable the modem status interrupt, so changes are found
by polling at --interval. Counter changes (line errors, dropped bytes, drain
timeouts) are reported alongside. Press Ctrl+C to stop.

Examples:
  rs485 monitor ttyS1
  rs485 monitor ttyS1 --signals cts,dsr
  rs485 monitor ttyS1 --signals dcd --interval 100ms

Available signals: cts, dsr, ri, dcd`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		mask, err := parseSignalMask(monitorSignals)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing signals: %v\n", err)
			os.Exit(1)
		}

		dev, err := openDevice(portArg(args, 0))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening adapter: %v\n", err)
			os.Exit(1)
		}
		defer dev.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Printf("Monitoring 0x%03X (signals: %s)\n", dev.Config().PortAddress, strings.Join(monitorSignals, ", "))
		fmt.Println("Press Ctrl+C to stop")

		if err := runMonitor(ctx, dev, mask, monitorInterval); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("\nStopping monitor...")
	},
}

func runMonitor(ctx context.Context, dev rs485.Device, mask signalMask, interval time.Duration) error {
	signals, err := dev.ModemSignals()
	if err != nil {
		return fmt.Errorf("reading initial signals: %w", err)
	}
	stats, err := dev.Stats()
	if err != nil {
		return fmt.Errorf("reading initial stats: %w", err)
	}
	printSignalState("Initial", signals, mask)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		current, err := dev.ModemSignals()
		if err != nil {
			return err
		}
		if changed := signalChanges(signals, current) & mask; changed != 0 {
			printSignalChange(current, changed)
		}
		signals = current

		next, err := dev.Stats()
		if err != nil {
			return err
		}
		printStatsChange(stats, next)
		stats = next
	}
}

func parseSignalMask(signalNames []string) (signalMask, error) {
	if len(signalNames) == 0 {
		return signalCTS | signalDSR | signalRI | signalDCD, nil
	}

	var mask signalMask
	for _, name := range signalNames {
		switch strings.ToLower(name) {
		case "cts":
			mask |= signalCTS
		case "dsr":
			mask |= signalDSR
		case "ri":
			mask |= signalRI
		case "dcd":
			mask |= signalDCD
		default:
			return 0, fmt.Errorf("unknown signal: %s (valid: cts, dsr, ri, dcd)", name)
		}
	}
	return mask, nil
}

func signalChanges(prev, cur rs485.ModemSignals) signalMask {
	var changed signalMask
	if prev.CTS != cur.CTS {
		changed |= signalCTS
	}
	if prev.DSR != cur.DSR {
		changed |= signalDSR
	}
	if prev.RI != cur.RI {
		changed |= signalRI
	}
	if prev.DCD != cur.DCD {
		changed |= signalDCD
	}
	return changed
}

func printSignalState(prefix string, signals rs485.ModemSignals, mask signalMask) {
	fmt.Printf("[%s] %s state:\n", time.Now().Format("15:04:05"), prefix)
	printSignals(signals, mask)
}

func printSignalChange(signals rs485.ModemSignals, changed signalMask) {
	fmt.Printf("[%s] Signal change detected:\n", time.Now().Format("15:04:05"))
	printSignals(signals, changed)
}

func printSignals(signals rs485.ModemSignals, mask signalMask) {
	if mask&signalCTS != 0 {
		fmt.Printf("  CTS: %s\n", formatSignalState(signals.CTS))
	}
	if mask&signalDSR != 0 {
		fmt.Printf("  DSR: %s\n", formatSignalState(signals.DSR))
	}
	if mask&signalRI != 0 {
		fmt.Printf("  RI:  %s\n", formatSignalState(signals.RI))
	}
	if mask&signalDCD != 0 {
		fmt.Printf("  DCD: %s\n", formatSignalState(signals.DCD))
	}
	fmt.Println()
}

func printStatsChange(prev, cur rs485.Stats) {
	report := func(name string, before, after uint64) {
		if after != before {
			fmt.Printf("[%s] %s: %d (+%d)\n", time.Now().Format("15:04:05"), name, after, after-before)
		}
	}
	report("Receive errors", prev.ReceiveErrors, cur.ReceiveErrors)
	report("Dropped bytes", prev.DroppedBytes, cur.DroppedBytes)
	report("Drain timeouts", prev.DrainTimeouts, cur.DrainTimeouts)
	report("Spurious THRE", prev.SpuriousTransmitEmpty, cur.SpuriousTransmitEmpty)
}

func init() {
	rootCmd.AddCommand(monitorCmd)

	monitorCmd.Flags().StringSliceVarP(&monitorSignals, "signals", "s", []string{"cts", "dsr", "ri", "dcd"},
		"Signals to monitor (comma-separated: cts,dsr,ri,dcd)")
	monitorCmd.Flags().DurationVarP(&monitorInterval, "interval", "i", 50*time.Millisecond,
		"Sampling period")
}
