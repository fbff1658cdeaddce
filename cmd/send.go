/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/allbin/go-rs485/internal/tui/components"
)

var (
	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("99")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("40")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send [data] [port]",
	Short: "Send a request and read the reply",
	Long: `Transmit one burst on the RS-485 line and collect the reply.

The command returns from the write only after the last stop bit has left the
UART and RTS has dropped, so anything read afterwards was sent by the remote
node. Data can be provided as:
- Command line argument: send "Hello World" ttyS1
- From stdin (pipe): echo "test data" | rs485 send - ttyS1
- Interactive mode: rs485 send (prompts for input)

Example usage:
  rs485 send "This is a test!" ttyS1
  rs485 send --hex "02 06 00 03 00 00 00 99" ttyS1 --wait 100ms
  rs485 send "ping" --sim`,
	Args: cobra.MaximumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		var data string
		portName := portArg(args, 1)

		switch {
		case len(args) == 0:
			data = promptForData()
		case args[0] == "-":
			stdinData, err := io.ReadAll(os.Stdin)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error reading from stdin: %v\n", err)
				os.Exit(1)
			}
			data = strings.TrimRight(string(stdinData), "\r\n")
		default:
			data = args[0]
		}

		addNewline, _ := cmd.Flags().GetBool("newline")
		hexMode, _ := cmd.Flags().GetBool("hex")
		timeout, _ := cmd.Flags().GetDuration("timeout")
		wait, _ := cmd.Flags().GetDuration("wait")
		readSize, _ := cmd.Flags().GetInt("read")

		payload := []byte(data)
		if hexMode {
			var err error
			payload, err = components.ParseHex(data)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Invalid hex data: %v\n", err)
				os.Exit(1)
			}
		} else if addNewline {
			payload = append(payload, '\n')
		}

		if err := sendData(portName, payload, timeout, wait, readSize); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().BoolP("newline", "n", false, "Add newline character to the end of data")
	sendCmd.Flags().BoolP("hex", "x", false, "Interpret data as hexadecimal (e.g., '48656c6c6f' for 'Hello')")
	sendCmd.Flags().DurationP("timeout", "t", 5*time.Second, "Give up if turnaround has not happened by then")
	sendCmd.Flags().DurationP("wait", "w", 50*time.Millisecond, "Time to let the remote node answer before reading")
	sendCmd.Flags().IntP("read", "r", 50, "Maximum reply bytes to read (0 skips the read)")
}

func promptForData() string {
	promptStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("99"))

	fmt.Print(promptStyle.Render("Enter data to send: "))

	scanner := bufio.NewScanner(os.Stdin)
	if scanner.Scan() {
		return scanner.Text()
	}
	return ""
}

func sendData(portName string, data []byte, timeout, wait time.Duration, readSize int) error {
	label := portName
	if label == "" {
		label = "configured port"
	}
	fmt.Printf("%s Opening %s...\n", infoStyle.Render("⚡"), label)

	dev, err := openDevice(portName)
	if err != nil {
		return fmt.Errorf("%s %v", errorStyle.Render("✗"), err)
	}
	defer dev.Close()

	config := dev.Config()
	fmt.Printf("%s Adapter ready at 0x%03X, IRQ %d, %d baud\n",
		successStyle.Render("✓"), config.PortAddress, config.IRQLine, config.BaudRate)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	fmt.Printf("%s Sending %d bytes...\n", infoStyle.Render("📤"), len(data))

	start := time.Now()
	n, err := dev.WriteContext(ctx, data)
	if err != nil {
		return fmt.Errorf("%s failed to send data: %w", errorStyle.Render("✗"), err)
	}

	fmt.Printf("%s Sent %d bytes, line released after %v\n",
		successStyle.Render("✓"), n, time.Since(start).Round(time.Microsecond))
	fmt.Printf("%s Data: %s\n", infoStyle.Render("📋"), preview(data))

	if readSize <= 0 {
		return nil
	}

	time.Sleep(wait)

	reply := make([]byte, readSize)
	n, err = dev.Read(reply)
	if err != nil {
		return fmt.Errorf("%s failed to read reply: %w", errorStyle.Render("✗"), err)
	}
	if n == 0 {
		fmt.Printf("%s No reply within %v\n", infoStyle.Render("📥"), wait)
		return nil
	}

	fmt.Printf("%s Received %d bytes\n", successStyle.Render("📥"), n)
	fmt.Printf("%s HEX:   % X\n", infoStyle.Render("📋"), reply[:n])
	fmt.Printf("%s ASCII: %s\n", infoStyle.Render("📋"), preview(reply[:n]))

	return nil
}

// preview shortens data to 50 characters with non-printables dotted out
func preview(data []byte) string {
	s := string(data)
	if len(s) > 50 {
		s = s[:50] + "..."
	}
	return strings.Map(func(r rune) rune {
		if r < 32 || r > 126 {
			return '·'
		}
		return r
	}, s)
}
