/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	rs485 "github.com/allbin/go-rs485"
	"github.com/allbin/go-rs485/internal/uartsim"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "rs485",
	Short: "Half-duplex RS-485 adapter tool for 8250 UARTs",
	Long: `Drive an RS-485 transceiver hanging off a legacy 8250 UART.

The UART is programmed directly through its I/O ports. Every transmission
raises RTS to enable the line driver, and RTS drops again once the last bit
has left the shift register so the adapter can hear the reply.

Port resources come from sysfs for names like ttyS1, or from flags:
  rs485 send "hello" ttyS1
  rs485 send --hex 0206000300000099 --port-address 0x2F8 --irq 3
  rs485 listen ttyS1 --baud 9600

Use --sim to exercise any command against a simulated UART with a remote
node that echoes every burst.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	defaults := rs485.DefaultConfig()

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (yaml, toml or json)")
	pf.String("port-address", "", "UART base I/O port, e.g. 0x2F8 (default from sysfs or 0x2F8)")
	pf.Int("irq", defaults.IRQLine, "interrupt line")
	pf.IntP("baud", "b", defaults.BaudRate, "baud rate (1200-115200)")
	pf.Int("buffer-size", defaults.BufferSize, "transmit and receive buffer size in bytes")
	pf.Duration("write-timeout", defaults.WriteTimeout, "bound on waiting for turnaround (0 waits forever)")
	pf.Int("drain-poll-limit", defaults.DrainPollLimit, "line status reads spent waiting for the shift register")
	pf.Duration("poll-interval", defaults.PollInterval, "interrupt poll period when using /dev/port")
	pf.String("log-level", "warn", "log level: debug, info, warn, error")
	pf.Bool("sim", false, "use a simulated UART with an echoing remote node")

	for key, flag := range map[string]string{
		"port_address":     "port-address",
		"irq_line":         "irq",
		"baud_rate":        "baud",
		"buffer_size":      "buffer-size",
		"write_timeout":    "write-timeout",
		"drain_poll_limit": "drain-poll-limit",
		"poll_interval":    "poll-interval",
		"log_level":        "log-level",
		"sim":              "sim",
	} {
		cobra.CheckErr(viper.BindPFlag(key, pf.Lookup(flag)))
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("rs485")
		viper.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			viper.AddConfigPath(dir)
		}
	}

	viper.SetEnvPrefix("RS485")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "Error reading config: %v\n", err)
			os.Exit(1)
		}
	}
}

func newLogger() (*log.Logger, error) {
	level, err := log.ParseLevel(viper.GetString("log_level"))
	if err != nil {
		return nil, err
	}
	return log.NewWithOptions(os.Stderr, log.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
		Prefix:          "rs485",
	}), nil
}

// deviceOptions collects adapter options from flags, env and config file
func deviceOptions() ([]rs485.Option, error) {
	logger, err := newLogger()
	if err != nil {
		return nil, err
	}

	opts := []rs485.Option{
		rs485.WithBaudRate(viper.GetInt("baud_rate")),
		rs485.WithBufferSize(viper.GetInt("buffer_size")),
		rs485.WithWriteTimeout(viper.GetDuration("write_timeout")),
		rs485.WithDrainPollLimit(viper.GetInt("drain_poll_limit")),
		rs485.WithPollInterval(viper.GetDuration("poll_interval")),
		rs485.WithLogger(logger),
	}

	if s := viper.GetString("port_address"); s != "" {
		addr, err := parsePortAddress(s)
		if err != nil {
			return nil, err
		}
		opts = append(opts, rs485.WithPortAddress(addr))
	}
	if viper.IsSet("irq_line") {
		opts = append(opts, rs485.WithIRQLine(viper.GetInt("irq_line")))
	}

	return opts, nil
}

// openDevice opens the named adapter, or a simulated one with --sim
func openDevice(name string) (rs485.Device, error) {
	opts, err := deviceOptions()
	if err != nil {
		return nil, err
	}

	if viper.GetBool("sim") {
		config, err := applyOptions(opts)
		if err != nil {
			return nil, err
		}
		sim := uartsim.New(config.PortAddress, uartsim.WithResponder(echoNode, 5*time.Millisecond))
		opts = append(opts, rs485.WithHardware(sim))
		name = ""
	}

	return rs485.Open(name, opts...)
}

// resolveConfig validates the adapter settings without touching hardware
func resolveConfig() (rs485.Config, error) {
	opts, err := deviceOptions()
	if err != nil {
		return rs485.Config{}, err
	}
	return applyOptions(opts)
}

func applyOptions(opts []rs485.Option) (rs485.Config, error) {
	config := rs485.DefaultConfig()
	for _, opt := range opts {
		if err := opt(&config); err != nil {
			return rs485.Config{}, err
		}
	}
	return config, nil
}

// echoNode plays the remote station in --sim mode
func echoNode(request []byte) []byte {
	reply := make([]byte, len(request))
	copy(reply, request)
	return reply
}

// parsePortAddress accepts 0x2F8, 2f8h or decimal
func parsePortAddress(s string) (uint16, error) {
	s = strings.ToLower(strings.TrimSpace(s))

	base := 10
	switch {
	case strings.HasPrefix(s, "0x"):
		s, base = s[2:], 16
	case strings.HasSuffix(s, "h"):
		s, base = strings.TrimSuffix(s, "h"), 16
	}

	addr, err := strconv.ParseUint(s, base, 16)
	if err != nil || addr == 0 {
		return 0, fmt.Errorf("invalid port address %q", s)
	}
	return uint16(addr), nil
}

// portArg returns the optional port name argument
func portArg(args []string, i int) string {
	if len(args) > i {
		return args[i]
	}
	return ""
}
