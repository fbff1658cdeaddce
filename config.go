package rs485

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/allbin/go-rs485/internal/portio"
	"github.com/allbin/go-rs485/internal/uart8250"
)

// Config holds the configuration for an RS-485 adapter
type Config struct {
	PortAddress    uint16        // I/O base of the UART
	IRQLine        int           // interrupt line, informational in user space
	BaudRate       int           // one of uart8250.SupportedBaudRates, else 19200
	BufferSize     int           // capacity of each of the transmit and receive buffers
	WriteTimeout   time.Duration // 0 waits for turnaround without bound
	DrainPollLimit int           // LSR reads before the drain poll falls back to a two-character deadline
	PollInterval   time.Duration // interrupt poll period on real hardware
	Logger         *log.Logger
	Hardware       Hardware // nil selects /dev/port

	portSet bool
	irqSet  bool
}

// Option is a functional option for configuring an adapter
type Option func(*Config) error

// DefaultConfig returns the configuration of a COM2 adapter at 19200 baud
func DefaultConfig() Config {
	return Config{
		PortAddress:    0x2F8,
		IRQLine:        3,
		BaudRate:       uart8250.DefaultBaudRate,
		BufferSize:     2048,
		WriteTimeout:   0,
		DrainPollLimit: 1 << 22,
		PollInterval:   portio.DefaultPollInterval,
		Logger:         log.New(io.Discard),
	}
}

// WithPortAddress sets the UART base port
func WithPortAddress(addr uint16) Option {
	return func(c *Config) error {
		if addr == 0 || int(addr)+uart8250.PortRange > 0x10000 {
			return ErrInvalidConfig
		}
		c.PortAddress = addr
		c.portSet = true
		return nil
	}
}

// WithIRQLine sets the interrupt line number (0-15)
func WithIRQLine(irq int) Option {
	return func(c *Config) error {
		if irq < 0 || irq > 15 {
			return ErrInvalidConfig
		}
		c.IRQLine = irq
		c.irqSet = true
		return nil
	}
}

// WithBaudRate sets the baud rate. Rates without a divisor fall back to
// 19200 when the UART is programmed, they are not rejected here.
func WithBaudRate(rate int) Option {
	return func(c *Config) error {
		if rate <= 0 {
			return ErrInvalidConfig
		}
		c.BaudRate = rate
		return nil
	}
}

// WithBufferSize sets the transmit and receive buffer capacity in bytes
func WithBufferSize(size int) Option {
	return func(c *Config) error {
		if size < 2 || size > 1<<20 {
			return ErrInvalidConfig
		}
		c.BufferSize = size
		return nil
	}
}

// WithWriteTimeout bounds how long Write waits for the turnaround
func WithWriteTimeout(timeout time.Duration) Option {
	return func(c *Config) error {
		if timeout < 0 {
			return ErrInvalidConfig
		}
		c.WriteTimeout = timeout
		return nil
	}
}

// WithDrainPollLimit sets how many line status reads the interrupt handler
// spends waiting for the shift register. Once they are spent it keeps
// polling for two more character times, never under a millisecond, before
// releasing the line anyway
func WithDrainPollLimit(limit int) Option {
	return func(c *Config) error {
		if limit <= 0 {
			return ErrInvalidConfig
		}
		c.DrainPollLimit = limit
		return nil
	}
}

// WithPollInterval sets how often the UART is checked for pending
// interrupts when it is accessed through /dev/port
func WithPollInterval(interval time.Duration) Option {
	return func(c *Config) error {
		if interval <= 0 {
			return ErrInvalidConfig
		}
		c.PollInterval = interval
		return nil
	}
}

// WithLogger sets the logger for lifecycle events
func WithLogger(logger *log.Logger) Option {
	return func(c *Config) error {
		if logger == nil {
			return ErrInvalidConfig
		}
		c.Logger = logger
		return nil
	}
}

// WithHardware drives the given UART instead of opening /dev/port
func WithHardware(hw Hardware) Option {
	return func(c *Config) error {
		if hw == nil {
			return ErrInvalidConfig
		}
		c.Hardware = hw
		return nil
	}
}
