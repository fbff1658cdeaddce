package rs485

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/allbin/go-rs485/internal/uart8250"
)

// Device represents an open RS-485 adapter
type Device interface {
	Close() error

	// Write sends data and returns once the last bit has left the wire and
	// the transceiver is back in receive mode. ErrDrainTimeout comes with a
	// full count when the line had to be released before the transmitter
	// reported empty.
	Write(data []byte) (int, error)
	WriteContext(ctx context.Context, data []byte) (int, error)

	// Read copies out whatever arrived since the last turnaround or Read and
	// empties the receive buffer. It never blocks.
	Read(buf []byte) (int, error)

	// Control answers the fixed set of device queries
	Control(code ControlCode, out []byte) (int, error)
	ReceiveCount() (int, error)
	SinceLastActivity() (time.Duration, error)

	// Diagnostics
	Stats() (Stats, error)
	ModemSignals() (ModemSignals, error)
	Config() Config
}

// device is the concrete implementation of the Device interface
type device struct {
	config Config
	regs   uart8250.RegisterMap
	hw     Hardware
	ownsHW bool
	logger *log.Logger
	now    func() time.Time

	// irql is the interrupt priority level: the interrupt handler holds it
	// for a whole pass, callers take it to exclude the handler.
	irql         sync.Mutex
	tx, rx       *buffer
	transmitting bool
	drainFailed  bool
	drainWait    time.Duration

	writeMu sync.Mutex
	done    *event
	dpcCh   chan struct{}
	closing chan struct{}
	closed  atomic.Bool
	dpcWG   sync.WaitGroup

	lastActivity          atomic.Int64
	interrupts            atomic.Uint64
	receiveErrors         atomic.Uint64
	modemStatusChanges    atomic.Uint64
	droppedBytes          atomic.Uint64
	spuriousTransmitEmpty atomic.Uint64
	drainTimeouts         atomic.Uint64
}

// Ensure device implements Device interface at compile time
var _ Device = (*device)(nil)

var (
	registryMu sync.Mutex
	registry   = make(map[uint16]struct{})
)

func claimPort(addr uint16) error {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, busy := registry[addr]; busy {
		return fmt.Errorf("%w: port 0x%X", ErrDeviceInUse, addr)
	}
	registry[addr] = struct{}{}
	return nil
}

func releasePort(addr uint16) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(registry, addr)
}

// Open brings up the adapter named by name (for example "ttyS1") with the
// given options. The name is resolved through sysfs to a port address and
// IRQ unless both are set explicitly; unknown names keep the configured
// values. Only one Device per port address may be open in a process.
func Open(name string, opts ...Option) (Device, error) {
	// Apply default configuration
	config := DefaultConfig()
	for _, opt := range opts {
		if err := opt(&config); err != nil {
			return nil, err
		}
	}

	if name != "" && (!config.portSet || !config.irqSet) {
		info, err := ResolvePort(name)
		if err != nil {
			config.Logger.Debug("using configured resources", "name", name, "err", err)
		} else {
			if !config.portSet {
				config.PortAddress = info.PortAddress
			}
			if !config.irqSet && info.IRQ > 0 {
				config.IRQLine = info.IRQ
			}
		}
	}

	if err := claimPort(config.PortAddress); err != nil {
		return nil, err
	}

	d, err := open(config)
	if err != nil {
		releasePort(config.PortAddress)
		return nil, err
	}
	return d, nil
}

func open(config Config) (*device, error) {
	hw := config.Hardware
	ownsHW := false
	if hw == nil {
		var err error
		hw, err = openHardware(config)
		if err != nil {
			return nil, err
		}
		ownsHW = true
	}

	d := &device{
		config:  config,
		regs:    uart8250.NewRegisterMap(config.PortAddress),
		hw:      hw,
		ownsHW:  ownsHW,
		logger:  config.Logger,
		now:     time.Now,
		tx:      newBuffer(config.BufferSize),
		rx:      newBuffer(config.BufferSize),
		done:    newEvent(),
		dpcCh:   make(chan struct{}, 1),
		closing: make(chan struct{}),
	}

	present := probeUART(hw, d.regs)
	if err := d.hardwareErr(); err != nil {
		d.releaseHardware()
		return nil, err
	}
	if !present {
		d.releaseHardware()
		return nil, fmt.Errorf("%w: 0x%X", ErrHardwareAbsent, config.PortAddress)
	}

	d.lastActivity.Store(d.now().UnixNano())
	effective := configureUART(hw, d.regs, config.BaudRate)
	if effective != config.BaudRate {
		d.logger.Warn("unsupported baud rate, using default", "requested", config.BaudRate, "baud", effective)
		d.config.BaudRate = effective
	}
	d.drainWait = drainWait(effective)

	d.dpcWG.Add(1)
	go d.runDPC()

	if err := hw.Connect(d.serviceInterrupt); err != nil {
		shutdownUART(hw, d.regs)
		close(d.closing)
		d.dpcWG.Wait()
		d.releaseHardware()
		return nil, fmt.Errorf("failed to connect IRQ %d: %w", config.IRQLine, err)
	}

	d.logger.Info("rs485 device open",
		"port", fmt.Sprintf("0x%X", config.PortAddress),
		"irq", config.IRQLine,
		"baud", d.config.BaudRate,
		"buffer", config.BufferSize)
	return d, nil
}

// hardwareErr reports the first failed register access of a Hardware that
// keeps one, such as the /dev/port backend.
func (d *device) hardwareErr() error {
	h, ok := d.hw.(interface{ Err() error })
	if !ok {
		return nil
	}
	if err := h.Err(); err != nil {
		return fmt.Errorf("%w at 0x%X: %w", ErrHardwareAccess, d.config.PortAddress, err)
	}
	return nil
}

func (d *device) releaseHardware() error {
	if !d.ownsHW {
		return nil
	}
	if c, ok := d.hw.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Close disconnects the interrupt handler, silences the UART and releases
// the port address for another Open
func (d *device) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return ErrDeviceClosed
	}
	close(d.closing)

	// A blocked Write sees closing and returns
	d.writeMu.Lock()
	defer d.writeMu.Unlock()

	errs := []error{d.hw.Disconnect()}

	d.irql.Lock()
	shutdownUART(d.hw, d.regs)
	d.transmitting = false
	d.tx.reset()
	d.rx.reset()
	d.irql.Unlock()

	d.dpcWG.Wait()
	errs = append(errs, d.releaseHardware())
	releasePort(d.config.PortAddress)

	d.logger.Info("rs485 device closed", "port", fmt.Sprintf("0x%X", d.config.PortAddress))
	return errors.Join(errs...)
}

// Write sends data, waiting for the turnaround at most Config.WriteTimeout
// when one is set
func (d *device) Write(data []byte) (int, error) {
	return d.write(context.Background(), data, d.config.WriteTimeout)
}

// WriteContext sends data, giving up when ctx is done. An abandoned burst is
// cut short and the line released before returning.
func (d *device) WriteContext(ctx context.Context, data []byte) (int, error) {
	return d.write(ctx, data, d.config.WriteTimeout)
}

func (d *device) write(ctx context.Context, data []byte, timeout time.Duration) (int, error) {
	d.writeMu.Lock()
	defer d.writeMu.Unlock()

	if d.closed.Load() {
		return 0, ErrDeviceClosed
	}
	if len(data) == 0 {
		return 0, nil
	}
	if len(data) >= d.tx.capacity() {
		return 0, fmt.Errorf("%w: %d bytes, capacity %d", ErrBufferCapacity, len(data), d.tx.capacity())
	}

	// Check if context is already cancelled
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	default:
	}

	d.irql.Lock()
	d.done.clear()
	d.drainFailed = false
	if err := d.tx.load(data); err != nil {
		d.irql.Unlock()
		return 0, err
	}
	d.hw.OutB(d.regs.MCR, d.hw.InB(d.regs.MCR)|uart8250.McrRTS)
	d.transmitting = true
	// The UART only interrupts once the holding register empties, so the
	// first byte goes out from here.
	d.hw.OutB(d.regs.THR, d.tx.takeByte())
	d.irql.Unlock()

	if err := d.hardwareErr(); err != nil {
		return d.abortWrite(len(data), err)
	}

	var timeoutCh <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case <-d.done.done():
		return d.completed(len(data))
	case <-ctx.Done():
		return d.abortWrite(len(data), ctx.Err())
	case <-timeoutCh:
		return d.abortWrite(len(data), ErrWriteTimeout)
	case <-d.closing:
		return 0, ErrDeviceClosed
	}
}

// completed reports how a finished burst ended. A burst whose line was
// released before the shift register drained may have lost its last
// character on the bus.
func (d *device) completed(n int) (int, error) {
	if err := d.hardwareErr(); err != nil {
		return 0, err
	}

	d.irql.Lock()
	drainFailed := d.drainFailed
	d.drainFailed = false
	d.irql.Unlock()

	if drainFailed {
		return n, ErrDrainTimeout
	}
	return n, nil
}

// abortWrite cuts the burst short. If the interrupt handler finished it in
// the meantime the write completed after all.
func (d *device) abortWrite(n int, cause error) (int, error) {
	d.irql.Lock()
	if !d.transmitting {
		d.irql.Unlock()
		// Completion was requested; consume it so it cannot leak into the
		// next Write.
		select {
		case <-d.done.done():
		case <-d.closing:
			return 0, ErrDeviceClosed
		}
		return d.completed(n)
	}
	d.tx.reset()
	d.hw.OutB(d.regs.MCR, d.hw.InB(d.regs.MCR)&^uart8250.McrRTS)
	d.transmitting = false
	d.irql.Unlock()

	if err := d.hardwareErr(); err != nil && !errors.Is(cause, ErrHardwareAccess) {
		cause = errors.Join(cause, err)
	}
	d.logger.Warn("write abandoned, line released", "err", cause)
	return 0, cause
}

// Read takes a snapshot of the receive buffer and clears it
func (d *device) Read(buf []byte) (int, error) {
	if d.closed.Load() {
		return 0, ErrDeviceClosed
	}
	if len(buf) == 0 {
		return 0, nil
	}

	d.irql.Lock()
	defer d.irql.Unlock()
	return d.rx.snapshot(buf), nil
}

// Config returns the effective configuration
func (d *device) Config() Config {
	return d.config
}

// touch records receive or transmit activity
func (d *device) touch() {
	d.lastActivity.Store(d.now().UnixNano())
}
