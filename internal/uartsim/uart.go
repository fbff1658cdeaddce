// Package uartsim simulates an 8250-family UART wired to an RS-485
// transceiver: register decoding with the divisor latch overlay, a holding
// and a shift register clocked at the programmed baud rate, a receive FIFO,
// line and modem status events and a latched interrupt line gated by OUT2.
package uartsim

import (
	"errors"
	"sync"
	"time"

	"github.com/allbin/go-rs485/internal/uart8250"
)

var ErrAlreadyConnected = errors.New("uartsim: interrupt line already connected")

// TxByte is one byte that left the shift register.
type TxByte struct {
	Value byte
	RTS   bool // direction line state while the byte was on the wire
}

// Responder builds the reply a remote RS-485 node sends after a burst. A nil
// or empty reply sends nothing.
type Responder func(request []byte) []byte

// Option configures a simulated UART.
type Option func(*UART)

// WithCharTime fixes the time one character spends in the shift register.
// By default it is derived from the programmed divisor (10 bits per char).
func WithCharTime(d time.Duration) Option {
	return func(u *UART) {
		u.charTime = d
	}
}

// WithStuckShiftRegister makes TEMT never assert, as on a wedged part.
func WithStuckShiftRegister() Option {
	return func(u *UART) {
		u.stuck = true
	}
}

// WithResponder answers every burst once the direction line drops.
func WithResponder(r Responder, delay time.Duration) Option {
	return func(u *UART) {
		u.responder = r
		u.responseDelay = delay
	}
}

// UART is a simulated 8250 decoding PortRange ports from its base address.
// It implements uart8250.PortIO and the interrupt line used by rs485.
type UART struct {
	mu   sync.Mutex
	base uint16

	ier, lcr, mcr, lsr, scr byte
	msrStatus, msrDelta     byte
	dll, dlm                byte

	threPending bool
	holding     byte
	holdingFull bool
	shifting    bool
	shiftValue  byte

	rx      []byte
	tx      []TxByte
	burst   []byte
	lsrRead int

	charTime      time.Duration
	stuck         bool
	responder     Responder
	responseDelay time.Duration

	isr  func()
	irq  chan struct{}
	stop chan struct{}
	wg   sync.WaitGroup
}

var _ uart8250.PortIO = (*UART)(nil)

// New creates a powered-up UART at base: transmitter idle, interrupts masked.
func New(base uint16, opts ...Option) *UART {
	u := &UART{
		base: base,
		lsr:  uart8250.LsrDrained,
		irq:  make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Base returns the first decoded port.
func (u *UART) Base() uint16 { return u.base }

// InB implements uart8250.PortIO. Ports outside the decoded range float high.
func (u *UART) InB(port uint16) byte {
	if port < u.base || port >= u.base+uart8250.PortRange {
		return 0xFF
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	switch port - u.base {
	case uart8250.OffsetRBR:
		if u.lcr&uart8250.LcrDLAB != 0 {
			return u.dll
		}
		if len(u.rx) == 0 {
			return 0
		}
		b := u.rx[0]
		u.rx = u.rx[1:]
		u.kickLocked()
		return b
	case uart8250.OffsetIER:
		if u.lcr&uart8250.LcrDLAB != 0 {
			return u.dlm
		}
		return u.ier
	case uart8250.OffsetIIR:
		id := u.pendingLocked()
		if id == uart8250.IirTXEmpty {
			u.threPending = false
		}
		return id
	case uart8250.OffsetLCR:
		return u.lcr
	case uart8250.OffsetMCR:
		return u.mcr
	case uart8250.OffsetLSR:
		u.lsrRead++
		v := u.lsrLocked()
		u.lsr &^= uart8250.LsrErrors
		return v
	case uart8250.OffsetMSR:
		v := u.msrStatus | u.msrDelta
		u.msrDelta = 0
		return v
	case uart8250.OffsetSCR:
		return u.scr
	}
	return 0xFF
}

// OutB implements uart8250.PortIO.
func (u *UART) OutB(port uint16, value byte) {
	if port < u.base || port >= u.base+uart8250.PortRange {
		return
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	switch port - u.base {
	case uart8250.OffsetTHR:
		if u.lcr&uart8250.LcrDLAB != 0 {
			u.dll = value
			return
		}
		u.transmitLocked(value)
	case uart8250.OffsetIER:
		if u.lcr&uart8250.LcrDLAB != 0 {
			u.dlm = value
			return
		}
		prev := u.ier
		u.ier = value & 0x0F
		if prev&uart8250.IerTXEmpty == 0 && u.ier&uart8250.IerTXEmpty != 0 && u.lsr&uart8250.LsrTHRE != 0 {
			u.threPending = true
		}
	case uart8250.OffsetLCR:
		u.lcr = value
	case uart8250.OffsetMCR:
		prev := u.mcr
		u.mcr = value & 0x1F
		if prev&uart8250.McrRTS != 0 && u.mcr&uart8250.McrRTS == 0 {
			u.releaseLocked()
		}
	case uart8250.OffsetSCR:
		u.scr = value
	}
	u.kickLocked()
}

func (u *UART) transmitLocked(value byte) {
	if !u.shifting {
		u.startShiftLocked(value)
		u.lsr |= uart8250.LsrTHRE
		u.threPending = true
		return
	}
	u.holding = value
	u.holdingFull = true
	u.lsr &^= uart8250.LsrTHRE
	u.threPending = false
}

func (u *UART) startShiftLocked(value byte) {
	u.shifting = true
	u.shiftValue = value
	u.lsr &^= uart8250.LsrTEMT
	time.AfterFunc(u.charTimeLocked(), u.shiftDone)
}

func (u *UART) shiftDone() {
	u.mu.Lock()
	defer u.mu.Unlock()

	rts := u.mcr&uart8250.McrRTS != 0
	u.tx = append(u.tx, TxByte{Value: u.shiftValue, RTS: rts})
	if rts {
		u.burst = append(u.burst, u.shiftValue)
	}

	if u.holdingFull {
		u.holdingFull = false
		u.startShiftLocked(u.holding)
		u.lsr |= uart8250.LsrTHRE
		u.threPending = true
	} else {
		u.shifting = false
		if !u.stuck {
			u.lsr |= uart8250.LsrTEMT
		}
	}
	u.kickLocked()
}

// releaseLocked runs on the falling edge of RTS: the remote node gets the
// burst and may answer.
func (u *UART) releaseLocked() {
	request := u.burst
	u.burst = nil
	if u.responder == nil || len(request) == 0 {
		return
	}
	go func() {
		reply := u.responder(request)
		if len(reply) == 0 {
			return
		}
		if u.responseDelay > 0 {
			time.Sleep(u.responseDelay)
		}
		u.Inject(reply...)
	}()
}

func (u *UART) charTimeLocked() time.Duration {
	if u.charTime > 0 {
		return u.charTime
	}
	return uart8250.CharTime(uart8250.BaudFromDivisor(uint16(u.dlm)<<8 | uint16(u.dll)))
}

func (u *UART) lsrLocked() byte {
	v := u.lsr &^ uart8250.LsrDataReady
	if len(u.rx) > 0 {
		v |= uart8250.LsrDataReady
	}
	return v
}

func (u *UART) pendingLocked() byte {
	switch {
	case u.ier&uart8250.IerLineStatus != 0 && u.lsr&uart8250.LsrErrors != 0:
		return uart8250.IirLineStatus
	case u.ier&uart8250.IerRXReady != 0 && len(u.rx) > 0:
		return uart8250.IirRXReady
	case u.ier&uart8250.IerTXEmpty != 0 && u.threPending:
		return uart8250.IirTXEmpty
	case u.ier&uart8250.IerModem != 0 && u.msrDelta != 0:
		return uart8250.IirModemStatus
	}
	return uart8250.IirNoPending
}

// kickLocked raises the interrupt line when a source is pending. The line is
// latched: a raise that arrives while the handler still runs is kept for one
// more pass, further raises coalesce.
func (u *UART) kickLocked() {
	if u.isr == nil || u.mcr&uart8250.McrOut2 == 0 {
		return
	}
	if u.pendingLocked() == uart8250.IirNoPending {
		return
	}
	select {
	case u.irq <- struct{}{}:
	default:
	}
}

// Connect attaches isr to the interrupt line. isr runs on a dedicated
// goroutine, one invocation at a time.
func (u *UART) Connect(isr func()) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.isr != nil {
		return ErrAlreadyConnected
	}
	u.isr = isr
	u.stop = make(chan struct{})

	u.wg.Add(1)
	go func(stop <-chan struct{}) {
		defer u.wg.Done()
		for {
			select {
			case <-stop:
				return
			case <-u.irq:
				isr()
			}
		}
	}(u.stop)

	u.kickLocked()
	return nil
}

// Disconnect detaches the handler and waits for a running pass to return.
func (u *UART) Disconnect() error {
	u.mu.Lock()
	if u.isr == nil {
		u.mu.Unlock()
		return nil
	}
	u.isr = nil
	close(u.stop)
	u.mu.Unlock()

	u.wg.Wait()
	return nil
}

// Inject delivers bytes from the bus into the receive FIFO.
func (u *UART) Inject(data ...byte) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.rx = append(u.rx, data...)
	u.kickLocked()
}

// InjectLineError latches receive error bits (overrun, parity, framing,
// break) into the line status register.
func (u *UART) InjectLineError(bits byte) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.lsr |= bits & uart8250.LsrErrors
	u.kickLocked()
}

// SetModemStatus drives the CTS/DSR/RI/DCD inputs; changed lines latch their
// delta bits until the modem status register is read.
func (u *UART) SetModemStatus(status byte) {
	u.mu.Lock()
	defer u.mu.Unlock()

	status &= uart8250.MsrCTS | uart8250.MsrDSR | uart8250.MsrRI | uart8250.MsrDCD
	changed := status ^ u.msrStatus
	if changed&uart8250.MsrCTS != 0 {
		u.msrDelta |= uart8250.MsrDeltaCTS
	}
	if changed&uart8250.MsrDSR != 0 {
		u.msrDelta |= uart8250.MsrDeltaDSR
	}
	if changed&uart8250.MsrDCD != 0 {
		u.msrDelta |= uart8250.MsrDeltaDCD
	}
	if u.msrStatus&uart8250.MsrRI != 0 && status&uart8250.MsrRI == 0 {
		u.msrDelta |= uart8250.MsrTrailRI
	}
	u.msrStatus = status
	u.kickLocked()
}

// RTS reports the direction line.
func (u *UART) RTS() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.mcr&uart8250.McrRTS != 0
}

// Registers is a snapshot of the programmed registers.
type Registers struct {
	IER, LCR, MCR, LSR, MSR byte
	Divisor                 uint16
}

// Snapshot returns the register state without side effects.
func (u *UART) Snapshot() Registers {
	u.mu.Lock()
	defer u.mu.Unlock()
	return Registers{
		IER:     u.ier,
		LCR:     u.lcr,
		MCR:     u.mcr,
		LSR:     u.lsrLocked(),
		MSR:     u.msrStatus | u.msrDelta,
		Divisor: uint16(u.dlm)<<8 | uint16(u.dll),
	}
}

// Transmitted returns every byte that left the shift register so far.
func (u *UART) Transmitted() []TxByte {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]TxByte, len(u.tx))
	copy(out, u.tx)
	return out
}

// ClearTransmitted forgets the transmit log.
func (u *UART) ClearTransmitted() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.tx = nil
}

// LSRReads counts line status register reads, including drain polls.
func (u *UART) LSRReads() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.lsrRead
}

// Pending returns the interrupt identification the UART would report now.
func (u *UART) Pending() byte {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.pendingLocked()
}
