package rs485

import (
	"time"

	"github.com/allbin/go-rs485/internal/uart8250"
)

// Stats is a snapshot of the adapter's diagnostic counters
type Stats struct {
	Interrupts            uint64 // interrupt passes that found work; idle polls of the line are not counted
	ReceiveErrors         uint64 // overrun, parity, framing and break conditions
	ModemStatusChanges    uint64
	DroppedBytes          uint64 // received while the buffer was full
	SpuriousTransmitEmpty uint64 // transmit-empty with no burst in progress
	DrainTimeouts         uint64 // line released before TEMT was seen

	BufferSize   int
	Received     int // bytes waiting for Read
	Transmitting bool
	LastActivity time.Time
}

// ModemSignals represents modem control signal states
type ModemSignals struct {
	CTS  bool // Clear To Send
	DSR  bool // Data Set Ready
	RI   bool // Ring Indicator
	DCD  bool // Data Carrier Detect
	RTS  bool // Request To Send, the transceiver direction
	DTR  bool // Data Terminal Ready
	OUT2 bool // interrupt gate
}

// Stats returns the current counters
func (d *device) Stats() (Stats, error) {
	if d.closed.Load() {
		return Stats{}, ErrDeviceClosed
	}

	d.irql.Lock()
	received := d.rx.remaining
	transmitting := d.transmitting
	d.irql.Unlock()

	return Stats{
		Interrupts:            d.interrupts.Load(),
		ReceiveErrors:         d.receiveErrors.Load(),
		ModemStatusChanges:    d.modemStatusChanges.Load(),
		DroppedBytes:          d.droppedBytes.Load(),
		SpuriousTransmitEmpty: d.spuriousTransmitEmpty.Load(),
		DrainTimeouts:         d.drainTimeouts.Load(),
		BufferSize:            d.config.BufferSize,
		Received:              received,
		Transmitting:          transmitting,
		LastActivity:          time.Unix(0, d.lastActivity.Load()),
	}, nil
}

// ModemSignals returns current state of the modem control lines. Reading
// MSR clears its delta bits, so a pending modem status interrupt may be
// absorbed here.
func (d *device) ModemSignals() (ModemSignals, error) {
	if d.closed.Load() {
		return ModemSignals{}, ErrDeviceClosed
	}

	d.irql.Lock()
	mcr := d.hw.InB(d.regs.MCR)
	msr := d.hw.InB(d.regs.MSR)
	d.irql.Unlock()

	return ModemSignals{
		CTS:  msr&uart8250.MsrCTS != 0,
		DSR:  msr&uart8250.MsrDSR != 0,
		RI:   msr&uart8250.MsrRI != 0,
		DCD:  msr&uart8250.MsrDCD != 0,
		RTS:  mcr&uart8250.McrRTS != 0,
		DTR:  mcr&uart8250.McrDTR != 0,
		OUT2: mcr&uart8250.McrOut2 != 0,
	}, nil
}
