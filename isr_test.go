package rs485

import (
	"errors"
	"testing"
	"time"

	"github.com/allbin/go-rs485/internal/uart8250"
	"github.com/allbin/go-rs485/internal/uartsim"
)

// newBareDevice builds a configured device whose interrupt line is not
// connected, so the test drives serviceInterrupt itself.
func newBareDevice(t *testing.T, sim *uartsim.UART) *device {
	t.Helper()

	config := DefaultConfig()
	config.Hardware = sim
	config.BufferSize = 16
	config.DrainPollLimit = 100

	d := &device{
		config:  config,
		regs:    uart8250.NewRegisterMap(sim.Base()),
		hw:      sim,
		logger:  config.Logger,
		now:     time.Now,
		tx:      newBuffer(config.BufferSize),
		rx:      newBuffer(config.BufferSize),
		done:    newEvent(),
		dpcCh:   make(chan struct{}, 1),
		closing: make(chan struct{}),
	}
	d.drainWait = drainWait(config.BaudRate)
	configureUART(sim, d.regs, config.BaudRate)
	return d
}

func TestServiceInterruptDrainsAllSources(t *testing.T) {
	sim := uartsim.New(testPort)
	d := newBareDevice(t, sim)

	sim.OutB(d.regs.IER, uart8250.IerRXReady|uart8250.IerTXEmpty|uart8250.IerLineStatus|uart8250.IerModem)
	sim.Inject('A', 'B')
	sim.InjectLineError(uart8250.LsrOverrun)
	sim.SetModemStatus(uart8250.MsrDSR)

	d.serviceInterrupt()

	if got := sim.Pending(); got != uart8250.IirNoPending {
		t.Errorf("Expected every source serviced in one pass, IIR still 0x%02X", got)
	}
	if got := d.interrupts.Load(); got != 1 {
		t.Errorf("Expected 1 interrupt, got %d", got)
	}
	if got := d.receiveErrors.Load(); got != 1 {
		t.Errorf("Expected 1 receive error, got %d", got)
	}
	if got := d.modemStatusChanges.Load(); got != 1 {
		t.Errorf("Expected 1 modem status change, got %d", got)
	}
	if got := d.spuriousTransmitEmpty.Load(); got != 1 {
		t.Errorf("Expected the enable-time THRE to count as spurious, got %d", got)
	}
	if d.rx.remaining != 2 || string(d.rx.data[:2]) != "AB" {
		t.Errorf("Expected \"AB\" buffered, got %q", d.rx.data[:d.rx.remaining])
	}
}

func TestServiceInterruptIdleLine(t *testing.T) {
	sim := uartsim.New(testPort)
	d := newBareDevice(t, sim)
	d.serviceInterrupt() // consumes the enable-time THRE

	before := d.interrupts.Load()
	d.serviceInterrupt()
	if got := d.interrupts.Load(); got != before {
		t.Errorf("Expected a pass with nothing pending not to count, got %d -> %d", before, got)
	}
}

func TestServiceInterruptFloatingBus(t *testing.T) {
	sim := uartsim.New(testPort)
	d := newBareDevice(t, sim)
	d.regs = uart8250.NewRegisterMap(0x3F8) // nothing decodes here, IIR reads 0xFF

	done := make(chan struct{})
	go func() {
		d.serviceInterrupt()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("serviceInterrupt did not return on an undecoded port")
	}
}

func TestServiceInterruptFailsBurstOnAccessError(t *testing.T) {
	sim := uartsim.New(testPort)
	d := newBareDevice(t, sim)
	fault := errors.New("inb 0x03FA: input/output error")
	d.hw = &faultyUART{UART: sim, err: fault}
	d.regs = uart8250.NewRegisterMap(0x3F8)

	d.transmitting = true
	d.tx.load([]byte("abc"))
	d.serviceInterrupt()

	if d.transmitting {
		t.Error("Expected the burst abandoned")
	}
	if d.tx.remaining != 0 {
		t.Errorf("Expected transmit buffer reset, got %d bytes", d.tx.remaining)
	}
	if len(d.dpcCh) != 1 {
		t.Error("Expected a completion request so the Write wakes up")
	}
	if _, err := d.completed(3); !errors.Is(err, fault) {
		t.Errorf("Expected the access error on completion, got %v", err)
	}
}

func TestDrainWait(t *testing.T) {
	tests := []struct {
		baud int
		want time.Duration
	}{
		{1200, 2 * uart8250.CharTime(1200)},
		{9600, 2 * uart8250.CharTime(9600)},
		{19200, 2 * uart8250.CharTime(19200)},
		{38400, minDrainWait},
		{115200, minDrainWait},
	}

	for _, tt := range tests {
		if got := drainWait(tt.baud); got != tt.want {
			t.Errorf("drainWait(%d) = %v, want %v", tt.baud, got, tt.want)
		}
	}
}

func TestTransmitEmptyFeedsBytes(t *testing.T) {
	sim := uartsim.New(testPort, uartsim.WithCharTime(time.Hour))
	d := newBareDevice(t, sim)

	if err := d.tx.load([]byte("xyz")); err != nil {
		t.Fatal(err)
	}
	d.transmitting = true
	sim.OutB(d.regs.MCR, uart8250.McrOut2|uart8250.McrDTR|uart8250.McrRTS)
	d.touch()
	before := d.lastActivity.Load()

	time.Sleep(time.Millisecond)
	d.transmitEmpty()

	if d.tx.remaining != 2 {
		t.Errorf("Expected 2 bytes left after one THRE, got %d", d.tx.remaining)
	}
	if !sim.RTS() {
		t.Error("Expected RTS held while bytes remain")
	}
	if d.lastActivity.Load() == before {
		t.Error("Expected a serviced THRE to update the activity time")
	}
}

func TestTurnaround(t *testing.T) {
	sim := uartsim.New(testPort)
	d := newBareDevice(t, sim)

	d.transmitting = true
	sim.OutB(d.regs.MCR, uart8250.McrOut2|uart8250.McrDTR|uart8250.McrRTS)
	d.rx.append(0x11)
	d.rx.append(0x22)

	d.transmitEmpty()

	if sim.RTS() {
		t.Error("Expected RTS released at turnaround")
	}
	if snap := sim.Snapshot(); snap.MCR != uart8250.McrOut2|uart8250.McrDTR {
		t.Errorf("Expected only RTS cleared, MCR 0x%02X", snap.MCR)
	}
	if d.rx.remaining != 0 {
		t.Errorf("Expected receive buffer reset, got %d bytes", d.rx.remaining)
	}
	if d.transmitting {
		t.Error("Expected burst finished")
	}
	if len(d.dpcCh) != 1 {
		t.Error("Expected a completion request")
	}
	if d.drainTimeouts.Load() != 0 {
		t.Errorf("Expected an idle transmitter to drain at once, got %d timeouts", d.drainTimeouts.Load())
	}

	// A second THRE after turnaround is spurious: no second reset or
	// completion request.
	d.rx.append(0x33)
	d.transmitEmpty()
	if d.rx.remaining != 1 {
		t.Errorf("Expected the receive buffer reset once per burst, got %d bytes", d.rx.remaining)
	}
	if d.spuriousTransmitEmpty.Load() != 1 {
		t.Errorf("Expected 1 spurious THRE, got %d", d.spuriousTransmitEmpty.Load())
	}
}

func TestDPCSignalsCompletion(t *testing.T) {
	sim := uartsim.New(testPort)
	d := newBareDevice(t, sim)

	d.dpcWG.Add(1)
	go d.runDPC()
	defer func() {
		close(d.closing)
		d.dpcWG.Wait()
	}()

	d.requestCompletion()
	d.requestCompletion()

	select {
	case <-d.done.done():
	case <-time.After(2 * time.Second):
		t.Fatal("Expected completion to be signaled")
	}
}
