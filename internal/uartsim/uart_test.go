package uartsim

import (
	"sync"
	"testing"
	"time"

	"github.com/allbin/go-rs485/internal/uart8250"
)

const testBase = 0x2F8

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s", what)
}

func TestUnmappedPortsFloat(t *testing.T) {
	u := New(testBase)

	if got := u.InB(0x3F8 + uart8250.OffsetSCR); got != 0xFF {
		t.Errorf("Expected 0xFF from unmapped port, got 0x%02X", got)
	}

	u.OutB(testBase+uart8250.OffsetSCR, 0x5A)
	if got := u.InB(testBase + uart8250.OffsetSCR); got != 0x5A {
		t.Errorf("Expected scratch register to hold 0x5A, got 0x%02X", got)
	}
}

func TestDivisorLatchOverlay(t *testing.T) {
	u := New(testBase)
	regs := uart8250.NewRegisterMap(testBase)

	u.OutB(regs.LCR, uart8250.LcrDLAB)
	u.OutB(regs.DLL, 0x0C)
	u.OutB(regs.IER, 0x00)
	u.OutB(regs.LCR, uart8250.LcrWordLen8)
	u.OutB(regs.IER, uart8250.IerRXReady)

	snap := u.Snapshot()
	if snap.Divisor != 0x0C {
		t.Errorf("Expected divisor 0x0C, got 0x%04X", snap.Divisor)
	}
	if snap.IER != uart8250.IerRXReady {
		t.Errorf("Expected IER 0x01, got 0x%02X", snap.IER)
	}
	if len(u.Transmitted()) != 0 {
		t.Error("Expected divisor write not to transmit")
	}
}

func TestInterruptPriority(t *testing.T) {
	u := New(testBase)
	regs := uart8250.NewRegisterMap(testBase)
	u.OutB(regs.IER, uart8250.IerRXReady|uart8250.IerTXEmpty|uart8250.IerLineStatus|uart8250.IerModem)

	// Enabling the transmit interrupt with an empty holding register
	// reports it once.
	if got := u.InB(regs.IIR); got != uart8250.IirTXEmpty {
		t.Errorf("Expected THRE identification, got 0x%02X", got)
	}
	if got := u.InB(regs.IIR); got != uart8250.IirNoPending {
		t.Errorf("Expected no pending interrupt after IIR read, got 0x%02X", got)
	}

	u.SetModemStatus(uart8250.MsrCTS)
	u.Inject(0x41)
	u.InjectLineError(uart8250.LsrParity)

	steps := []struct {
		name  string
		want  byte
		clear func()
	}{
		{"line status", uart8250.IirLineStatus, func() { u.InB(regs.LSR) }},
		{"receive", uart8250.IirRXReady, func() { u.InB(regs.RBR) }},
		{"modem status", uart8250.IirModemStatus, func() { u.InB(regs.MSR) }},
		{"none", uart8250.IirNoPending, func() {}},
	}
	for _, step := range steps {
		t.Run(step.name, func(t *testing.T) {
			if got := u.InB(regs.IIR) & uart8250.IirMask; got != step.want {
				t.Errorf("Expected IIR 0x%02X, got 0x%02X", step.want, got)
			}
			step.clear()
		})
	}
}

func TestTransmitterTiming(t *testing.T) {
	u := New(testBase, WithCharTime(20*time.Millisecond))
	regs := uart8250.NewRegisterMap(testBase)

	u.OutB(regs.MCR, uart8250.McrRTS)
	u.OutB(regs.THR, 'a')

	lsr := u.InB(regs.LSR)
	if lsr&uart8250.LsrTHRE == 0 {
		t.Error("Expected holding register empty after first byte moved to shifter")
	}
	if lsr&uart8250.LsrTEMT != 0 {
		t.Error("Expected shifter busy right after a write")
	}

	u.OutB(regs.THR, 'b')
	if u.InB(regs.LSR)&uart8250.LsrTHRE != 0 {
		t.Error("Expected holding register full with a second byte queued")
	}

	waitFor(t, "transmitter drain", func() bool {
		return u.InB(regs.LSR)&uart8250.LsrDrained == uart8250.LsrDrained
	})

	tx := u.Transmitted()
	if len(tx) != 2 || tx[0].Value != 'a' || tx[1].Value != 'b' {
		t.Fatalf("Expected \"ab\" on the wire, got %v", tx)
	}
	for i, b := range tx {
		if !b.RTS {
			t.Errorf("Expected RTS asserted for byte %d", i)
		}
	}
}

func TestStuckShiftRegister(t *testing.T) {
	u := New(testBase, WithCharTime(10*time.Microsecond), WithStuckShiftRegister())
	regs := uart8250.NewRegisterMap(testBase)

	u.OutB(regs.THR, 0x01)
	waitFor(t, "byte on the wire", func() bool { return len(u.Transmitted()) == 1 })

	if u.InB(regs.LSR)&uart8250.LsrTEMT != 0 {
		t.Error("Expected TEMT to stay clear")
	}
}

func TestLineErrorClearsOnRead(t *testing.T) {
	u := New(testBase)
	regs := uart8250.NewRegisterMap(testBase)

	u.InjectLineError(uart8250.LsrOverrun | uart8250.LsrFraming)
	if got := u.InB(regs.LSR) & uart8250.LsrErrors; got != uart8250.LsrOverrun|uart8250.LsrFraming {
		t.Errorf("Expected overrun|framing, got 0x%02X", got)
	}
	if got := u.InB(regs.LSR) & uart8250.LsrErrors; got != 0 {
		t.Errorf("Expected errors cleared by the first read, got 0x%02X", got)
	}
}

func TestInterruptLineGatedByOut2(t *testing.T) {
	u := New(testBase)
	regs := uart8250.NewRegisterMap(testBase)

	var mu sync.Mutex
	var received []byte
	isr := func() {
		mu.Lock()
		defer mu.Unlock()
		for u.InB(regs.IIR)&uart8250.IirMask == uart8250.IirRXReady {
			received = append(received, u.InB(regs.RBR))
		}
	}
	if err := u.Connect(isr); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer u.Disconnect()

	if err := u.Connect(isr); err != ErrAlreadyConnected {
		t.Errorf("Expected ErrAlreadyConnected, got %v", err)
	}

	u.OutB(regs.IER, uart8250.IerRXReady)
	u.Inject(0x10)
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	if len(received) != 0 {
		t.Errorf("Expected no delivery with OUT2 low, got %v", received)
	}
	mu.Unlock()

	u.OutB(regs.MCR, uart8250.McrOut2)
	waitFor(t, "interrupt delivery", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	})

	u.Inject(0x11, 0x12)
	waitFor(t, "second delivery", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 3
	})

	mu.Lock()
	defer mu.Unlock()
	want := []byte{0x10, 0x11, 0x12}
	for i := range want {
		if received[i] != want[i] {
			t.Errorf("Expected byte %d to be 0x%02X, got 0x%02X", i, want[i], received[i])
		}
	}
}

func TestResponderAnswersAfterRelease(t *testing.T) {
	responder := func(req []byte) []byte {
		return append([]byte("ack:"), req...)
	}
	u := New(testBase, WithCharTime(10*time.Microsecond), WithResponder(responder, time.Millisecond))
	regs := uart8250.NewRegisterMap(testBase)

	u.OutB(regs.MCR, uart8250.McrRTS)
	u.OutB(regs.THR, 'x')
	waitFor(t, "drain", func() bool {
		return u.InB(regs.LSR)&uart8250.LsrTEMT != 0
	})
	u.OutB(regs.MCR, 0)

	waitFor(t, "reply", func() bool {
		return u.InB(regs.LSR)&uart8250.LsrDataReady != 0
	})

	var got []byte
	for u.InB(regs.LSR)&uart8250.LsrDataReady != 0 {
		got = append(got, u.InB(regs.RBR))
	}
	if string(got) != "ack:x" {
		t.Errorf("Expected \"ack:x\", got %q", got)
	}
}
