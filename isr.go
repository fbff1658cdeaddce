package rs485

import (
	"time"

	"github.com/allbin/go-rs485/internal/uart8250"
)

// passLimit bounds one interrupt pass against a UART that never reports
// idle.
const passLimit = 512

// minDrainWait is the shortest the drain poll keeps going, whatever the
// baud rate.
const minDrainWait = time.Millisecond

// drainWait is how long the drain poll keeps going once DrainPollLimit reads
// are spent: two characters at baud, at least minDrainWait.
func drainWait(baud int) time.Duration {
	return max(2*uart8250.CharTime(baud), minDrainWait)
}

// serviceInterrupt drains every pending UART source, highest priority
// first. The line is latched, so a source left pending is not raised again.
//
// It runs on the interrupt line's goroutine with irql held and must not
// block, log or allocate. The only wait is the bounded drain poll before
// releasing the direction line.
func (d *device) serviceInterrupt() {
	d.irql.Lock()
	defer d.irql.Unlock()

	serviced := false
	for pass := 0; pass < passLimit; pass++ {
		id := d.hw.InB(d.regs.IIR) & uart8250.IirMask
		if id == uart8250.IirNoPending {
			break
		}
		serviced = true

		switch id {
		case uart8250.IirLineStatus:
			// Reading LSR clears the error
			d.hw.InB(d.regs.LSR)
			d.receiveErrors.Add(1)

		case uart8250.IirRXReady:
			c := d.hw.InB(d.regs.RBR)
			if !d.rx.append(c) {
				d.droppedBytes.Add(1)
			}
			d.touch()

		case uart8250.IirTXEmpty:
			d.transmitEmpty()

		case uart8250.IirModemStatus:
			d.hw.InB(d.regs.MSR)
			d.modemStatusChanges.Add(1)

		default:
			// Not an 8250 identification; nothing can clear it
			pass = passLimit
			if d.transmitting && d.hardwareErr() != nil {
				d.failBurst()
			}
		}
	}

	if serviced {
		d.interrupts.Add(1)
	}
}

// transmitEmpty feeds the next byte, or turns the line around once the
// buffer is exhausted.
func (d *device) transmitEmpty() {
	if !d.transmitting {
		// Raised when the source is first enabled, or left over from an
		// abandoned burst
		d.spuriousTransmitEmpty.Add(1)
		return
	}
	d.touch()

	if d.tx.remaining > 0 {
		d.hw.OutB(d.regs.THR, d.tx.takeByte())
		return
	}

	// The holding register is empty but the last byte may still be in the
	// shift register; dropping RTS now would truncate it on the bus.
	d.drainFailed = !d.drainTransmitter()
	d.hw.OutB(d.regs.MCR, d.hw.InB(d.regs.MCR)&^uart8250.McrRTS)
	d.transmitting = false

	d.rx.reset()
	d.requestCompletion()
}

// failBurst gives up on a burst the UART can no longer be reached for. The
// waiting Write picks the access error up on completion.
func (d *device) failBurst() {
	d.tx.reset()
	d.hw.OutB(d.regs.MCR, d.hw.InB(d.regs.MCR)&^uart8250.McrRTS)
	d.transmitting = false
	d.requestCompletion()
}

// drainTransmitter polls LSR until holding and shift register are both
// empty. It gives up once DrainPollLimit reads are spent and drainWait has
// passed after that, so a short limit cannot cut the last character.
func (d *device) drainTransmitter() bool {
	var deadline time.Time
	for i := 0; ; i++ {
		lsr := d.hw.InB(d.regs.LSR)
		if lsr&uart8250.LsrErrors != 0 {
			d.receiveErrors.Add(1)
		}
		if lsr&uart8250.LsrDrained == uart8250.LsrDrained {
			return true
		}
		if i < d.config.DrainPollLimit {
			continue
		}
		now := d.now()
		if deadline.IsZero() {
			deadline = now.Add(d.drainWait)
		} else if !now.Before(deadline) {
			break
		}
	}
	d.drainTimeouts.Add(1)
	return false
}

// requestCompletion queues the deferred completion. Requests made before
// the handler runs collapse into one.
func (d *device) requestCompletion() {
	select {
	case d.dpcCh <- struct{}{}:
	default:
	}
}

// runDPC is the deferred completion handler. It runs outside the interrupt
// pass and only signals the waiting Write.
func (d *device) runDPC() {
	defer d.dpcWG.Done()

	var seenTimeouts uint64
	for {
		select {
		case <-d.closing:
			return
		case <-d.dpcCh:
			d.done.set()
			if n := d.drainTimeouts.Load(); n != seenTimeouts {
				d.logger.Warn("transmitter did not drain, line released anyway", "drain_timeouts", n)
				seenTimeouts = n
			}
			d.logger.Debug("transmit complete")
		}
	}
}
