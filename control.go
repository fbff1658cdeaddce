package rs485

import (
	"encoding/binary"
	"fmt"
	"time"
)

// ControlCode identifies a device query. The values match the driver's
// published I/O control codes (device type 0x9000, function 0x900+n).
type ControlCode uint32

const (
	ControlHello           ControlCode = 0x90002400
	ControlGetReceiveCount ControlCode = 0x90002404 // uint32, little endian
	ControlGetElapsedMs    ControlCode = 0x90002408 // int64 milliseconds, little endian
)

func (c ControlCode) String() string {
	switch c {
	case ControlHello:
		return "hello"
	case ControlGetReceiveCount:
		return "get-receive-count"
	case ControlGetElapsedMs:
		return "get-elapsed-ms"
	default:
		return fmt.Sprintf("ControlCode(0x%08X)", uint32(c))
	}
}

// ParseControlCode accepts a query name as printed by String.
func ParseControlCode(name string) (ControlCode, error) {
	for _, c := range []ControlCode{ControlHello, ControlGetReceiveCount, ControlGetElapsedMs} {
		if c.String() == name {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidParameter, name)
}

// Control writes the answer to code into out and returns its length. An
// out too small for the answer yields zero bytes and no error.
func (d *device) Control(code ControlCode, out []byte) (int, error) {
	if d.closed.Load() {
		return 0, ErrDeviceClosed
	}

	switch code {
	case ControlHello:
		d.logger.Debug("hello")
		return 0, nil

	case ControlGetReceiveCount:
		if len(out) < 4 {
			return 0, nil
		}
		d.irql.Lock()
		count := d.rx.remaining
		d.irql.Unlock()
		binary.LittleEndian.PutUint32(out, uint32(count))
		return 4, nil

	case ControlGetElapsedMs:
		if len(out) < 8 {
			return 0, nil
		}
		binary.LittleEndian.PutUint64(out, uint64(d.sinceLastActivity().Milliseconds()))
		return 8, nil
	}

	return 0, fmt.Errorf("%w: 0x%08X", ErrInvalidParameter, uint32(code))
}

// ReceiveCount returns the number of bytes waiting in the receive buffer
func (d *device) ReceiveCount() (int, error) {
	if d.closed.Load() {
		return 0, ErrDeviceClosed
	}

	d.irql.Lock()
	defer d.irql.Unlock()
	return d.rx.remaining, nil
}

// SinceLastActivity returns the time since a byte was last received or fed
// to the transmitter
func (d *device) SinceLastActivity() (time.Duration, error) {
	if d.closed.Load() {
		return 0, ErrDeviceClosed
	}
	return d.sinceLastActivity(), nil
}

// sinceLastActivity never goes negative, even if the wall clock steps back.
func (d *device) sinceLastActivity() time.Duration {
	return max(d.now().Sub(time.Unix(0, d.lastActivity.Load())), 0)
}
