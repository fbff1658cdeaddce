package uart8250

import (
	"testing"
	"time"
)

func TestDivisor(t *testing.T) {
	tests := []struct {
		rate        int
		wantDivisor byte
		wantRate    int
	}{
		{1200, 0x60, 1200},
		{2400, 0x30, 2400},
		{4800, 0x18, 4800},
		{9600, 0x0C, 9600},
		{19200, 0x06, 19200},
		{38400, 0x03, 38400},
		{57600, 0x02, 57600},
		{115200, 0x01, 115200},
		{0, 0x06, 19200},
		{14400, 0x06, 19200},
		{230400, 0x06, 19200},
	}

	for _, tt := range tests {
		d, rate := Divisor(tt.rate)
		if d != tt.wantDivisor || rate != tt.wantRate {
			t.Errorf("Divisor(%d) = (0x%02X, %d), want (0x%02X, %d)", tt.rate, d, rate, tt.wantDivisor, tt.wantRate)
		}
	}
}

func TestBaudFromDivisorRoundTrip(t *testing.T) {
	for _, rate := range SupportedBaudRates() {
		d, _ := Divisor(rate)
		if got := BaudFromDivisor(uint16(d)); got != rate {
			t.Errorf("BaudFromDivisor(0x%02X) = %d, want %d", d, got, rate)
		}
	}
	if got := BaudFromDivisor(0); got != 0 {
		t.Errorf("BaudFromDivisor(0) = %d, want 0", got)
	}
}

func TestCharTime(t *testing.T) {
	tests := []struct {
		baud int
		want time.Duration
	}{
		{1200, 8333333 * time.Nanosecond},
		{19200, 520833 * time.Nanosecond},
		{115200, 86805 * time.Nanosecond},
		{0, 520833 * time.Nanosecond},
	}

	for _, tt := range tests {
		if got := CharTime(tt.baud); got != tt.want {
			t.Errorf("CharTime(%d) = %v, want %v", tt.baud, got, tt.want)
		}
	}
}

func TestNewRegisterMap(t *testing.T) {
	m := NewRegisterMap(0x2F8)

	expected := map[string][2]uint16{
		"RBR": {m.RBR, 0x2F8},
		"THR": {m.THR, 0x2F8},
		"DLL": {m.DLL, 0x2F8},
		"IER": {m.IER, 0x2F9},
		"IIR": {m.IIR, 0x2FA},
		"LCR": {m.LCR, 0x2FB},
		"MCR": {m.MCR, 0x2FC},
		"LSR": {m.LSR, 0x2FD},
		"MSR": {m.MSR, 0x2FE},
	}
	for name, pair := range expected {
		if pair[0] != pair[1] {
			t.Errorf("%s = 0x%X, want 0x%X", name, pair[0], pair[1])
		}
	}
}
