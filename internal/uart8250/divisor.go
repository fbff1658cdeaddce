package uart8250

import "time"

// ReferenceClock is the 1.8432 MHz crystal of a PC serial adapter; the
// divisor is ReferenceClock / (16 * baud).
const ReferenceClock = 1843200

// DefaultBaudRate is used for any rate without an entry in the divisor table.
const DefaultBaudRate = 19200

var divisors = map[int]byte{
	1200:   0x60,
	2400:   0x30,
	4800:   0x18,
	9600:   0x0C,
	19200:  0x06,
	38400:  0x03,
	57600:  0x02,
	115200: 0x01,
}

// Divisor returns the divisor latch value for rate and the rate it actually
// selects. Unsupported rates silently select DefaultBaudRate.
func Divisor(rate int) (byte, int) {
	if d, ok := divisors[rate]; ok {
		return d, rate
	}
	return divisors[DefaultBaudRate], DefaultBaudRate
}

// BaudFromDivisor is the inverse of Divisor. A zero divisor yields zero.
func BaudFromDivisor(divisor uint16) int {
	if divisor == 0 {
		return 0
	}
	return ReferenceClock / (16 * int(divisor))
}

// CharTime is how long one 8N1 character, start and stop bit included,
// occupies the line at baud.
func CharTime(baud int) time.Duration {
	if baud <= 0 {
		baud = DefaultBaudRate
	}
	return 10 * time.Second / time.Duration(baud)
}

// SupportedBaudRates lists the rates with a dedicated divisor, ascending.
func SupportedBaudRates() []int {
	return []int{1200, 2400, 4800, 9600, 19200, 38400, 57600, 115200}
}
