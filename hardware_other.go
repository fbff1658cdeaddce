//go:build !linux

package rs485

import "fmt"

func openHardware(config Config) (Hardware, error) {
	return nil, fmt.Errorf("%w: port I/O needs Linux /dev/port, use WithHardware", ErrNotImplemented)
}
