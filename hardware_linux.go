package rs485

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/allbin/go-rs485/internal/portio"
)

// DevPortPath is the I/O port device used when no Hardware is supplied.
var DevPortPath = portio.DefaultDevPort

// devPortHardware reaches a real UART through /dev/port. User space cannot
// take the IRQ, so the interrupt line is polled.
type devPortHardware struct {
	*portio.DevPort
	*portio.PollingLine
}

func openHardware(config Config) (Hardware, error) {
	line, err := portio.NewPollingLine(config.PollInterval)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	ports, err := portio.OpenDevPort(DevPortPath)
	switch {
	case errors.Is(err, fs.ErrPermission):
		return nil, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("%w: %v", ErrDeviceNotFound, err)
	case err != nil:
		return nil, err
	}

	return &devPortHardware{DevPort: ports, PollingLine: line}, nil
}
