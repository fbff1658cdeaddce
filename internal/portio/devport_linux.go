//go:build linux

// Package portio gives user space access to ISA I/O ports and a stand-in
// for the interrupt line of a legacy UART.
package portio

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/allbin/go-rs485/internal/uart8250"
)

// DefaultDevPort is the kernel's byte-addressed view of the I/O space.
const DefaultDevPort = "/dev/port"

// DevPort performs port I/O through pread/pwrite on /dev/port, where the file
// offset is the port number. Opening it needs CAP_SYS_RAWIO.
//
// InB and OutB cannot return errors; the first failure is kept and reported
// by Err. A failed InB reads as 0xFF, like an undecoded port.
type DevPort struct {
	fd int

	mu  sync.Mutex
	err error
}

var _ uart8250.PortIO = (*DevPort)(nil)

// OpenDevPort opens path (normally DefaultDevPort) for reading and writing.
// The returned error wraps the errno so callers can test for fs.ErrPermission
// and fs.ErrNotExist.
func OpenDevPort(path string) (*DevPort, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return &DevPort{fd: fd}, nil
}

// InB reads one byte from port.
func (d *DevPort) InB(port uint16) byte {
	var b [1]byte
	n, err := unix.Pread(d.fd, b[:], int64(port))
	if err == nil && n != 1 {
		err = unix.EIO
	}
	if err != nil {
		d.fail(fmt.Errorf("inb 0x%04X: %w", port, err))
		return 0xFF
	}
	return b[0]
}

// OutB writes one byte to port.
func (d *DevPort) OutB(port uint16, value byte) {
	b := [1]byte{value}
	n, err := unix.Pwrite(d.fd, b[:], int64(port))
	if err == nil && n != 1 {
		err = unix.EIO
	}
	if err != nil {
		d.fail(fmt.Errorf("outb 0x%04X: %w", port, err))
	}
}

func (d *DevPort) fail(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err == nil {
		d.err = err
	}
}

// Err returns the first access error, if any.
func (d *DevPort) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

// Close releases the file descriptor.
func (d *DevPort) Close() error {
	return unix.Close(d.fd)
}
