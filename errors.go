package rs485

import "errors"

// Predefined error types for robust error handling
var (
	ErrDeviceNotFound   = errors.New("rs485 device not found")
	ErrPermissionDenied = errors.New("permission denied accessing I/O ports")
	ErrDeviceInUse      = errors.New("rs485 device already in use")
	ErrHardwareAbsent   = errors.New("no UART responding at port address")
	ErrInvalidConfig    = errors.New("invalid rs485 configuration")
	ErrDeviceClosed     = errors.New("rs485 device is closed")
	ErrHardwareAccess   = errors.New("I/O port access failed")

	// Request errors
	ErrBufferCapacity   = errors.New("write length exceeds buffer capacity")
	ErrInvalidParameter = errors.New("invalid control code")
	ErrNotImplemented   = errors.New("operation not implemented")
	ErrWriteTimeout     = errors.New("write operation timed out")
	ErrDrainTimeout     = errors.New("line released before the transmitter drained")
)
