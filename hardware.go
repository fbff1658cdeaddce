package rs485

// Hardware is the UART as the engine sees it: byte access to the I/O port
// space plus the interrupt line the UART is wired to.
//
// Connect attaches isr; the implementation calls it from a single goroutine,
// never concurrently with itself, whenever the UART may have a pending
// source. Disconnect detaches it and returns once no call is in progress.
// If the value also implements io.Closer and Open created it, Close is
// called when the device closes.
type Hardware interface {
	InB(port uint16) byte
	OutB(port uint16, value byte)
	Connect(isr func()) error
	Disconnect() error
}
