// Package rs485 drives a half-duplex RS-485 transceiver attached to a legacy
// 8250-family UART.
//
// The UART is programmed directly through its I/O ports. RTS selects the
// transceiver direction: it is raised for the duration of each transmission
// and dropped once the last bit has left the shift register, which is the
// moment the line turns around and the remote node may answer. Writes are
// therefore synchronous: Write returns only after the turnaround.
//
// # Basic Usage
//
// Open an adapter with default configuration (COM2, 19200 8N1, 2048 byte
// buffers):
//
//	dev, err := rs485.Open("ttyS1")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer dev.Close()
//
//	// Request, then collect the reply
//	_, err = dev.Write([]byte("This is a test!"))
//	time.Sleep(50 * time.Millisecond)
//	reply := make([]byte, 50)
//	n, err := dev.Read(reply)
//
// Read never blocks. It returns what arrived since the last turnaround or
// Read and empties the receive buffer; a Write discards anything received
// before it.
//
// # Configuration Options
//
//	dev, err := rs485.Open("",
//	    rs485.WithPortAddress(0x3F8),
//	    rs485.WithIRQLine(4),
//	    rs485.WithBaudRate(9600),
//	    rs485.WithBufferSize(4096),
//	    rs485.WithWriteTimeout(time.Second),
//	    rs485.WithLogger(log.Default()),
//	)
//
// Rates without a divisor entry fall back to 19200. Port names are resolved
// through sysfs unless both the port address and IRQ are given.
//
// # Device Queries
//
// Control answers the fixed set of queries the adapter has always supported:
//
//	out := make([]byte, 8)
//	n, err := dev.Control(rs485.ControlGetReceiveCount, out) // uint32 LE
//	n, err = dev.Control(rs485.ControlGetElapsedMs, out)     // int64 LE
//
// # Hardware Access
//
// On Linux the UART is reached through /dev/port, which needs CAP_SYS_RAWIO.
// User space cannot take the interrupt, so the interrupt line is polled at
// Config.PollInterval. WithHardware substitutes any other register space and
// interrupt source.
//
// # Error Handling
//
// Errors are sentinels usable with errors.Is:
//
//	if errors.Is(err, rs485.ErrDeviceInUse) {
//	    // another Device already owns this port address
//	}
package rs485
