// Package uart8250 describes the register file of an 8250/16450/16550 UART as
// seen from the ISA I/O port space.
package uart8250

// PortIO performs single-byte accesses in the I/O port space. Implementations
// must be safe for use from the interrupt goroutine and a caller goroutine at
// the same time.
type PortIO interface {
	InB(port uint16) byte
	OutB(port uint16, value byte)
}

// Register offsets from the base port address.
const (
	OffsetRBR = 0 // receiver buffer (read, DLAB=0)
	OffsetTHR = 0 // transmitter holding (write, DLAB=0)
	OffsetDLL = 0 // divisor latch low (DLAB=1)
	OffsetIER = 1
	OffsetDLM = 1 // divisor latch high (DLAB=1)
	OffsetIIR = 2
	OffsetLCR = 3
	OffsetMCR = 4
	OffsetLSR = 5
	OffsetMSR = 6
	OffsetSCR = 7

	// PortRange is the number of consecutive ports a UART decodes.
	PortRange = 8
)

// Interrupt enable register bits.
const (
	IerRXReady    = 0x01
	IerTXEmpty    = 0x02
	IerLineStatus = 0x04
	IerModem      = 0x08
)

// Interrupt identification register values, highest priority first.
const (
	IirMask        = 0x07
	IirLineStatus  = 0x06
	IirRXReady     = 0x04
	IirTXEmpty     = 0x02
	IirModemStatus = 0x00
	IirNoPending   = 0x01
)

// Line control register bits.
const (
	LcrWordLen5 = 0x00
	LcrWordLen6 = 0x01
	LcrWordLen7 = 0x02
	LcrWordLen8 = 0x03
	LcrStop1    = 0x00
	LcrStop2    = 0x04
	LcrNoParity = 0x00
	LcrOdd      = 0x08
	LcrEven     = 0x18
	LcrBreak    = 0x40
	LcrDLAB     = 0x80
)

// Modem control register bits.
const (
	McrDTR      = 0x01
	McrRTS      = 0x02
	McrOut1     = 0x04
	McrOut2     = 0x08
	McrLoopback = 0x10
)

// Line status register bits.
const (
	LsrDataReady = 0x01
	LsrOverrun   = 0x02
	LsrParity    = 0x04
	LsrFraming   = 0x08
	LsrBreak     = 0x10
	LsrTHRE      = 0x20
	LsrTEMT      = 0x40

	// LsrErrors is every receive error condition that raises a line status
	// interrupt.
	LsrErrors = LsrOverrun | LsrParity | LsrFraming | LsrBreak
	// LsrDrained means both the holding and the shift register are empty.
	LsrDrained = LsrTHRE | LsrTEMT
)

// Modem status register bits.
const (
	MsrDeltaCTS = 0x01
	MsrDeltaDSR = 0x02
	MsrTrailRI  = 0x04
	MsrDeltaDCD = 0x08
	MsrCTS      = 0x10
	MsrDSR      = 0x20
	MsrRI       = 0x40
	MsrDCD      = 0x80

	MsrDeltas = MsrDeltaCTS | MsrDeltaDSR | MsrTrailRI | MsrDeltaDCD
)

// RegisterMap holds the absolute port of every UART register.
type RegisterMap struct {
	Base uint16
	RBR  uint16
	THR  uint16
	IER  uint16
	IIR  uint16
	LCR  uint16
	MCR  uint16
	LSR  uint16
	MSR  uint16
	DLL  uint16
}

// NewRegisterMap derives all register ports from a base address.
func NewRegisterMap(base uint16) RegisterMap {
	return RegisterMap{
		Base: base,
		RBR:  base + OffsetRBR,
		THR:  base + OffsetTHR,
		IER:  base + OffsetIER,
		IIR:  base + OffsetIIR,
		LCR:  base + OffsetLCR,
		MCR:  base + OffsetMCR,
		LSR:  base + OffsetLSR,
		MSR:  base + OffsetMSR,
		DLL:  base + OffsetDLL,
	}
}
