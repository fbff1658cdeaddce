package rs485

import (
	"github.com/allbin/go-rs485/internal/uart8250"
)

// configureUART programs the divisor, 8N1 framing, the transceiver supply
// and the interrupt sources. It returns the baud rate actually selected.
//
// DLL shares its port with the data registers, so DLAB brackets the
// divisor write.
func configureUART(ports uart8250.PortIO, regs uart8250.RegisterMap, baud int) int {
	divisor, effective := uart8250.Divisor(baud)

	ports.OutB(regs.LCR, ports.InB(regs.LCR)|uart8250.LcrDLAB)
	ports.OutB(regs.DLL, divisor)
	ports.OutB(regs.LCR, ports.InB(regs.LCR)&^uart8250.LcrDLAB)

	ports.OutB(regs.LCR, uart8250.LcrWordLen8|uart8250.LcrStop1|uart8250.LcrNoParity)

	// OUT2 gates the UART's interrupt output onto the bus and DTR powers
	// the transceiver. RTS stays low: receive mode.
	ports.OutB(regs.MCR, uart8250.McrOut2|uart8250.McrDTR)
	ports.OutB(regs.IER, uart8250.IerRXReady|uart8250.IerTXEmpty|uart8250.IerLineStatus)

	return effective
}

// shutdownUART masks every interrupt source and drops all modem outputs.
func shutdownUART(ports uart8250.PortIO, regs uart8250.RegisterMap) {
	ports.OutB(regs.IER, 0)
	ports.OutB(regs.MCR, 0)
}

// probeUART checks that something answers at the base address. An
// undecoded ISA port reads 0xFF, which no 8250 returns from IIR (bits 4-5
// are always zero) or LSR (bit 7 is zero outside FIFO mode).
func probeUART(ports uart8250.PortIO, regs uart8250.RegisterMap) bool {
	return ports.InB(regs.IIR) != 0xFF && ports.InB(regs.LSR) != 0xFF
}
