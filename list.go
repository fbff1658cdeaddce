package rs485

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// sysfsTTYDir is where the kernel publishes tty devices
var sysfsTTYDir = "/sys/class/tty"

var uartNamePattern = regexp.MustCompile(`^ttyS(\d+)$`)

// PortInfo describes a legacy UART known to the kernel
type PortInfo struct {
	Name        string
	Path        string
	PortAddress uint16
	IRQ         int
	Type        int
	Description string
}

// ListUARTs returns the ttyS ports that have I/O resources assigned, in
// numeric order
func ListUARTs() ([]PortInfo, error) {
	entries, err := os.ReadDir(sysfsTTYDir)
	if err != nil {
		return nil, err
	}

	var ports []PortInfo
	for _, entry := range entries {
		if !uartNamePattern.MatchString(entry.Name()) {
			continue
		}
		info, err := ResolvePort(entry.Name())
		if err != nil {
			// Placeholder ttyS entries without hardware
			continue
		}
		ports = append(ports, *info)
	}

	sort.Slice(ports, func(i, j int) bool {
		return portIndex(ports[i].Name) < portIndex(ports[j].Name)
	})
	return ports, nil
}

func portIndex(name string) int {
	m := uartNamePattern.FindStringSubmatch(name)
	if m == nil {
		return -1
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

// ResolvePort maps "ttyS1" or "/dev/ttyS1" to its port address and IRQ
func ResolvePort(name string) (*PortInfo, error) {
	base := filepath.Base(name)
	if !uartNamePattern.MatchString(base) {
		return nil, fmt.Errorf("%w: %s is not a legacy UART", ErrDeviceNotFound, name)
	}
	dir := filepath.Join(sysfsTTYDir, base)

	portStr, err := readSysfs(dir, "port")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, name)
		}
		return nil, err
	}
	addr, err := strconv.ParseUint(portStr, 0, 16)
	if err != nil {
		return nil, fmt.Errorf("invalid port for %s: %w", name, err)
	}
	if addr == 0 {
		return nil, fmt.Errorf("%w: %s has no I/O port", ErrDeviceNotFound, name)
	}

	info := &PortInfo{
		Name:        base,
		Path:        filepath.Join("/dev", base),
		PortAddress: uint16(addr),
	}

	if s, err := readSysfs(dir, "irq"); err == nil {
		info.IRQ, _ = strconv.Atoi(s)
	}
	if s, err := readSysfs(dir, "type"); err == nil {
		info.Type, _ = strconv.Atoi(s)
	}
	info.Description = getUARTDescription(info.Type)

	return info, nil
}

func readSysfs(dir, attr string) (string, error) {
	b, err := os.ReadFile(filepath.Join(dir, attr))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

// getUARTDescription names the serial_core port type
func getUARTDescription(portType int) string {
	switch portType {
	case 1:
		return "8250"
	case 2:
		return "16450"
	case 3:
		return "16550"
	case 4:
		return "16550A"
	case 5:
		return "Cirrus"
	case 6:
		return "16650"
	case 7:
		return "16650V2"
	case 8:
		return "16750"
	case 9:
		return "Startech"
	case 10:
		return "16C950/954"
	default:
		return "Unknown UART"
	}
}
