package rs485

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// fakeSysfs builds a /sys/class/tty lookalike and points the package at it
func fakeSysfs(t *testing.T, ports map[string][3]string) {
	t.Helper()

	dir := t.TempDir()
	for name, attrs := range ports {
		p := filepath.Join(dir, name)
		if err := os.MkdirAll(p, 0o755); err != nil {
			t.Fatal(err)
		}
		for i, attr := range []string{"port", "irq", "type"} {
			if attrs[i] == "" {
				continue
			}
			if err := os.WriteFile(filepath.Join(p, attr), []byte(attrs[i]+"\n"), 0o644); err != nil {
				t.Fatal(err)
			}
		}
	}

	old := sysfsTTYDir
	sysfsTTYDir = dir
	t.Cleanup(func() { sysfsTTYDir = old })
}

func TestListUARTs(t *testing.T) {
	fakeSysfs(t, map[string][3]string{
		"ttyS0":   {"0x3F8", "4", "4"},
		"ttyS1":   {"0x2F8", "3", "4"},
		"ttyS10":  {"0x3E8", "4", "1"},
		"ttyS2":   {"0x0", "0", "0"}, // no hardware
		"tty1":    {"0x0", "0", "0"},
		"ttyUSB0": {"0x0", "0", "0"},
	})

	ports, err := ListUARTs()
	if err != nil {
		t.Fatalf("ListUARTs failed: %v", err)
	}

	want := []string{"ttyS0", "ttyS1", "ttyS10"}
	if len(ports) != len(want) {
		t.Fatalf("Expected %d ports, got %d: %+v", len(want), len(ports), ports)
	}
	for i, name := range want {
		if ports[i].Name != name {
			t.Errorf("Expected port %d to be %s, got %s", i, name, ports[i].Name)
		}
	}
	if ports[1].PortAddress != 0x2F8 || ports[1].IRQ != 3 {
		t.Errorf("Expected ttyS1 at 0x2F8 IRQ 3, got 0x%X IRQ %d", ports[1].PortAddress, ports[1].IRQ)
	}
	if ports[2].Description != "8250" {
		t.Errorf("Expected ttyS10 described as 8250, got %s", ports[2].Description)
	}
}

func TestResolvePort(t *testing.T) {
	fakeSysfs(t, map[string][3]string{
		"ttyS1": {"0x000002f8", "3", "4"},
		"ttyS2": {"0x0", "0", ""},
		"ttyS3": {"zz", "4", ""},
	})

	tests := []struct {
		name     string
		wantAddr uint16
		wantIRQ  int
		wantErr  error
	}{
		{"ttyS1", 0x2F8, 3, nil},
		{"/dev/ttyS1", 0x2F8, 3, nil},
		{"ttyS2", 0, 0, ErrDeviceNotFound},
		{"ttyS9", 0, 0, ErrDeviceNotFound},
		{"ttyUSB0", 0, 0, ErrDeviceNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := ResolvePort(tt.name)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolvePort failed: %v", err)
			}
			if info.PortAddress != tt.wantAddr || info.IRQ != tt.wantIRQ {
				t.Errorf("Expected 0x%X IRQ %d, got 0x%X IRQ %d", tt.wantAddr, tt.wantIRQ, info.PortAddress, info.IRQ)
			}
			if info.Path != "/dev/ttyS1" {
				t.Errorf("Expected path /dev/ttyS1, got %s", info.Path)
			}
		})
	}

	if _, err := ResolvePort("ttyS3"); err == nil || errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Expected a parse error for ttyS3, got %v", err)
	}
}

func TestGetUARTDescription(t *testing.T) {
	tests := []struct {
		portType int
		expected string
	}{
		{1, "8250"},
		{2, "16450"},
		{4, "16550A"},
		{8, "16750"},
		{0, "Unknown UART"},
		{99, "Unknown UART"},
	}

	for _, test := range tests {
		result := getUARTDescription(test.portType)
		if result != test.expected {
			t.Errorf("getUARTDescription(%d) = %s, expected %s", test.portType, result, test.expected)
		}
	}
}
