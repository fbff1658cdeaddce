package components

import (
	"errors"
	"strings"
	"testing"

	rs485 "github.com/allbin/go-rs485"
)

func TestStatusBarTransitions(t *testing.T) {
	sb := NewStatusBar("RS-485 Listen", "ttyS1")

	sb.SetConnecting()
	if status, err := sb.Status(); status != "Connecting..." || err != nil {
		t.Errorf("Expected Connecting... without error, got %q, %v", status, err)
	}

	failure := errors.New("port busy")
	sb.SetDisconnected(failure)
	status, err := sb.Status()
	if !errors.Is(err, failure) {
		t.Errorf("Expected %v, got %v", failure, err)
	}
	if !strings.Contains(status, "port busy") {
		t.Errorf("Expected status to mention the failure, got %q", status)
	}

	sb.SetConnected()
	if _, err := sb.Status(); err != nil {
		t.Errorf("Expected error cleared on connect, got %v", err)
	}

	sb.SetDisconnected(nil)
	if status, _ := sb.Status(); status != "Disconnected" {
		t.Errorf("Expected Disconnected, got %q", status)
	}
}

func TestStatusBarDescribe(t *testing.T) {
	sb := NewStatusBar("RS-485 Listen", "ttyS1")
	if got := sb.describe(); got != "⚡ rs485" {
		t.Errorf("Expected placeholder without connection info, got %q", got)
	}

	// stats before connection info are ignored
	sb.UpdateStats(rs485.Stats{Received: 3})

	sb.SetConnectionInfo(NewConnectionInfo(rs485.DefaultConfig()))
	got := sb.describe()
	for _, want := range []string{"0x2F8", "irq3", "19200 8N1", "RX 0/2048"} {
		if !strings.Contains(got, want) {
			t.Errorf("Expected %q in %q", want, got)
		}
	}

	sb.UpdateStats(rs485.Stats{Received: 12, Transmitting: true, DroppedBytes: 2, ReceiveErrors: 1})
	got = sb.describe()
	for _, want := range []string{"TX 12/2048", "drop:2", "err:1"} {
		if !strings.Contains(got, want) {
			t.Errorf("Expected %q in %q", want, got)
		}
	}
}
