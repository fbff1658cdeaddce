package portio

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestNewPollingLineRejectsZeroInterval(t *testing.T) {
	if _, err := NewPollingLine(0); err != ErrInvalidInterval {
		t.Errorf("Expected ErrInvalidInterval, got %v", err)
	}
}

func TestPollingLineFires(t *testing.T) {
	line, err := NewPollingLine(time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}

	var calls atomic.Int32
	if err := line.Connect(func() { calls.Add(1) }); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if err := line.Connect(func() {}); err != ErrAlreadyConnected {
		t.Errorf("Expected ErrAlreadyConnected, got %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if calls.Load() < 3 {
		t.Fatalf("Expected at least 3 invocations, got %d", calls.Load())
	}

	if err := line.Disconnect(); err != nil {
		t.Fatalf("Disconnect failed: %v", err)
	}
	after := calls.Load()
	time.Sleep(10 * time.Millisecond)
	if calls.Load() != after {
		t.Errorf("Expected no invocations after Disconnect, got %d more", calls.Load()-after)
	}

	// A disconnected line can be connected again.
	if err := line.Connect(func() {}); err != nil {
		t.Errorf("Expected reconnect to succeed, got %v", err)
	}
	line.Disconnect()
}
