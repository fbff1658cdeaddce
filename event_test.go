package rs485

import "testing"

func TestEventAutoReset(t *testing.T) {
	e := newEvent()

	e.set()
	e.set() // idempotent

	select {
	case <-e.done():
	default:
		t.Fatal("Expected event to be signaled")
	}

	select {
	case <-e.done():
		t.Fatal("Expected a consumed signal to reset the event")
	default:
	}
}

func TestEventClear(t *testing.T) {
	e := newEvent()
	e.clear() // no-op when unsignaled

	e.set()
	e.clear()
	select {
	case <-e.done():
		t.Fatal("Expected clear to drop a stale signal")
	default:
	}
}
