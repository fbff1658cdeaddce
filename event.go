package rs485

// event is a binary auto-reset signal. set is idempotent and never blocks;
// a successful wait consumes the signal.
type event struct {
	ch chan struct{}
}

func newEvent() *event {
	return &event{ch: make(chan struct{}, 1)}
}

func (e *event) set() {
	select {
	case e.ch <- struct{}{}:
	default:
		// Already signaled
	}
}

func (e *event) clear() {
	select {
	case <-e.ch:
	default:
	}
}

// done returns the channel a waiter receives from.
func (e *event) done() <-chan struct{} {
	return e.ch
}
