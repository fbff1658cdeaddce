package portio

import (
	"errors"
	"sync"
	"time"
)

// DefaultPollInterval is how often a PollingLine runs its handler.
const DefaultPollInterval = time.Millisecond

var (
	ErrAlreadyConnected = errors.New("portio: interrupt line already connected")
	ErrInvalidInterval  = errors.New("portio: poll interval must be positive")
)

// PollingLine stands in for a hardware interrupt line that user space cannot
// claim. It runs the connected handler on a fixed tick from one goroutine,
// so the handler must cope with finding nothing pending.
type PollingLine struct {
	interval time.Duration

	mu     sync.Mutex
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewPollingLine creates a line that fires every interval.
func NewPollingLine(interval time.Duration) (*PollingLine, error) {
	if interval <= 0 {
		return nil, ErrInvalidInterval
	}
	return &PollingLine{interval: interval}, nil
}

// Connect starts invoking isr. Invocations never overlap.
func (l *PollingLine) Connect(isr func()) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stopCh != nil {
		return ErrAlreadyConnected
	}
	l.stopCh = make(chan struct{})

	l.wg.Add(1)
	go func(stopCh <-chan struct{}) {
		defer l.wg.Done()

		ticker := time.NewTicker(l.interval)
		defer ticker.Stop()

		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				isr()
			}
		}
	}(l.stopCh)

	return nil
}

// Disconnect stops the ticker and waits for a running invocation to return.
func (l *PollingLine) Disconnect() error {
	l.mu.Lock()
	if l.stopCh == nil {
		l.mu.Unlock()
		return nil
	}
	close(l.stopCh)
	l.stopCh = nil
	l.mu.Unlock()

	l.wg.Wait()
	return nil
}
