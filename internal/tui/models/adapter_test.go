package models

import (
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	rs485 "github.com/allbin/go-rs485"
	"github.com/allbin/go-rs485/internal/tui/components"
	"github.com/allbin/go-rs485/internal/uartsim"
)

type recorder struct {
	mu   sync.Mutex
	msgs []tea.Msg
}

func (r *recorder) send(msg tea.Msg) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *recorder) snapshot() []tea.Msg {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]tea.Msg(nil), r.msgs...)
}

func TestPollDeliversDataAndStats(t *testing.T) {
	sim := uartsim.New(0x3F8, uartsim.WithCharTime(20*time.Microsecond))
	dev, err := rs485.Open("", rs485.WithHardware(sim), rs485.WithPortAddress(0x3F8), rs485.WithIRQLine(4))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	m := NewAdapterModel("ttyS0")
	m.SetDevice(dev)

	var rec recorder
	done := make(chan struct{})
	go func() {
		m.Poll(dev, 2*time.Millisecond, rec.send)
		close(done)
	}()

	sim.Inject([]byte("hello")...)

	var received []byte
	var sawStats bool
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && (string(received) != "hello" || !sawStats) {
		received, sawStats = nil, false
		for _, msg := range rec.snapshot() {
			switch msg := msg.(type) {
			case components.DataReceivedMsg:
				received = append(received, msg.Data...)
			case components.StatsMsg:
				sawStats = true
			}
		}
		time.Sleep(time.Millisecond)
	}

	if string(received) != "hello" {
		t.Errorf("Expected \"hello\" delivered, got %q", received)
	}
	if !sawStats {
		t.Error("Expected a stats update")
	}

	m.Cleanup()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Poll did not stop on Cleanup")
	}
	if m.GetDevice() != nil {
		t.Error("Expected Cleanup to release the device")
	}
}

func TestUpdateTxStatus(t *testing.T) {
	m := NewAdapterModel("ttyS1")
	m.AddRawData(components.DataReceivedMsg{Data: []byte{1}, IsTX: true, Status: components.TxPending})
	m.AddRawData(components.DataReceivedMsg{Data: []byte{1}})
	m.AddRawData(components.DataReceivedMsg{Data: []byte{2}, IsTX: true, Status: components.TxPending})

	m.UpdateTxStatus([]byte{1}, components.TxReleased)

	raw := m.GetRawData()
	if raw[0].Status != components.TxReleased {
		t.Errorf("Expected the matching burst released, got %s", raw[0].Status)
	}
	if raw[1].Status != "" || raw[2].Status != components.TxPending {
		t.Errorf("Expected other entries untouched, got %q and %q", raw[1].Status, raw[2].Status)
	}
}

func TestRawDataBounded(t *testing.T) {
	m := NewAdapterModel("ttyS1")
	for i := 0; i < maxRawData+10; i++ {
		m.AddRawData(components.DataReceivedMsg{Data: []byte{byte(i)}})
	}
	if got := len(m.GetRawData()); got != maxRawData {
		t.Errorf("Expected %d messages kept, got %d", maxRawData, got)
	}
}
