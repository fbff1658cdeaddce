package models

import (
	"context"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	rs485 "github.com/allbin/go-rs485"
	"github.com/allbin/go-rs485/internal/tui/components"
)

// maxRawData bounds the messages kept for redrawing
const maxRawData = 5000

// InputMode represents the current input mode (vim-like)
type InputMode int

const (
	InputModeNormal InputMode = iota
	InputModeInsert
)

func (m InputMode) String() string {
	switch m {
	case InputModeInsert:
		return "INSERT"
	default:
		return "NORMAL"
	}
}

type ConnectionStatusMsg struct {
	Connected bool
	Error     error
}

// AdapterModel is the state shared by the adapter TUIs. The device is
// touched from the poll goroutine and from bubbletea's update loop.
type AdapterModel struct {
	device   rs485.Device
	portName string

	connected bool
	rawData   []components.DataReceivedMsg
	err       error
	ready     bool

	inputMode InputMode

	cancel context.CancelFunc
	ctx    context.Context
	mu     sync.RWMutex
}

func NewAdapterModel(portName string) *AdapterModel {
	ctx, cancel := context.WithCancel(context.Background())

	return &AdapterModel{
		portName:  portName,
		rawData:   make([]components.DataReceivedMsg, 0),
		inputMode: InputModeNormal,
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (m *AdapterModel) GetDevice() rs485.Device {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.device
}

func (m *AdapterModel) SetDevice(dev rs485.Device) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.device = dev
}

func (m *AdapterModel) GetPortName() string {
	return m.portName
}

func (m *AdapterModel) IsConnected() bool {
	return m.connected
}

func (m *AdapterModel) SetConnected(connected bool) {
	m.connected = connected
}

func (m *AdapterModel) GetError() error {
	return m.err
}

func (m *AdapterModel) SetError(err error) {
	m.err = err
}

func (m *AdapterModel) IsReady() bool {
	return m.ready
}

func (m *AdapterModel) SetReady(ready bool) {
	m.ready = ready
}

func (m *AdapterModel) GetRawData() []components.DataReceivedMsg {
	return m.rawData
}

func (m *AdapterModel) AddRawData(msg components.DataReceivedMsg) {
	m.rawData = append(m.rawData, msg)
	if len(m.rawData) > maxRawData {
		m.rawData = m.rawData[len(m.rawData)-maxRawData:]
	}
}

// UpdateTxStatus moves the most recent TX entry for data to status
func (m *AdapterModel) UpdateTxStatus(data []byte, status components.TxStatus) {
	for i := len(m.rawData) - 1; i >= 0; i-- {
		msg := &m.rawData[i]
		if msg.IsTX && string(msg.Data) == string(data) {
			msg.Status = status
			return
		}
	}
}

func (m *AdapterModel) ClearData() {
	m.rawData = make([]components.DataReceivedMsg, 0)
}

func (m *AdapterModel) GetInputMode() InputMode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.inputMode
}

func (m *AdapterModel) SetInputMode(mode InputMode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inputMode = mode
}

func (m *AdapterModel) IsInInsertMode() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.inputMode == InputModeInsert
}

func (m *AdapterModel) GetContext() context.Context {
	return m.ctx
}

// Poll drains the receive buffer and samples the counters every interval
// until the model is cleaned up. Received bytes and counter changes are
// handed to send as DataReceivedMsg and StatsMsg.
func (m *AdapterModel) Poll(dev rs485.Device, interval time.Duration, send func(tea.Msg)) {
	buffer := make([]byte, dev.Config().BufferSize)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last rs485.Stats
	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
		}

		n, err := dev.Read(buffer)
		if err != nil {
			send(ConnectionStatusMsg{Connected: false, Error: err})
			return
		}
		if n > 0 {
			data := make([]byte, n)
			copy(data, buffer[:n])
			send(components.DataReceivedMsg{Timestamp: time.Now(), Data: data})
		}

		stats, err := dev.Stats()
		if err != nil {
			continue
		}
		stats.LastActivity = time.Time{}
		if stats != last {
			send(components.StatsMsg{Stats: stats, Timestamp: time.Now()})
			last = stats
		}
	}
}

func (m *AdapterModel) Cancel() {
	if m.cancel != nil {
		m.cancel()
	}
}

// Cleanup stops the poll loop and closes the device
func (m *AdapterModel) Cleanup() {
	m.Cancel()

	m.mu.Lock()
	if m.device != nil {
		m.device.Close()
		m.device = nil
	}
	m.mu.Unlock()
}
