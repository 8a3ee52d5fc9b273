// Package monitor forwards engine events to a remote dashboard.
//
// Workers must never wait on the network, so the Monitor queues events in a
// bounded buffer drained by a single goroutine. When the buffer is full new
// events are dropped and counted.
package monitor

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/vk/flowgrid/internal/node"
)

// DefaultBuffer is the number of events queued before dropping starts.
const DefaultBuffer = 1024

// Event names.
const (
	EventNodeState    = "node_state"
	EventNodeProgress = "node_progress"
	EventNodeLog      = "node_log"
	EventEdgeActivity = "edge_activity"
)

type event struct {
	name   string
	fields map[string]any
}

// Monitor is a node.Observer publishing to a Bus.
type Monitor struct {
	bus    Bus
	logger *slog.Logger

	mu      sync.RWMutex
	closed  bool
	events  chan event
	done    chan struct{}
	dropped atomic.Uint64
}

// New starts a Monitor. A buffer of zero or less selects DefaultBuffer.
func New(bus Bus, logger *slog.Logger, buffer int) *Monitor {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if logger == nil {
		logger = slog.Default()
	}
	m := &Monitor{
		bus:    bus,
		logger: logger,
		events: make(chan event, buffer),
		done:   make(chan struct{}),
	}
	go m.loop()
	return m
}

func (m *Monitor) loop() {
	defer close(m.done)
	for ev := range m.events {
		if err := m.bus.Emit(context.Background(), ev.name, ev.fields); err != nil {
			m.logger.Warn("Monitor emit failed.", "event", ev.name, "error", err)
		}
	}
}

func (m *Monitor) publish(name string, fields map[string]any) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return
	}
	select {
	case m.events <- event{name: name, fields: fields}:
	default:
		m.dropped.Add(1)
	}
}

// Dropped returns the number of events lost to a full buffer.
func (m *Monitor) Dropped() uint64 { return m.dropped.Load() }

// Close stops accepting events and waits until the queued ones are sent or
// ctx is done.
func (m *Monitor) Close(ctx context.Context) error {
	m.mu.Lock()
	if !m.closed {
		m.closed = true
		close(m.events)
	}
	m.mu.Unlock()

	select {
	case <-m.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	if d := m.Dropped(); d > 0 {
		m.logger.Warn("Monitor dropped events.", "count", d)
	}
	return nil
}

func nodeFields(n *node.Node) map[string]any {
	return map[string]any{"node": n.Name, "nodeID": n.ID.String(), "type": n.Type}
}

func (m *Monitor) NodeStateChanged(n *node.Node, s node.State) {
	f := nodeFields(n)
	f["state"] = s.String()
	if err := n.LastError(); err != nil && s == node.Error {
		f["error"] = err.Error()
	}
	m.publish(EventNodeState, f)
}

func (m *Monitor) NodeProgressChanged(n *node.Node, progress float64) {
	f := nodeFields(n)
	f["progress"] = progress
	m.publish(EventNodeProgress, f)
}

func (m *Monitor) NodeLogged(n *node.Node, level slog.Level, msg string) {
	f := nodeFields(n)
	f["level"] = level.String()
	f["message"] = msg
	m.publish(EventNodeLog, f)
}

func (m *Monitor) EdgeActivityChanged(e *node.Edge, active bool) {
	m.publish(EventEdgeActivity, map[string]any{"edge": e.String(), "edgeID": e.ID.String(), "active": active})
}

var _ node.Observer = (*Monitor)(nil)
