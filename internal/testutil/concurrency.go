package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/vk/flowgrid/internal/component"
	"github.com/vk/flowgrid/internal/registry"
	"github.com/vk/flowgrid/internal/typebridge"
)

// MockSleeperModule registers a "sleeper" component for concurrency tests.
// Every instance forwards its string input after sleeping and records the
// execution window under the value it forwarded.
type MockSleeperModule struct {
	ExecutionTimes map[string]*ExecutionRecord
	all            []ExecutionRecord
	mu             sync.Mutex
	sleepDuration  time.Duration
	completionChan chan<- string
}

// NewMockSleeperModule creates a new sleeper module for testing.
func NewMockSleeperModule(completionChan chan<- string, sleep time.Duration) *MockSleeperModule {
	return &MockSleeperModule{
		ExecutionTimes: make(map[string]*ExecutionRecord),
		sleepDuration:  sleep,
		completionChan: completionChan,
	}
}

// Register registers the "sleeper" component.
func (m *MockSleeperModule) Register(r *registry.Registry) {
	r.RegisterComponent("sleeper", &registry.RegisteredComponent{
		Description: "forwards its input after a fixed delay",
		New: func() component.Component {
			return NewFuncComponent(m.execute, OptionalIn("in", typebridge.String), Out("out", typebridge.String))
		},
	})
}

// Record returns the execution window recorded for id.
func (m *MockSleeperModule) Record(id string) (ExecutionRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.ExecutionTimes[id]
	if !ok {
		return ExecutionRecord{}, false
	}
	return *rec, true
}

// Records returns every execution window in completion order.
func (m *MockSleeperModule) Records() []ExecutionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ExecutionRecord(nil), m.all...)
}

func (m *MockSleeperModule) execute(ctx context.Context, in []any) (component.Outputs, error) {
	id, _ := in[0].(string)

	startTime := time.Now()
	select {
	case <-time.After(m.sleepDuration):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	endTime := time.Now()

	m.mu.Lock()
	m.ExecutionTimes[id] = &ExecutionRecord{Start: startTime, End: endTime}
	m.all = append(m.all, ExecutionRecord{Start: startTime, End: endTime})
	m.mu.Unlock()

	if m.completionChan != nil {
		m.completionChan <- id
	}
	return component.Outputs{0: id}, nil
}
