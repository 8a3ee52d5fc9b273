package node

import (
	"reflect"
	"sync"

	"github.com/google/uuid"
	"github.com/vk/flowgrid/internal/component"
	"github.com/vk/flowgrid/internal/metrics"
	"github.com/vk/flowgrid/internal/queue"
)

// Port is a typed attachment point on a node.
//
// The queue and the last-delivered value are safe for concurrent use. The
// edge list is only modified under the workspace's structural write lock
// and only read under its read lock.
type Port struct {
	ID          uuid.UUID
	Name        string
	Type        reflect.Type
	Direction   component.Direction
	Mandatory   bool
	Control     bool
	Description string
	// Index is the port's position among the owner's ports of the same
	// direction, which is the index SetInput and Outputs use.
	Index int

	node  *Node
	queue *queue.Queue[any]
	edges []*Edge

	mu      sync.Mutex
	last    any
	hasLast bool
}

func newPort(n *Node, d component.PortDescriptor, index int) *Port {
	p := &Port{
		ID:          uuid.New(),
		Name:        d.Name,
		Type:        d.Type,
		Direction:   d.Direction,
		Mandatory:   d.Mandatory && d.Direction == component.Input,
		Control:     d.Control,
		Description: d.Description,
		Index:       index,
		node:        n,
	}
	if d.Direction == component.Input {
		p.queue = queue.New[any]()
	}
	return p
}

// Node returns the owning node.
func (p *Port) Node() *Node { return p.node }

// IsInput reports whether values flow into the owning node through p.
func (p *Port) IsInput() bool { return p.Direction == component.Input }

// IsOutput reports whether values flow out of the owning node through p.
func (p *Port) IsOutput() bool { return p.Direction == component.Output }

// Edges returns a copy of the incident edges: incoming for inputs, outgoing
// for outputs.
func (p *Port) Edges() []*Edge {
	out := make([]*Edge, len(p.edges))
	copy(out, p.edges)
	return out
}

// Connected reports whether at least one edge is attached.
func (p *Port) Connected() bool { return len(p.edges) > 0 }

// String returns "node.port".
func (p *Port) String() string { return p.node.Name + "." + p.Name }

// Deliver enqueues v and makes it the last-delivered value. It never blocks.
func (p *Port) Deliver(v any) {
	p.setLast(v)
	if p.queue != nil {
		p.queue.Enqueue(v)
		metrics.ValuesDelivered.Inc()
	}
}

// Last returns the last value delivered to (or produced on) the port.
func (p *Port) Last() (any, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last, p.hasLast
}

// Pending returns the number of queued values.
func (p *Port) Pending() int {
	if p.queue == nil {
		return 0
	}
	return p.queue.Len()
}

func (p *Port) hasQueued() bool {
	return p.queue != nil && !p.queue.Empty()
}

func (p *Port) hasData() bool {
	if p.hasQueued() {
		return true
	}
	_, ok := p.Last()
	return ok
}

// take prefers a queued value and falls back to the sticky last value.
func (p *Port) take() (v any, fresh bool, ok bool) {
	if p.queue != nil {
		if v, ok := p.queue.Dequeue(); ok {
			return v, true, true
		}
	}
	v, ok = p.Last()
	return v, false, ok
}

func (p *Port) setLast(v any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last = v
	p.hasLast = true
}

// reset clears run state: queued values and the last value.
func (p *Port) reset() {
	if p.queue != nil {
		p.queue.Clear()
	}
	p.mu.Lock()
	p.last = nil
	p.hasLast = false
	p.mu.Unlock()
}
