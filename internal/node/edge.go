package node

import (
	"errors"
	"reflect"
	"slices"
	"sync/atomic"

	"github.com/google/uuid"
)

// Edge is a directed link from one output port to one input port.
type Edge struct {
	ID uuid.UUID
	Geometry

	From *Port
	To   *Port
	// Type is the runtime type resolved when the edge was created.
	Type reflect.Type

	active atomic.Bool
}

// Link creates an edge and attaches it to both ports. The caller must hold
// the structural write lock and has already validated compatibility.
func Link(from, to *Port) (*Edge, error) {
	if from == nil || to == nil {
		return nil, errors.New("link: nil port")
	}
	if !from.IsOutput() || !to.IsInput() {
		return nil, errors.New("link: edges run from an output to an input")
	}
	e := &Edge{
		ID:   uuid.New(),
		From: from,
		To:   to,
		Type: resolveType(from, to),
	}
	e.attach()
	return e, nil
}

// Relink attaches a previously unlinked edge again, keeping its identity.
func (e *Edge) Relink() { e.attach() }

// Unlink detaches the edge from both ports. Values already queued on the
// destination stay there.
func (e *Edge) Unlink() {
	e.From.edges = slices.DeleteFunc(e.From.edges, func(x *Edge) bool { return x == e })
	e.To.edges = slices.DeleteFunc(e.To.edges, func(x *Edge) bool { return x == e })
	e.active.Store(false)
}

func (e *Edge) attach() {
	e.From.edges = append(e.From.edges, e)
	e.To.edges = append(e.To.edges, e)
}

// Active reports whether a value is currently travelling along the edge.
func (e *Edge) Active() bool { return e.active.Load() }

func (e *Edge) setActive(active bool, obs Observer) {
	if e.active.Swap(active) != active {
		obs.EdgeActivityChanged(e, active)
	}
}

// String returns "from.port->to.port".
func (e *Edge) String() string { return e.From.String() + "->" + e.To.String() }

func resolveType(from, to *Port) reflect.Type {
	// An interface-typed producer feeding a concrete consumer carries the
	// consumer's type at runtime.
	if from.Type == nil || (from.Type.Kind() == reflect.Interface && to.Type != nil && to.Type.Kind() != reflect.Interface) {
		return to.Type
	}
	return from.Type
}
