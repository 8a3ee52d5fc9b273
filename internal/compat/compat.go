// Package compat decides whether two ports may be wired together.
package compat

import (
	"github.com/vk/flowgrid/internal/node"
	"github.com/vk/flowgrid/internal/typebridge"
)

// Level grades a candidate connection.
type Level int

const (
	// Red connections are refused.
	Red Level = iota
	// Yellow connections rely on an implicit conversion.
	Yellow
	// Green connections pass values unchanged.
	Green
	// NA marks two ports of the same node.
	NA
)

func (l Level) String() string {
	switch l {
	case Red:
		return "red"
	case Yellow:
		return "yellow"
	case Green:
		return "green"
	case NA:
		return "n/a"
	}
	return "unknown"
}

// Connectable reports whether connect may proceed at this level.
func (l Level) Connectable() bool { return l == Green || l == Yellow }

// EdgeLookup answers whether an edge already joins two ports.
type EdgeLookup interface {
	HasEdge(from, to *node.Port) bool
}

// Check grades a connection from a to b. Direction matters: a must be the
// output side.
func Check(edges EdgeLookup, a, b *node.Port) Level {
	if a == nil || b == nil {
		return Red
	}
	if a.Node() == b.Node() {
		return NA
	}
	if a.IsOutput() == b.IsOutput() || !a.IsOutput() {
		return Red
	}
	if edges != nil && edges.HasEdge(a, b) {
		return Red
	}
	if typebridge.Related(a.Type, b.Type) {
		return Green
	}
	if typebridge.Bridged(a.Type, b.Type) {
		return Yellow
	}
	return Red
}
