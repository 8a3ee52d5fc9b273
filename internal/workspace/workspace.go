// Package workspace owns a graph of nodes and edges and drives its execution.
//
// Structural operations (adding and removing nodes, connecting and
// disconnecting ports, changing settings) take the workspace's write lock.
// Node workers take the matching read lock while they walk ports and edges,
// so a graph can be edited while it runs. Each operation also exists as a
// Command that can be inverted.
package workspace

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vk/flowgrid/internal/node"
	"github.com/vk/flowgrid/internal/registry"
)

const (
	// DefaultStopTimeout bounds how long Stop waits for workers.
	DefaultStopTimeout = 10 * time.Second
	// DefaultBenchmarkInterval is the period of benchmark reports.
	DefaultBenchmarkInterval = time.Second
)

// Options tune the engine.
type Options struct {
	// WaitTimeout is how long an idle worker sleeps between stop checks.
	WaitTimeout time.Duration
	StopTimeout time.Duration
	// SleepTime delays every Execute call.
	SleepTime time.Duration
	// Benchmark enables the periodic executions-per-second report.
	Benchmark         bool
	BenchmarkInterval time.Duration
	Observer          node.Observer
	Logger            *slog.Logger
}

// Workspace is the container of nodes and edges.
type Workspace struct {
	// lifecycle serializes Start and Stop.
	lifecycle sync.Mutex
	mu        sync.RWMutex

	registry *registry.Registry
	opts     Options
	logger   *slog.Logger

	nodes   []*node.Node
	byID    map[uuid.UUID]*node.Node
	edges   []*node.Edge
	presets map[*node.Port]any

	run *run
}

// New creates an empty workspace whose nodes are built from reg.
func New(reg *registry.Registry, opts Options) *Workspace {
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = DefaultStopTimeout
	}
	if opts.WaitTimeout <= 0 {
		opts.WaitTimeout = node.DefaultWaitTimeout
	}
	if opts.BenchmarkInterval <= 0 {
		opts.BenchmarkInterval = DefaultBenchmarkInterval
	}
	if opts.Observer == nil {
		opts.Observer = node.NopObserver{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Workspace{
		registry: reg,
		opts:     opts,
		logger:   logger,
		byID:     make(map[uuid.UUID]*node.Node),
		presets:  make(map[*node.Port]any),
	}
}

// Node returns the node with the given id.
func (w *Workspace) Node(id uuid.UUID) (*node.Node, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	n, ok := w.byID[id]
	return n, ok
}

// NodeByName returns the node with the given user-visible name.
func (w *Workspace) NodeByName(name string) (*node.Node, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	n := w.nodeByName(name)
	return n, n != nil
}

func (w *Workspace) nodeByName(name string) *node.Node {
	for _, n := range w.nodes {
		if n.Name == name {
			return n
		}
	}
	return nil
}

// Nodes returns the nodes in insertion order.
func (w *Workspace) Nodes() []*node.Node {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return slices.Clone(w.nodes)
}

// Edges returns the edges in creation order.
func (w *Workspace) Edges() []*node.Edge {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return slices.Clone(w.edges)
}

// Port resolves "nodeName.portName".
func (w *Workspace) Port(nodeName, portName string) (*node.Port, error) {
	n, ok := w.NodeByName(nodeName)
	if !ok {
		return nil, wrapf(ErrNodeNotFound, "%q", nodeName)
	}
	p := n.Port(portName)
	if p == nil {
		return nil, wrapf(ErrPortNotFound, "%s.%s", nodeName, portName)
	}
	return p, nil
}

// HasEdge reports whether an edge joins from to to. The caller holds at least
// the read lock.
func (w *Workspace) HasEdge(from, to *node.Port) bool {
	for _, e := range from.Edges() {
		if e.To == to {
			return true
		}
	}
	return false
}

func (w *Workspace) edgeByID(id uuid.UUID) *node.Edge {
	for _, e := range w.edges {
		if e.ID == id {
			return e
		}
	}
	return nil
}
