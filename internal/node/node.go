// Package node implements the scheduled unit of a workspace: a wrapped
// component, its typed ports and edges, and the per-node scheduler loop that
// decides when the component may fire.
package node

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/vk/flowgrid/internal/component"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Options configure a node at construction.
type Options struct {
	Geometry Geometry
	// RequiresAllInputsFresh makes the node wait until every connected data
	// input has a queued value, instead of re-using sticky last values.
	RequiresAllInputsFresh bool
	Logger                 *slog.Logger
}

// Node wraps one component instance.
type Node struct {
	ID   uuid.UUID
	Name string
	// Type is the registry name of the component.
	Type string
	Geometry

	Component              component.Component
	RequiresAllInputsFresh bool

	inputs  []*Port
	outputs []*Port

	settingsMu sync.Mutex
	settings   []component.SettingDescriptor
	values     map[string]cty.Value

	state      atomic.Int32
	progress   atomic.Uint64
	executions atomic.Uint64
	lastErr    atomic.Pointer[error]

	// Run state, replaced by Prepare for every run.
	rt          *Runtime
	wake        chan struct{}
	done        chan struct{}
	stopFlag    atomic.Bool
	sourceFired bool

	logger *slog.Logger
}

// New builds a node around comp and generates its ports from the component's
// descriptors. Default setting values are applied to the component.
func New(typeName, name string, comp component.Component, opts Options) (*Node, error) {
	if comp == nil {
		return nil, errors.New("node: nil component")
	}
	n := &Node{
		ID:                     uuid.New(),
		Name:                   name,
		Type:                   typeName,
		Geometry:               opts.Geometry,
		Component:              comp,
		RequiresAllInputsFresh: opts.RequiresAllInputsFresh,
		values:                 make(map[string]cty.Value),
		wake:                   make(chan struct{}, 1),
		done:                   make(chan struct{}),
	}
	close(n.done)

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	n.logger = logger.With("nodeID", n.ID.String(), "node", name, "type", typeName)

	seen := make(map[string]struct{})
	for _, d := range comp.Ports() {
		if d.Type == nil {
			return nil, fmt.Errorf("node %q: port %q has no type", name, d.Name)
		}
		if _, dup := seen[d.Name]; dup {
			return nil, fmt.Errorf("node %q: duplicate port name %q", name, d.Name)
		}
		seen[d.Name] = struct{}{}
		if d.Direction == component.Input {
			n.inputs = append(n.inputs, newPort(n, d, len(n.inputs)))
		} else {
			n.outputs = append(n.outputs, newPort(n, d, len(n.outputs)))
		}
	}

	if rs, ok := comp.(component.RandomSource); ok {
		rs.SetRand(rand.New(rand.NewPCG(binary.BigEndian.Uint64(n.ID[:8]), binary.BigEndian.Uint64(n.ID[8:]))))
	}

	if cfg, ok := comp.(component.Configurable); ok {
		n.settings = cfg.Settings()
		for _, s := range n.settings {
			if s.Default == cty.NilVal {
				continue
			}
			if _, err := n.ApplySetting(s.Name, s.Default); err != nil {
				return nil, fmt.Errorf("node %q: default for setting %q: %w", name, s.Name, err)
			}
		}
	}

	return n, nil
}

// Inputs returns the input ports in declaration order.
func (n *Node) Inputs() []*Port { return n.inputs }

// Outputs returns the output ports in declaration order.
func (n *Node) Outputs() []*Port { return n.outputs }

// Ports returns inputs followed by outputs.
func (n *Node) Ports() []*Port {
	all := make([]*Port, 0, len(n.inputs)+len(n.outputs))
	all = append(all, n.inputs...)
	return append(all, n.outputs...)
}

// Port finds a port by name.
func (n *Node) Port(name string) *Port {
	for _, p := range n.Ports() {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Logger returns the node's logger.
func (n *Node) Logger() *slog.Logger { return n.logger }

// State atomically retrieves the node's run state.
func (n *Node) State() State { return State(n.state.Load()) }

// Progress returns the last reported progress fraction in [0,1].
func (n *Node) Progress() float64 { return math.Float64frombits(n.progress.Load()) }

// Executions returns the number of successful firings in the current run.
func (n *Node) Executions() uint64 { return n.executions.Load() }

// LastError returns the error behind the current Error state, if any.
func (n *Node) LastError() error {
	if p := n.lastErr.Load(); p != nil {
		return *p
	}
	return nil
}

// IsSource reports whether the node has no mandatory or connected inputs.
// Sources fire once per run without waiting for data. A connected control
// input keeps the node from being a source, so a control slave only fires
// when its master feeds it.
func (n *Node) IsSource() bool {
	return n.HasOnlyOptionalUnconnectedInputs()
}

// HasOnlyOptionalUnconnectedInputs reports whether every input is optional
// and unconnected, control ports included.
func (n *Node) HasOnlyOptionalUnconnectedInputs() bool {
	for _, p := range n.inputs {
		if p.Mandatory || p.Connected() {
			return false
		}
	}
	return true
}

// IsControlSlave reports whether the node only feeds control inputs of other
// nodes. Such helpers are excluded from aggregated progress.
func (n *Node) IsControlSlave() bool {
	feeds := false
	for _, p := range n.outputs {
		for _, e := range p.edges {
			if !e.To.Control {
				return false
			}
			feeds = true
		}
	}
	return feeds
}

// Settings returns the component's setting descriptors.
func (n *Node) Settings() []component.SettingDescriptor { return n.settings }

// Setting returns the current value of a setting.
func (n *Node) Setting(name string) (cty.Value, bool) {
	n.settingsMu.Lock()
	defer n.settingsMu.Unlock()
	v, ok := n.values[name]
	return v, ok
}

// ApplySetting converts value to the setting's declared type, hands it to the
// component and records it. It returns the previous value (cty.NilVal when
// unset) so callers can undo the change.
func (n *Node) ApplySetting(name string, value cty.Value) (cty.Value, error) {
	cfg, ok := n.Component.(component.Configurable)
	if !ok {
		return cty.NilVal, fmt.Errorf("node %q has no settings", n.Name)
	}
	var desc *component.SettingDescriptor
	for i := range n.settings {
		if n.settings[i].Name == name {
			desc = &n.settings[i]
			break
		}
	}
	if desc == nil {
		return cty.NilVal, fmt.Errorf("node %q has no setting %q", n.Name, name)
	}

	converted, err := convert.Convert(value, desc.Type)
	if err != nil {
		return cty.NilVal, fmt.Errorf("setting %q expects %s: %w", name, desc.Type.FriendlyName(), err)
	}

	n.settingsMu.Lock()
	defer n.settingsMu.Unlock()
	if err := applySetting(cfg, name, converted); err != nil {
		return cty.NilVal, fmt.Errorf("setting %q: %w", name, err)
	}
	old := n.values[name]
	n.values[name] = converted
	return old, nil
}

// applySetting calls the component. Components may assume a known non-null
// value, so a panic on an unexpected one becomes an error.
func applySetting(cfg component.Configurable, name string, v cty.Value) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("rejected %s: %v", v.GoString(), r)
		}
	}()
	return cfg.ApplySetting(name, v)
}
