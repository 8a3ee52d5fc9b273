package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"reflect"
	"time"
	"unicode/utf8"

	"github.com/vk/flowgrid/internal/component"
	"github.com/vk/flowgrid/internal/metrics"
	"github.com/vk/flowgrid/internal/typebridge"
)

// checkReady evaluates the readiness rule. The caller holds the structural
// read lock.
func (n *Node) checkReady() bool {
	if !n.sourceFired && n.IsSource() {
		n.sourceFired = true
		n.logger.Debug("Source node ready for its initial firing.")
		return true
	}
	return n.dataReady()
}

// Settled reports whether the node is not firing and could not fire on its
// next wake. The caller holds the structural write lock.
func (n *Node) Settled() bool {
	if n.State() == Running {
		return false
	}
	if !n.sourceFired && n.IsSource() {
		return false
	}
	return !n.dataReady()
}

func (n *Node) dataReady() bool {
	fresh := false
	for _, p := range n.inputs {
		if p.Control || !(p.Mandatory || p.Connected()) {
			continue
		}
		if !p.hasData() {
			return false
		}
		if p.hasQueued() {
			fresh = true
		} else if n.RequiresAllInputsFresh && p.Connected() {
			return false
		}
	}

	for _, p := range n.outputs {
		if p.Control {
			continue
		}
		for _, e := range p.edges {
			if e.To.hasQueued() {
				return false
			}
		}
	}

	return fresh
}

type pendingInput struct {
	port  *Port
	value any
	fresh bool
}

// drainInputs takes one value from every input that has one. All queues are
// drained before any coercion so that an aborted firing leaves nothing
// half-consumed behind. The caller holds the structural read lock.
func (n *Node) drainInputs(rt *Runtime) []pendingInput {
	var pending []pendingInput
	for _, p := range n.inputs {
		v, fresh, ok := p.take()
		if !ok {
			continue
		}
		pending = append(pending, pendingInput{port: p, value: v, fresh: fresh})
		if fresh && !p.hasQueued() {
			for _, e := range p.edges {
				e.setActive(false, rt.observer())
			}
		}
	}
	return pending
}

// fillInputs coerces every pending value to its port type and hands them to
// the component. Nothing reaches the component unless every value coerces.
func (n *Node) fillInputs(pending []pendingInput) error {
	values := make([]any, len(pending))
	for i, in := range pending {
		v := in.value
		if v != nil && reflect.TypeOf(v) != in.port.Type {
			coerced, err := typebridge.Coerce(v, in.port.Type)
			if err != nil {
				return &InputError{Port: in.port.String(), Value: describe(v), Cause: err}
			}
			v = coerced
		}
		values[i] = v
	}
	for i, in := range pending {
		if err := n.setInput(in.port, values[i]); err != nil {
			return err
		}
	}
	return nil
}

// setInput hands one value to the component. A panic in SetInput becomes an
// InputError.
func (n *Node) setInput(p *Port, v any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &InputError{Port: p.String(), Value: describe(v), Cause: fmt.Errorf("panic: %v", r)}
		}
	}()
	if err := n.Component.SetInput(p.Index, v); err != nil {
		return &InputError{Port: p.String(), Value: describe(v), Cause: err}
	}
	return nil
}

// invoke runs Execute, turning errors and panics into ExecutionError.
func (n *Node) invoke(ctx context.Context, rt *Runtime) (out component.Outputs, err error) {
	metrics.NodesRunning.Inc()
	start := time.Now()
	defer func() {
		metrics.NodesRunning.Dec()
		metrics.FiringDuration.WithLabelValues(n.Type).Observe(time.Since(start).Seconds())
		if r := recover(); r != nil {
			out = nil
			err = &ExecutionError{Node: n.Name, Phase: "execute", Cause: fmt.Errorf("%v", r), Panicked: true}
		}
	}()

	out, err = n.Component.Execute(ctx, &reporter{n: n, rt: rt})
	if err != nil {
		return nil, &ExecutionError{Node: n.Name, Phase: "execute", Cause: err}
	}
	return out, nil
}

// propagate delivers produced outputs along every outgoing edge, then wakes
// upstream producers whose backpressure may now be relieved. The caller
// holds the structural read lock.
func (n *Node) propagate(outputs component.Outputs, rt *Runtime) {
	obs := rt.observer()
	for idx := range outputs {
		if idx < 0 || idx >= len(n.outputs) {
			n.logger.Warn("Component produced a value for an unknown output.", "index", idx)
		}
	}

	for _, p := range n.outputs {
		v, ok := outputs[p.Index]
		if !ok {
			continue
		}
		p.setLast(v)
		for _, e := range p.edges {
			// Mark before delivering so the consumer's drain always clears it.
			e.setActive(true, obs)
			e.To.Deliver(v)
			e.To.node.Wake()
		}
		n.logger.Debug("Output propagated.", "port", p.Name, "edges", len(p.edges))
	}

	for _, p := range n.inputs {
		for _, e := range p.edges {
			e.From.node.Wake()
		}
	}
}

func (n *Node) setProgress(v float64, rt *Runtime) {
	v = math.Max(0, math.Min(1, v))
	if math.Float64frombits(n.progress.Swap(math.Float64bits(v))) != v {
		rt.observer().NodeProgressChanged(n, v)
	}
}

// reporter is the component.Reporter handed to Execute.
type reporter struct {
	n  *Node
	rt *Runtime
}

func (r *reporter) Progress(current, max float64) {
	if max <= 0 {
		return
	}
	r.n.setProgress(current/max, r.rt)
}

func (r *reporter) Log(level slog.Level, msg string, args ...any) {
	r.n.logger.Log(context.Background(), level, msg, args...)
	r.rt.observer().NodeLogged(r.n, level, msg)
}

// errorKind classifies a firing failure for metrics.
func errorKind(err error) string {
	var overflow *typebridge.CoercionOverflowError
	if errors.As(err, &overflow) {
		return "coercion"
	}
	return "input"
}

func describe(v any) string {
	s := fmt.Sprintf("%v", v)
	if utf8.RuneCountInString(s) > 64 {
		s = string([]rune(s)[:64]) + "..."
	}
	return fmt.Sprintf("%s(%T)", s, v)
}
