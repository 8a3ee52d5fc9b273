package testutil

import (
	"context"
	"reflect"
	"slices"
	"sync"
	"time"

	"github.com/vk/flowgrid/internal/component"
)

// ExecFunc computes outputs from the current input snapshot.
type ExecFunc func(ctx context.Context, inputs []any) (component.Outputs, error)

// FuncComponent is a configurable component for engine tests. It records
// every firing together with the inputs it saw.
type FuncComponent struct {
	PortList []component.PortDescriptor
	Fn       ExecFunc

	mu      sync.Mutex
	inputs  []any
	calls   []Call
	stopped bool
}

// NewFuncComponent builds a FuncComponent with the given ports.
func NewFuncComponent(fn ExecFunc, ports ...component.PortDescriptor) *FuncComponent {
	c := &FuncComponent{PortList: ports, Fn: fn}
	for _, p := range ports {
		if p.Direction == component.Input {
			c.inputs = append(c.inputs, nil)
		}
	}
	return c
}

// In declares a mandatory input port.
func In(name string, t reflect.Type) component.PortDescriptor {
	return component.PortDescriptor{Name: name, Direction: component.Input, Type: t, Mandatory: true}
}

// OptionalIn declares an optional input port.
func OptionalIn(name string, t reflect.Type) component.PortDescriptor {
	return component.PortDescriptor{Name: name, Direction: component.Input, Type: t}
}

// Out declares an output port.
func Out(name string, t reflect.Type) component.PortDescriptor {
	return component.PortDescriptor{Name: name, Direction: component.Output, Type: t}
}

// Source returns a component with a single output "out" that emits value.
func Source(t reflect.Type, value any) *FuncComponent {
	return NewFuncComponent(func(context.Context, []any) (component.Outputs, error) {
		return component.Outputs{0: value}, nil
	}, Out("out", t))
}

// Sink returns a component with a single mandatory input "in".
func Sink(t reflect.Type) *FuncComponent {
	return NewFuncComponent(func(context.Context, []any) (component.Outputs, error) {
		return nil, nil
	}, In("in", t))
}

// Relay returns a component forwarding "in" to "out", optionally sleeping
// before it does.
func Relay(t reflect.Type, sleep time.Duration) *FuncComponent {
	return NewFuncComponent(func(ctx context.Context, in []any) (component.Outputs, error) {
		if sleep > 0 {
			select {
			case <-time.After(sleep):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		return component.Outputs{0: in[0]}, nil
	}, In("in", t), Out("out", t))
}

func (c *FuncComponent) Ports() []component.PortDescriptor { return c.PortList }

func (c *FuncComponent) SetInput(index int, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inputs[index] = value
	return nil
}

func (c *FuncComponent) Execute(ctx context.Context, _ component.Reporter) (component.Outputs, error) {
	c.mu.Lock()
	snapshot := slices.Clone(c.inputs)
	c.mu.Unlock()

	start := time.Now()
	var out component.Outputs
	var err error
	if c.Fn != nil {
		out, err = c.Fn(ctx, snapshot)
	}
	end := time.Now()

	c.mu.Lock()
	c.calls = append(c.calls, Call{Inputs: snapshot, ExecutionRecord: ExecutionRecord{Start: start, End: end}})
	c.mu.Unlock()
	return out, err
}

// Stop records that the engine invoked the cancel hook.
func (c *FuncComponent) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
}

// Calls returns a copy of the recorded firings.
func (c *FuncComponent) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.calls)
}

// CallCount returns the number of recorded firings.
func (c *FuncComponent) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

// Received returns the value of input 0 for every firing.
func (c *FuncComponent) Received() []any {
	var out []any
	for _, call := range c.Calls() {
		if len(call.Inputs) > 0 {
			out = append(out, call.Inputs[0])
		}
	}
	return out
}

// StopCalled reports whether the engine invoked Stop.
func (c *FuncComponent) StopCalled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}
