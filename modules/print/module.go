// Package print provides a sink component that writes the values it
// receives.
package print

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/vk/flowgrid/internal/component"
	"github.com/vk/flowgrid/internal/registry"
	"github.com/vk/flowgrid/internal/typebridge"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct {
	// Out receives printed lines. Defaults to os.Stdout.
	Out io.Writer
}

// Component prints every value it receives as one line.
type Component struct {
	out io.Writer

	mu     sync.Mutex
	value  any
	prefix string
}

func (c *Component) Ports() []component.PortDescriptor {
	return []component.PortDescriptor{
		{Name: "in", Direction: component.Input, Type: typebridge.Any, Mandatory: true},
	}
}

func (c *Component) SetInput(_ int, value any) error {
	c.mu.Lock()
	c.value = value
	c.mu.Unlock()
	return nil
}

func (c *Component) Execute(_ context.Context, r component.Reporter) (component.Outputs, error) {
	c.mu.Lock()
	v, prefix := c.value, c.prefix
	c.mu.Unlock()

	text := Format(v)
	r.Log(slog.LevelInfo, "Printing input", "value", text)
	if _, err := fmt.Fprintf(c.out, "%s%s\n", prefix, text); err != nil {
		return nil, err
	}
	return nil, nil
}

// Format renders a port value as text. Values without a string conversion
// fall back to their %v form.
func Format(v any) string {
	if v == nil {
		return "(null)"
	}
	if s, err := typebridge.Coerce(v, typebridge.String); err == nil {
		return s.(string)
	}
	return fmt.Sprintf("%v", v)
}

func (c *Component) Settings() []component.SettingDescriptor {
	return []component.SettingDescriptor{
		{Name: "prefix", Type: cty.String, Default: cty.StringVal(""), Description: "text written before every value"},
	}
}

func (c *Component) ApplySetting(name string, v cty.Value) error {
	c.mu.Lock()
	c.prefix = v.AsString()
	c.mu.Unlock()
	return nil
}

// Register registers the component with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterComponent("print", &registry.RegisteredComponent{
		New: func() component.Component {
			out := m.Out
			if out == nil {
				out = os.Stdout
			}
			return &Component{out: out}
		},
		Description: "Prints every value it receives.",
	})
}
