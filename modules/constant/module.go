// Package constant provides a source component that emits a fixed string.
package constant

import (
	"context"
	"sync"

	"github.com/vk/flowgrid/internal/component"
	"github.com/vk/flowgrid/internal/registry"
	"github.com/vk/flowgrid/internal/typebridge"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Component emits its "value" setting once per run.
type Component struct {
	mu    sync.Mutex
	value string
}

func (c *Component) Ports() []component.PortDescriptor {
	return []component.PortDescriptor{
		{Name: "out", Direction: component.Output, Type: typebridge.String, Description: "the configured text"},
	}
}

func (c *Component) SetInput(int, any) error { return nil }

func (c *Component) Execute(context.Context, component.Reporter) (component.Outputs, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return component.Outputs{0: c.value}, nil
}

func (c *Component) Settings() []component.SettingDescriptor {
	return []component.SettingDescriptor{
		{Name: "value", Type: cty.String, Default: cty.StringVal(""), Description: "text to emit"},
	}
}

func (c *Component) ApplySetting(name string, v cty.Value) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v.IsNull() {
		c.value = ""
		return nil
	}
	c.value = v.AsString()
	return nil
}

// Register registers the component with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterComponent("constant", &registry.RegisteredComponent{
		New:         func() component.Component { return &Component{} },
		Description: "Emits a constant string.",
	})
}
