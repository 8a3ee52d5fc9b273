// Package integer provides a source component that emits a 32-bit integer.
package integer

import (
	"context"
	"fmt"
	"sync"

	"github.com/vk/flowgrid/internal/component"
	"github.com/vk/flowgrid/internal/registry"
	"github.com/vk/flowgrid/internal/typebridge"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Component emits its "value" setting once per run.
type Component struct {
	mu    sync.Mutex
	value int32
}

func (c *Component) Ports() []component.PortDescriptor {
	return []component.PortDescriptor{
		{Name: "out", Direction: component.Output, Type: typebridge.Int32},
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
		{Name: "value", Type: cty.Number, Default: cty.NumberIntVal(0), Description: "integer to emit"},
	}
}

func (c *Component) ApplySetting(name string, v cty.Value) error {
	var i int32
	if err := gocty.FromCtyValue(v, &i); err != nil {
		return fmt.Errorf("value must be a 32-bit integer: %w", err)
	}
	c.mu.Lock()
	c.value = i
	c.mu.Unlock()
	return nil
}

// Register registers the component with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterComponent("integer", &registry.RegisteredComponent{
		New:         func() component.Component { return &Component{} },
		Description: "Emits a constant 32-bit integer.",
	})
}
