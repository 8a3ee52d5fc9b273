// Package gate provides a component that forwards a value only when a fresh
// trigger arrives alongside it.
package gate

import (
	"context"
	"sync"

	"github.com/vk/flowgrid/internal/component"
	"github.com/vk/flowgrid/internal/registry"
	"github.com/vk/flowgrid/internal/typebridge"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Component forwards "value" to "out". Nodes built from it require every
// input to be fresh, so a firing consumes one value and one trigger.
type Component struct {
	mu    sync.Mutex
	value any
}

func (c *Component) Ports() []component.PortDescriptor {
	return []component.PortDescriptor{
		{Name: "value", Direction: component.Input, Type: typebridge.Any, Mandatory: true},
		{Name: "trigger", Direction: component.Input, Type: typebridge.Any, Mandatory: true},
		{Name: "out", Direction: component.Output, Type: typebridge.Any},
	}
}

func (c *Component) SetInput(index int, value any) error {
	if index != 0 {
		return nil
	}
	c.mu.Lock()
	c.value = value
	c.mu.Unlock()
	return nil
}

func (c *Component) Execute(context.Context, component.Reporter) (component.Outputs, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return component.Outputs{0: c.value}, nil
}

// Register registers the component with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterComponent("gate", &registry.RegisteredComponent{
		New:                    func() component.Component { return &Component{} },
		Description:            "Forwards a value once per fresh trigger.",
		RequiresAllInputsFresh: true,
	})
}
