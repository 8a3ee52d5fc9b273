// Package env_vars provides a source component that reads one environment
// variable.
package env_vars

import (
	"context"
	"errors"
	"os"
	"sync"

	"github.com/vk/flowgrid/internal/component"
	"github.com/vk/flowgrid/internal/registry"
	"github.com/vk/flowgrid/internal/typebridge"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct {
	// Lookup replaces os.LookupEnv, mainly for tests.
	Lookup func(string) (string, bool)
}

// Component emits the value of the variable named by its "name" setting, or
// "default" when the variable is unset.
type Component struct {
	lookup func(string) (string, bool)

	mu       sync.Mutex
	name     string
	fallback string
}

func (c *Component) Ports() []component.PortDescriptor {
	return []component.PortDescriptor{
		{Name: "value", Direction: component.Output, Type: typebridge.String},
		{Name: "present", Direction: component.Output, Type: typebridge.Bool, Description: "whether the variable is set"},
	}
}

func (c *Component) SetInput(int, any) error { return nil }

func (c *Component) Execute(context.Context, component.Reporter) (component.Outputs, error) {
	c.mu.Lock()
	name, fallback := c.name, c.fallback
	c.mu.Unlock()
	if name == "" {
		return nil, errors.New("name setting is required")
	}
	v, ok := c.lookup(name)
	if !ok {
		v = fallback
	}
	return component.Outputs{0: v, 1: ok}, nil
}

func (c *Component) Settings() []component.SettingDescriptor {
	return []component.SettingDescriptor{
		{Name: "name", Type: cty.String, Default: cty.StringVal("")},
		{Name: "default", Type: cty.String, Default: cty.StringVal("")},
	}
}

func (c *Component) ApplySetting(name string, v cty.Value) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if name == "name" {
		c.name = v.AsString()
	} else {
		c.fallback = v.AsString()
	}
	return nil
}

// Register registers the component with the engine.
func (m *Module) Register(r *registry.Registry) {
	lookup := m.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	r.RegisterComponent("env", &registry.RegisteredComponent{
		New:         func() component.Component { return &Component{lookup: lookup} },
		Description: "Emits an environment variable.",
	})
}
