package testutil

import (
	"github.com/vk/flowgrid/internal/component"
	"github.com/vk/flowgrid/internal/registry"
)

// SimpleModule is a test helper for registering a single component type
// whose instances are handed out from a fixed factory.
type SimpleModule struct {
	Name                   string
	New                    func() component.Component
	RequiresAllInputsFresh bool
}

// Register implements the registry.Module interface.
func (m *SimpleModule) Register(r *registry.Registry) {
	r.RegisterComponent(m.Name, &registry.RegisteredComponent{
		New:                    m.New,
		Description:            "test component " + m.Name,
		RequiresAllInputsFresh: m.RequiresAllInputsFresh,
	})
}
