package registry

import (
	"fmt"
	"log/slog"

	"github.com/vk/flowgrid/internal/component"
)

// RegisteredComponent holds the compiled Go parts of a component type.
type RegisteredComponent struct {
	New         func() component.Component
	Description string
	// RequiresAllInputsFresh is copied onto every node built from this type.
	RequiresAllInputsFresh bool
}

// RegisterComponent registers a component factory under name.
func (r *Registry) RegisterComponent(name string, rc *RegisteredComponent) {
	if _, exists := r.Components[name]; exists {
		panic(fmt.Sprintf("component with name '%s' already registered", name))
	}
	if rc == nil || rc.New == nil {
		panic(fmt.Sprintf("component '%s' registered without a factory", name))
	}
	slog.Debug("Registering component.", "name", name)
	r.Components[name] = rc
}
