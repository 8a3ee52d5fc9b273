package registry

import (
	"errors"
	"fmt"
	"sort"

	"github.com/vk/flowgrid/internal/component"
)

// ErrUnknownComponent is returned when a type name has no registration.
var ErrUnknownComponent = errors.New("unknown component type")

// Module is the interface that all component modules implement to be
// registered.
type Module interface {
	Register(r *Registry)
}

// Registry holds the registered component factories of one application
// instance.
type Registry struct {
	Components map[string]*RegisteredComponent
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{
		Components: make(map[string]*RegisteredComponent),
	}
}

// Lookup returns the registration for a component type.
func (r *Registry) Lookup(name string) (*RegisteredComponent, error) {
	rc, ok := r.Components[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownComponent, name)
	}
	return rc, nil
}

// Names returns all registered type names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.Components))
	for name := range r.Components {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Instantiate builds a fresh component of the given type.
func (r *Registry) Instantiate(name string) (component.Component, *RegisteredComponent, error) {
	rc, err := r.Lookup(name)
	if err != nil {
		return nil, nil, err
	}
	c := rc.New()
	if c == nil {
		return nil, nil, fmt.Errorf("factory for %q returned nil", name)
	}
	return c, rc, nil
}
