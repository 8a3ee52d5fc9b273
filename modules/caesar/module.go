// Package caesar provides a Caesar shift cipher.
package caesar

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/vk/flowgrid/internal/component"
	"github.com/vk/flowgrid/internal/registry"
	"github.com/vk/flowgrid/internal/typebridge"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Component shifts the ASCII letters of its input by "shift" positions.
// Other characters pass through unchanged.
type Component struct {
	mu    sync.Mutex
	in    string
	shift int
}

func (c *Component) Ports() []component.PortDescriptor {
	return []component.PortDescriptor{
		{Name: "in", Direction: component.Input, Type: typebridge.String, Mandatory: true},
		{Name: "out", Direction: component.Output, Type: typebridge.String},
	}
}

func (c *Component) SetInput(_ int, value any) error {
	s, _ := value.(string)
	c.mu.Lock()
	c.in = s
	c.mu.Unlock()
	return nil
}

func (c *Component) Execute(context.Context, component.Reporter) (component.Outputs, error) {
	c.mu.Lock()
	in, shift := c.in, c.shift
	c.mu.Unlock()
	return component.Outputs{0: Shift(in, shift)}, nil
}

// Shift applies the cipher. Negative shifts decode.
func Shift(s string, shift int) string {
	shift = ((shift % 26) + 26) % 26
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return 'a' + (r-'a'+rune(shift))%26
		case r >= 'A' && r <= 'Z':
			return 'A' + (r-'A'+rune(shift))%26
		}
		return r
	}, s)
}

func (c *Component) Settings() []component.SettingDescriptor {
	return []component.SettingDescriptor{
		{Name: "shift", Type: cty.Number, Default: cty.NumberIntVal(3)},
	}
}

func (c *Component) ApplySetting(name string, v cty.Value) error {
	var shift int
	if err := gocty.FromCtyValue(v, &shift); err != nil {
		return fmt.Errorf("shift must be an integer: %w", err)
	}
	c.mu.Lock()
	c.shift = shift
	c.mu.Unlock()
	return nil
}

// Register registers the component with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterComponent("caesar", &registry.RegisteredComponent{
		New:         func() component.Component { return &Component{} },
		Description: "Caesar shift cipher.",
	})
}
