package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/flowgrid/internal/component"
	"github.com/vk/flowgrid/internal/ctxlog"
	"github.com/vk/flowgrid/internal/typebridge"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// ValidateRegistry instantiates every registered component once and checks
// its port and setting declarations.
func (r *Registry) ValidateRegistry(ctx context.Context) error {
	var errs []string
	logger := ctxlog.FromContext(ctx)

	for _, name := range r.Names() {
		c := r.Components[name].New()
		if c == nil {
			errs = append(errs, fmt.Sprintf("component '%s': factory returned nil", name))
			continue
		}

		seen := make(map[string]struct{})
		for _, p := range c.Ports() {
			if p.Name == "" {
				errs = append(errs, fmt.Sprintf("component '%s': port without a name", name))
				continue
			}
			if _, dup := seen[p.Name]; dup {
				errs = append(errs, fmt.Sprintf("component '%s': duplicate port '%s'", name, p.Name))
			}
			seen[p.Name] = struct{}{}
			if p.Type == nil {
				errs = append(errs, fmt.Sprintf("component '%s', port '%s': missing type", name, p.Name))
				continue
			}
			if p.Direction == component.Output && p.Mandatory {
				errs = append(errs, fmt.Sprintf("component '%s', port '%s': outputs cannot be mandatory", name, p.Name))
			}
			if p.Type == typebridge.Any && !p.Control {
				logger.Debug("Component declares an untyped port; connections to it are never type checked.", "component", name, "port", p.Name)
			}
		}

		cfg, ok := c.(component.Configurable)
		if !ok {
			continue
		}
		for _, s := range cfg.Settings() {
			if s.Type == cty.NilType {
				errs = append(errs, fmt.Sprintf("component '%s', setting '%s': missing type", name, s.Name))
				continue
			}
			if s.Type.Equals(cty.DynamicPseudoType) {
				logger.Warn("Setting declared with 'any' type disables conversion checks.", "component", name, "setting", s.Name)
			}
			if s.Default == cty.NilVal {
				continue
			}
			if _, err := convert.Convert(s.Default, s.Type); err != nil {
				errs = append(errs, fmt.Sprintf("component '%s', setting '%s': default does not conform to %s: %v",
					name, s.Name, s.Type.FriendlyName(), err))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}
