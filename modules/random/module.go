// Package random provides a source of random big integers.
package random

import (
	"context"
	"fmt"
	"math/big"
	"math/rand/v2"
	"sync"

	"github.com/vk/flowgrid/internal/component"
	"github.com/vk/flowgrid/internal/registry"
	"github.com/vk/flowgrid/internal/typebridge"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// MaxBits bounds the "bits" setting.
const MaxBits = 1 << 16

// Module implements the registry.Module interface for this package.
type Module struct{}

// Component emits a uniformly random non-negative integer below 2^bits.
// Each instance draws from its own generator, seeded by the engine. A
// connected "trigger" makes it draw again on every value received.
type Component struct {
	mu   sync.Mutex
	rng  *rand.Rand
	bits int
}

func (c *Component) Ports() []component.PortDescriptor {
	return []component.PortDescriptor{
		{Name: "trigger", Direction: component.Input, Type: typebridge.Any, Description: "draw again on every value"},
		{Name: "out", Direction: component.Output, Type: typebridge.BigInt},
	}
}

// SetRand implements component.RandomSource.
func (c *Component) SetRand(r *rand.Rand) {
	c.mu.Lock()
	c.rng = r
	c.mu.Unlock()
}

func (c *Component) SetInput(int, any) error { return nil }

func (c *Component) Execute(context.Context, component.Reporter) (component.Outputs, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rng == nil {
		c.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return component.Outputs{0: draw(c.rng, c.bits)}, nil
}

func draw(r *rand.Rand, bits int) *big.Int {
	words := (bits + 63) / 64
	v := new(big.Int)
	for range words {
		v.Lsh(v, 64)
		v.Or(v, new(big.Int).SetUint64(r.Uint64()))
	}
	mask := new(big.Int).Lsh(big.NewInt(1), uint(bits))
	return v.Mod(v, mask)
}

func (c *Component) Settings() []component.SettingDescriptor {
	return []component.SettingDescriptor{
		{Name: "bits", Type: cty.Number, Default: cty.NumberIntVal(64), Description: "size of the drawn number in bits"},
	}
}

func (c *Component) ApplySetting(name string, v cty.Value) error {
	var bits int
	if err := gocty.FromCtyValue(v, &bits); err != nil {
		return fmt.Errorf("bits must be an integer: %w", err)
	}
	if bits < 1 || bits > MaxBits {
		return fmt.Errorf("bits %d outside [1, %d]", bits, MaxBits)
	}
	c.mu.Lock()
	c.bits = bits
	c.mu.Unlock()
	return nil
}

// Register registers the component with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterComponent("random", &registry.RegisteredComponent{
		New:         func() component.Component { return &Component{bits: 64} },
		Description: "Emits a random non-negative big integer.",
	})
}
