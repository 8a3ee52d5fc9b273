// Package bignumber provides arbitrary-precision integer arithmetic.
package bignumber

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/vk/flowgrid/internal/component"
	"github.com/vk/flowgrid/internal/registry"
	"github.com/vk/flowgrid/internal/typebridge"
	"github.com/zclconf/go-cty/cty"
)

// MaxExponent bounds the "pow" operation.
const MaxExponent = 1 << 16

// ErrDivisionByZero is returned by "div" and "mod" with a zero divisor.
var ErrDivisionByZero = errors.New("division by zero")

var operations = map[string]func(a, b *big.Int) (*big.Int, error){
	"add": func(a, b *big.Int) (*big.Int, error) { return new(big.Int).Add(a, b), nil },
	"sub": func(a, b *big.Int) (*big.Int, error) { return new(big.Int).Sub(a, b), nil },
	"mul": func(a, b *big.Int) (*big.Int, error) { return new(big.Int).Mul(a, b), nil },
	"div": func(a, b *big.Int) (*big.Int, error) {
		if b.Sign() == 0 {
			return nil, ErrDivisionByZero
		}
		return new(big.Int).Quo(a, b), nil
	},
	"mod": func(a, b *big.Int) (*big.Int, error) {
		if b.Sign() == 0 {
			return nil, ErrDivisionByZero
		}
		return new(big.Int).Rem(a, b), nil
	},
	"pow": func(a, b *big.Int) (*big.Int, error) {
		if b.Sign() < 0 || b.Cmp(big.NewInt(MaxExponent)) > 0 {
			return nil, fmt.Errorf("exponent %s outside [0, %d]", b, MaxExponent)
		}
		return new(big.Int).Exp(a, b, nil), nil
	},
}

// Module implements the registry.Module interface for this package.
type Module struct{}

// Component applies a binary operation to inputs a and b.
type Component struct {
	mu        sync.Mutex
	a, b      *big.Int
	operation string
}

func (c *Component) Ports() []component.PortDescriptor {
	return []component.PortDescriptor{
		{Name: "a", Direction: component.Input, Type: typebridge.BigInt, Mandatory: true},
		{Name: "b", Direction: component.Input, Type: typebridge.BigInt, Mandatory: true},
		{Name: "out", Direction: component.Output, Type: typebridge.BigInt},
	}
}

func (c *Component) SetInput(index int, value any) error {
	v, _ := value.(*big.Int)
	c.mu.Lock()
	defer c.mu.Unlock()
	switch index {
	case 0:
		c.a = v
	case 1:
		c.b = v
	default:
		return fmt.Errorf("no input %d", index)
	}
	return nil
}

func (c *Component) Execute(_ context.Context, r component.Reporter) (component.Outputs, error) {
	c.mu.Lock()
	a, b, op := c.a, c.b, c.operation
	c.mu.Unlock()
	if a == nil || b == nil {
		return nil, errors.New("both operands are required")
	}
	res, err := operations[op](a, b)
	if err != nil {
		return nil, err
	}
	r.Progress(1, 1)
	return component.Outputs{0: res}, nil
}

func (c *Component) Settings() []component.SettingDescriptor {
	return []component.SettingDescriptor{
		{Name: "operation", Type: cty.String, Default: cty.StringVal("add"), Description: "add, sub, mul, div, mod or pow"},
	}
}

func (c *Component) ApplySetting(name string, v cty.Value) error {
	op := v.AsString()
	if _, ok := operations[op]; !ok {
		return fmt.Errorf("unknown operation %q", op)
	}
	c.mu.Lock()
	c.operation = op
	c.mu.Unlock()
	return nil
}

// Register registers the component with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterComponent("bignumber", &registry.RegisteredComponent{
		New:         func() component.Component { return &Component{operation: "add"} },
		Description: "Arbitrary-precision integer arithmetic.",
	})
}
