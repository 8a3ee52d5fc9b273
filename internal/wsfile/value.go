package wsfile

import (
	"fmt"
	"reflect"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/flowgrid/internal/typebridge"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// ParseValue evaluates src as a constant HCL expression, as used by
// command-line setting overrides: `3`, `"text"`, `true`, `[1, 2]`.
func ParseValue(src string) (cty.Value, error) {
	expr, diags := hclsyntax.ParseExpression([]byte(src), "<value>", hcl.InitialPos)
	if diags.HasErrors() {
		return cty.NilVal, fmt.Errorf("invalid expression %q: %w", src, diags)
	}
	v, diags := expr.Value(nil)
	if diags.HasErrors() {
		return cty.NilVal, fmt.Errorf("cannot evaluate %q: %w", src, diags)
	}
	return v, nil
}

// PortValue converts a cty value into the Go value an input port of type t
// accepts. Numbers become int32, int64 or *big.Int as the port requires;
// ports typed as any receive strings, bools and whole numbers as *big.Int.
func PortValue(v cty.Value, t reflect.Type) (any, error) {
	if v.IsNull() {
		return nil, nil
	}
	if !v.IsWhollyKnown() {
		return nil, fmt.Errorf("value is not known")
	}

	if t == typebridge.Any {
		return dynamicValue(v)
	}

	var want cty.Type
	switch t {
	case typebridge.String, typebridge.Bytes, typebridge.Stream:
		want = cty.String
	case typebridge.Bool:
		want = cty.Bool
	case typebridge.Int32, typebridge.Int64, typebridge.BigInt:
		want = cty.Number
	default:
		return nil, fmt.Errorf("no literal form for port type %s", typebridge.Name(t))
	}

	converted, err := convert.Convert(v, want)
	if err != nil {
		return nil, fmt.Errorf("expected %s: %w", want.FriendlyName(), err)
	}

	switch t {
	case typebridge.Bytes, typebridge.Stream:
		return typebridge.Coerce(converted.AsString(), t)
	case typebridge.BigInt:
		bf := converted.AsBigFloat()
		if !bf.IsInt() {
			return nil, fmt.Errorf("%s is not a whole number", bf.Text('f', -1))
		}
		i, _ := bf.Int(nil)
		return i, nil
	}

	target := reflect.New(t)
	if err := gocty.FromCtyValue(converted, target.Interface()); err != nil {
		return nil, err
	}
	return target.Elem().Interface(), nil
}

func dynamicValue(v cty.Value) (any, error) {
	switch v.Type() {
	case cty.String:
		return v.AsString(), nil
	case cty.Bool:
		return v.True(), nil
	case cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			i, _ := bf.Int(nil)
			return i, nil
		}
		return bf.Text('g', -1), nil
	}
	return nil, fmt.Errorf("unsupported value of type %s", v.Type().FriendlyName())
}
