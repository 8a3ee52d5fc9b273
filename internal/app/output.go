package app

import (
	"encoding/hex"
	"fmt"
	"sort"
	"unicode/utf8"

	"github.com/vk/flowgrid/internal/node"
	"github.com/vk/flowgrid/internal/resultcache"
	"github.com/vk/flowgrid/internal/typebridge"
	"github.com/vk/flowgrid/internal/workspace"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// collect renders the last value of every port that produced one.
func collect(ports []*node.Port) map[string]string {
	out := make(map[string]string, len(ports))
	for _, p := range ports {
		v, ok := p.Last()
		if !ok {
			continue
		}
		out[p.String()] = formatValue(v)
	}
	return out
}

func formatValue(v any) string {
	if v == nil {
		return "null"
	}
	if b, ok := v.([]byte); ok && !utf8.Valid(b) {
		return hex.EncodeToString(b)
	}
	if s, err := typebridge.Coerce(v, typebridge.String); err == nil {
		return s.(string)
	}
	return fmt.Sprintf("%v", v)
}

// writeOutputs prints results sorted by port reference, either as
// "node.port = value" lines or as one JSON object.
func (a *App) writeOutputs(results map[string]string) error {
	keys := make([]string, 0, len(results))
	for k := range results {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if a.config.JSON {
		attrs := make(map[string]cty.Value, len(results))
		for k, v := range results {
			attrs[k] = cty.StringVal(v)
		}
		obj := cty.EmptyObjectVal
		if len(attrs) > 0 {
			obj = cty.ObjectVal(attrs)
		}
		raw, err := ctyjson.Marshal(obj, obj.Type())
		if err != nil {
			return fmt.Errorf("failed to encode outputs: %w", err)
		}
		_, err = fmt.Fprintln(a.outW, string(raw))
		return err
	}

	for _, k := range keys {
		if _, err := fmt.Fprintf(a.outW, "%s = %s\n", k, results[k]); err != nil {
			return err
		}
	}
	return nil
}

// cacheKey combines the workspace hash with everything outside it that
// changes the printed result: input presets and the output selection.
func (a *App) cacheKey(w *workspace.Workspace, ports []*node.Port) string {
	var extras []string
	for _, in := range a.file.Inputs {
		raw, err := ctyjson.Marshal(in.Value, in.Value.Type())
		if err != nil {
			raw = []byte(in.Value.GoString())
		}
		extras = append(extras, "input:"+in.Port.String()+"="+string(raw))
	}
	for _, raw := range a.config.Inputs {
		extras = append(extras, "input:"+raw)
	}
	for _, p := range ports {
		extras = append(extras, "output:"+p.String())
	}
	return resultcache.Key(w.ComputeHash(), extras...)
}
