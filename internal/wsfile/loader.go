package wsfile

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/flowgrid/internal/ctxlog"
	"github.com/vk/flowgrid/internal/fsutil"
	"github.com/vk/flowgrid/internal/portref"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Load parses every .hcl file under the given paths and merges them.
func Load(ctx context.Context, paths ...string) (*File, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Workspace loader started.", "path_count", len(paths))

	files, err := fsutil.CollectFiles(paths, ".hcl")
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl workspace files found in %v", paths)
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	parser := hclparse.NewParser()
	out := &File{}
	for _, path := range files {
		hclFile, diags := parser.ParseHCLFile(path)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
		}
		if err := decodeInto(ctx, out, hclFile.Body, path); err != nil {
			return nil, err
		}
	}
	if err := out.validate(); err != nil {
		return nil, err
	}

	logger.Debug("Workspace loading complete.", "nodes", len(out.Nodes), "connections", len(out.Connections), "inputs", len(out.Inputs))
	return out, nil
}

// Parse decodes a single workspace file held in memory.
func Parse(ctx context.Context, src []byte, filename string) (*File, error) {
	hclFile, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}
	out := &File{}
	if err := decodeInto(ctx, out, hclFile.Body, filename); err != nil {
		return nil, err
	}
	if err := out.validate(); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeInto(ctx context.Context, out *File, body hcl.Body, filename string) error {
	var root fileRoot
	if diags := gohcl.DecodeBody(body, nil, &root); diags.HasErrors() {
		return fmt.Errorf("failed to decode HCL file %s: %w", filename, diags)
	}

	for _, nb := range root.Nodes {
		n, err := translateNode(ctx, nb)
		if err != nil {
			return fmt.Errorf("%s: %w", filename, err)
		}
		out.Nodes = append(out.Nodes, n)
	}
	for _, cb := range root.Connections {
		from, err := portref.Parse(cb.From)
		if err != nil {
			return fmt.Errorf("%s: connect.from: %w", filename, err)
		}
		to, err := portref.Parse(cb.To)
		if err != nil {
			return fmt.Errorf("%s: connect.to: %w", filename, err)
		}
		out.Connections = append(out.Connections, Connection{From: from, To: to})
	}
	for _, ib := range root.Inputs {
		ref, err := portref.Parse(ib.Port)
		if err != nil {
			return fmt.Errorf("%s: input: %w", filename, err)
		}
		v, diags := ib.Value.Value(nil)
		if diags.HasErrors() {
			return fmt.Errorf("%s: input %q: %w", filename, ib.Port, diags)
		}
		out.Inputs = append(out.Inputs, Input{Port: ref, Value: v})
	}
	return nil
}

func translateNode(ctx context.Context, nb *nodeBlock) (Node, error) {
	if !portref.ValidName(nb.Name) {
		return Node{}, fmt.Errorf("node %q: invalid name", nb.Name)
	}
	n := Node{Type: nb.Type, Name: nb.Name, Settings: make(map[string]cty.Value)}

	if isExprDefined(ctx, nb.Position, "position") {
		xy, err := pair(nb.Position)
		if err != nil {
			return Node{}, fmt.Errorf("node %q: position: %w", nb.Name, err)
		}
		n.Geometry.X, n.Geometry.Y = xy[0], xy[1]
	}
	if isExprDefined(ctx, nb.Size, "size") {
		wh, err := pair(nb.Size)
		if err != nil {
			return Node{}, fmt.Errorf("node %q: size: %w", nb.Name, err)
		}
		n.Geometry.Width, n.Geometry.Height = wh[0], wh[1]
	}
	if nb.Z != nil {
		n.Geometry.Z = *nb.Z
	}

	if nb.Settings != nil {
		attrs, diags := nb.Settings.Body.JustAttributes()
		if diags.HasErrors() {
			return Node{}, fmt.Errorf("node %q: settings: %w", nb.Name, diags)
		}
		for name, attr := range attrs {
			v, diags := attr.Expr.Value(nil)
			if diags.HasErrors() {
				return Node{}, fmt.Errorf("node %q: setting %q: %w", nb.Name, name, diags)
			}
			n.Settings[name] = v
		}
	}
	return n, nil
}

// pair evaluates a two-element numeric list such as [x, y].
func pair(expr hcl.Expression) ([2]float64, error) {
	var out [2]float64
	v, diags := expr.Value(nil)
	if diags.HasErrors() {
		return out, diags
	}
	list, err := convert.Convert(v, cty.List(cty.Number))
	if err != nil {
		return out, err
	}
	var nums []float64
	if err := gocty.FromCtyValue(list, &nums); err != nil {
		return out, err
	}
	if len(nums) != 2 {
		return out, fmt.Errorf("expected two numbers, got %d", len(nums))
	}
	copy(out[:], nums)
	return out, nil
}

// isExprDefined checks if an optional HCL attribute was actually present in
// the source. Omitted attributes decode to zero-width placeholder
// expressions, so a nil check is not enough.
func isExprDefined(ctx context.Context, expr hcl.Expression, attrName string) bool {
	if expr == nil {
		return false
	}
	r := expr.Range()
	defined := r.End.Byte > r.Start.Byte
	ctxlog.FromContext(ctx).Debug("Checking if HCL attribute was explicitly defined.", "attribute", attrName, "hcl_range", r.String(), "is_defined", defined)
	return defined
}

func (f *File) validate() error {
	seen := make(map[string]struct{}, len(f.Nodes))
	for _, n := range f.Nodes {
		if _, dup := seen[n.Name]; dup {
			return fmt.Errorf("node %q is declared twice", n.Name)
		}
		seen[n.Name] = struct{}{}
	}
	return nil
}
