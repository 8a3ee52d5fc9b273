package wsfile

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/vk/flowgrid/internal/ctxlog"
	"github.com/vk/flowgrid/internal/workspace"
)

// Build adds the file's nodes, settings and connections to w as one
// command, then stores the declared input presets. On failure nothing the
// file added stays in the workspace.
func (f *File) Build(ctx context.Context, w *workspace.Workspace) error {
	logger := ctxlog.FromContext(ctx)

	adds := &workspace.MultiCommand{}
	for _, n := range f.Nodes {
		adds.Commands = append(adds.Commands, &workspace.AddNodeCommand{Type: n.Type, Name: n.Name, Geometry: n.Geometry})
	}
	if err := adds.Apply(ctx, w); err != nil {
		return fmt.Errorf("adding nodes: %w", err)
	}
	undo := func(cause error) error {
		if err := adds.Inverse().Apply(ctx, w); err != nil {
			return errors.Join(cause, fmt.Errorf("rollback: %w", err))
		}
		return cause
	}

	wiring := &workspace.MultiCommand{}
	for i, n := range f.Nodes {
		created := adds.Commands[i].(*workspace.AddNodeCommand).Node()
		keys := make([]string, 0, len(n.Settings))
		for k := range n.Settings {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			wiring.Commands = append(wiring.Commands, &workspace.ChangeSettingCommand{NodeID: created.ID, Key: k, Value: n.Settings[k]})
		}
	}
	for _, c := range f.Connections {
		from, err := w.Port(c.From.Node, c.From.Member)
		if err != nil {
			return undo(fmt.Errorf("connect %s: %w", c.From, err))
		}
		to, err := w.Port(c.To.Node, c.To.Member)
		if err != nil {
			return undo(fmt.Errorf("connect %s: %w", c.To, err))
		}
		wiring.Commands = append(wiring.Commands, &workspace.ConnectCommand{From: from, To: to})
	}
	if err := wiring.Apply(ctx, w); err != nil {
		return undo(err)
	}

	for _, in := range f.Inputs {
		p, err := w.Port(in.Port.Node, in.Port.Member)
		if err != nil {
			return undo(fmt.Errorf("input %s: %w", in.Port, err))
		}
		v, err := PortValue(in.Value, p.Type)
		if err != nil {
			return undo(fmt.Errorf("input %s: %w", in.Port, err))
		}
		if err := w.SetInput(p, v); err != nil {
			return undo(fmt.Errorf("input %s: %w", in.Port, err))
		}
	}

	logger.Info("Workspace built.", "nodes", len(f.Nodes), "connections", len(f.Connections), "inputs", len(f.Inputs))
	return nil
}
