package workspace

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/vk/flowgrid/internal/node"
	"github.com/zclconf/go-cty/cty"
)

// Command is one undoable workspace mutation. Inverse is only meaningful
// after a successful Apply and returns nil before it.
type Command interface {
	Apply(ctx context.Context, w *Workspace) error
	Inverse() Command
}

// AddNodeCommand adds a node of a registered type.
type AddNodeCommand struct {
	Type     string
	Name     string
	Geometry node.Geometry

	node *node.Node
}

func (c *AddNodeCommand) Apply(ctx context.Context, w *Workspace) error {
	n, err := w.AddNode(ctx, c.Type, c.Name, c.Geometry)
	if err != nil {
		return err
	}
	c.node = n
	return nil
}

func (c *AddNodeCommand) Inverse() Command {
	if c.node == nil {
		return nil
	}
	return &RemoveNodeCommand{ID: c.node.ID}
}

// Node returns the node created by Apply.
func (c *AddNodeCommand) Node() *node.Node { return c.node }

// RemoveNodeCommand removes a node and its edges. Its inverse puts back the
// same node with the same edges.
type RemoveNodeCommand struct {
	ID uuid.UUID

	removed *removal
}

func (c *RemoveNodeCommand) Apply(ctx context.Context, w *Workspace) error {
	r, err := w.removeNode(ctx, c.ID)
	if r != nil {
		c.removed = r
	}
	return err
}

func (c *RemoveNodeCommand) Inverse() Command {
	if c.removed == nil {
		return nil
	}
	return &restoreNodeCommand{removed: c.removed}
}

type restoreNodeCommand struct {
	removed *removal
}

func (c *restoreNodeCommand) Apply(ctx context.Context, w *Workspace) error {
	return w.restore(ctx, c.removed)
}

func (c *restoreNodeCommand) Inverse() Command {
	return &RemoveNodeCommand{ID: c.removed.node.ID}
}

// ConnectCommand connects an output port to an input port.
type ConnectCommand struct {
	From, To *node.Port

	edge *node.Edge
}

func (c *ConnectCommand) Apply(_ context.Context, w *Workspace) error {
	e, err := w.Connect(c.From, c.To)
	if err != nil {
		return err
	}
	c.edge = e
	return nil
}

func (c *ConnectCommand) Inverse() Command {
	if c.edge == nil {
		return nil
	}
	return &DisconnectCommand{EdgeID: c.edge.ID}
}

// Edge returns the edge created by Apply.
func (c *ConnectCommand) Edge() *node.Edge { return c.edge }

// DisconnectCommand removes an edge. Its inverse re-attaches the same edge.
type DisconnectCommand struct {
	EdgeID uuid.UUID

	edge *node.Edge
}

func (c *DisconnectCommand) Apply(_ context.Context, w *Workspace) error {
	e, err := w.disconnect(c.EdgeID)
	if err != nil {
		return err
	}
	c.edge = e
	return nil
}

func (c *DisconnectCommand) Inverse() Command {
	if c.edge == nil {
		return nil
	}
	return &relinkCommand{edge: c.edge}
}

type relinkCommand struct {
	edge *node.Edge
}

func (c *relinkCommand) Apply(_ context.Context, w *Workspace) error {
	return w.relink(c.edge)
}

func (c *relinkCommand) Inverse() Command {
	return &DisconnectCommand{EdgeID: c.edge.ID}
}

// ChangeSettingCommand changes one setting of a node.
type ChangeSettingCommand struct {
	NodeID uuid.UUID
	Key    string
	Value  cty.Value

	old     cty.Value
	applied bool
}

func (c *ChangeSettingCommand) Apply(_ context.Context, w *Workspace) error {
	old, err := w.changeSetting(c.NodeID, c.Key, c.Value)
	if err != nil {
		return err
	}
	c.old, c.applied = old, true
	return nil
}

// Inverse restores the previous value. A setting that had no value before
// cannot be unset again, so its inverse is nil.
func (c *ChangeSettingCommand) Inverse() Command {
	if !c.applied || c.old == cty.NilVal {
		return nil
	}
	return &ChangeSettingCommand{NodeID: c.NodeID, Key: c.Key, Value: c.old}
}

// MultiCommand applies several commands as one. If one fails, the commands
// already applied are rolled back in reverse order.
type MultiCommand struct {
	Commands []Command

	applied bool
}

func (c *MultiCommand) Apply(ctx context.Context, w *Workspace) error {
	for i, cmd := range c.Commands {
		if err := cmd.Apply(ctx, w); err != nil {
			rollback := rollback(ctx, w, c.Commands[:i])
			return errors.Join(fmt.Errorf("command %d of %d: %w", i+1, len(c.Commands), err), rollback)
		}
	}
	c.applied = true
	return nil
}

func rollback(ctx context.Context, w *Workspace, done []Command) error {
	var errs []error
	for i := len(done) - 1; i >= 0; i-- {
		inv := done[i].Inverse()
		if inv == nil {
			continue
		}
		if err := inv.Apply(ctx, w); err != nil {
			errs = append(errs, fmt.Errorf("rollback of command %d: %w", i+1, err))
		}
	}
	return errors.Join(errs...)
}

func (c *MultiCommand) Inverse() Command {
	if !c.applied {
		return nil
	}
	inv := &MultiCommand{}
	for i := len(c.Commands) - 1; i >= 0; i-- {
		if sub := c.Commands[i].Inverse(); sub != nil {
			inv.Commands = append(inv.Commands, sub)
		}
	}
	return inv
}
