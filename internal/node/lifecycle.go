package node

import (
	"context"
	"fmt"

	"github.com/vk/flowgrid/internal/component"
)

// Initialize calls the component's Initialize hook, if any.
func (n *Node) Initialize(ctx context.Context) error {
	if c, ok := n.Component.(component.Initializer); ok {
		return n.hook(ctx, "initialize", c.Initialize)
	}
	return nil
}

// PreExecution runs the component's pre-run hook. A failure puts the node in
// the Error state; the rest of the run proceeds.
func (n *Node) PreExecution(ctx context.Context) error {
	c, ok := n.Component.(component.PreExecutor)
	if !ok {
		return nil
	}
	if err := n.hook(ctx, "pre-execution", c.PreExecution); err != nil {
		n.fail(err, "hook", n.rt)
		return err
	}
	return nil
}

// PostExecution runs the component's post-run hook.
func (n *Node) PostExecution(ctx context.Context) error {
	c, ok := n.Component.(component.PostExecutor)
	if !ok {
		return nil
	}
	if err := n.hook(ctx, "post-execution", c.PostExecution); err != nil {
		n.fail(err, "hook", n.rt)
		return err
	}
	return nil
}

// Dispose calls the component's Dispose hook, if any.
func (n *Node) Dispose() error {
	if c, ok := n.Component.(component.Disposer); ok {
		return n.hook(context.Background(), "dispose", func(context.Context) error { return c.Dispose() })
	}
	return nil
}

func (n *Node) hook(ctx context.Context, phase string, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ExecutionError{Node: n.Name, Phase: phase, Cause: fmt.Errorf("%v", r), Panicked: true}
		}
	}()
	if err := fn(ctx); err != nil {
		return &ExecutionError{Node: n.Name, Phase: phase, Cause: err}
	}
	return nil
}
