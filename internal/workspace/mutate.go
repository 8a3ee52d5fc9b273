package workspace

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/vk/flowgrid/internal/compat"
	"github.com/vk/flowgrid/internal/node"
	"github.com/zclconf/go-cty/cty"
)

// AddNode builds a component of the registered type, wraps it in a node and
// calls its Initialize hook. An empty name is replaced by "<type>_<n>". When
// the workspace is running the node's worker starts immediately.
func (w *Workspace) AddNode(ctx context.Context, typeName, name string, geometry node.Geometry) (*node.Node, error) {
	comp, rc, err := w.registry.Instantiate(typeName)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = w.uniqueName(typeName)
	}
	n, err := node.New(typeName, name, comp, node.Options{
		Geometry:               geometry,
		RequiresAllInputsFresh: rc.RequiresAllInputsFresh,
		Logger:                 w.logger,
	})
	if err != nil {
		return nil, err
	}
	if err := n.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("initialize %q: %w", name, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.nodeByName(name) != nil {
		if derr := n.Dispose(); derr != nil {
			w.logger.Warn("Dispose failed.", "node", name, "error", derr)
		}
		return nil, wrapf(ErrDuplicateName, "%q", name)
	}
	w.insert(n)
	w.logger.Debug("Node added.", "node", name, "type", typeName, "nodeID", n.ID)
	return n, nil
}

func (w *Workspace) uniqueName(typeName string) string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for i := 1; ; i++ {
		name := fmt.Sprintf("%s_%d", typeName, i)
		if w.nodeByName(name) == nil {
			return name
		}
	}
}

// insert registers n and, during a run, starts its worker. The caller holds
// the write lock.
func (w *Workspace) insert(n *node.Node) {
	w.nodes = append(w.nodes, n)
	w.byID[n.ID] = n
	if w.run != nil {
		n.Prepare(w.run.rt)
		w.run.start(n)
	}
}

// removal is everything RemoveNode took out of the workspace.
type removal struct {
	node    *node.Node
	edges   []*node.Edge
	presets map[*node.Port]any
}

// RemoveNode deletes a node together with its incident edges. A running
// worker is stopped and waited for, then Dispose is called.
func (w *Workspace) RemoveNode(ctx context.Context, id uuid.UUID) error {
	_, err := w.removeNode(ctx, id)
	return err
}

func (w *Workspace) removeNode(ctx context.Context, id uuid.UUID) (*removal, error) {
	w.mu.Lock()
	n, ok := w.byID[id]
	if !ok {
		w.mu.Unlock()
		return nil, wrapf(ErrNodeNotFound, "%s", id)
	}
	r := &removal{node: n, presets: make(map[*node.Port]any)}
	for _, p := range n.Ports() {
		for _, e := range p.Edges() {
			w.detach(e)
			r.edges = append(r.edges, e)
		}
		if v, ok := w.presets[p]; ok {
			r.presets[p] = v
			delete(w.presets, p)
		}
	}
	w.nodes = slices.DeleteFunc(w.nodes, func(x *node.Node) bool { return x == n })
	delete(w.byID, id)
	running := w.run != nil
	w.mu.Unlock()

	if running {
		n.RequestStop()
		select {
		case <-n.Done():
		case <-ctx.Done():
			return r, ctx.Err()
		case <-time.After(w.opts.StopTimeout):
			return r, wrapf(ErrStopTimeout, "node %q", n.Name)
		}
	}
	if err := n.Dispose(); err != nil {
		w.logger.Warn("Dispose failed.", "node", n.Name, "error", err)
	}
	w.logger.Debug("Node removed.", "node", n.Name, "edges", len(r.edges))
	return r, nil
}

// restore puts a removed node back with the edges whose other endpoint is
// still present.
func (w *Workspace) restore(ctx context.Context, r *removal) error {
	select {
	case <-r.node.Done():
	default:
		return fmt.Errorf("restore %q: worker still running", r.node.Name)
	}
	if err := r.node.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize %q: %w", r.node.Name, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.nodeByName(r.node.Name) != nil {
		return wrapf(ErrDuplicateName, "%q", r.node.Name)
	}
	w.insert(r.node)
	for _, e := range r.edges {
		if !w.owns(e.From) || !w.owns(e.To) || w.HasEdge(e.From, e.To) {
			continue
		}
		e.Relink()
		w.edges = append(w.edges, e)
		w.wakeEnds(e)
	}
	for p, v := range r.presets {
		w.presets[p] = v
		if w.run != nil {
			p.Deliver(v)
		}
	}
	w.logger.Debug("Node restored.", "node", r.node.Name)
	return nil
}

// Connect creates an edge from an output port to an input port. The
// connection must grade Green or Yellow, otherwise a *ValidationError is
// returned.
func (w *Workspace) Connect(from, to *node.Port) (*node.Edge, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.owns(from) || !w.owns(to) {
		return nil, ErrPortNotFound
	}
	level := compat.Check(w, from, to)
	if !level.Connectable() {
		return nil, &ValidationError{From: from.String(), To: to.String(), Level: level}
	}
	e, err := node.Link(from, to)
	if err != nil {
		return nil, err
	}
	w.edges = append(w.edges, e)
	w.wakeEnds(e)
	w.logger.Debug("Ports connected.", "edge", e.String(), "edgeID", e.ID, "compatibility", level)
	return e, nil
}

// Disconnect removes an edge. Values already queued on its destination stay.
func (w *Workspace) Disconnect(id uuid.UUID) error {
	_, err := w.disconnect(id)
	return err
}

func (w *Workspace) disconnect(id uuid.UUID) (*node.Edge, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	e := w.edgeByID(id)
	if e == nil {
		return nil, wrapf(ErrEdgeNotFound, "%s", id)
	}
	w.detach(e)
	w.wakeEnds(e)
	w.logger.Debug("Ports disconnected.", "edge", e.String())
	return e, nil
}

// relink attaches a disconnected edge again, keeping its identity.
func (w *Workspace) relink(e *node.Edge) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.owns(e.From) || !w.owns(e.To) {
		return ErrPortNotFound
	}
	if w.HasEdge(e.From, e.To) {
		return &ValidationError{From: e.From.String(), To: e.To.String(), Level: compat.Red}
	}
	e.Relink()
	w.edges = append(w.edges, e)
	w.wakeEnds(e)
	return nil
}

func (w *Workspace) detach(e *node.Edge) {
	e.Unlink()
	w.edges = slices.DeleteFunc(w.edges, func(x *node.Edge) bool { return x == e })
}

func (w *Workspace) wakeEnds(e *node.Edge) {
	if w.run == nil {
		return
	}
	e.From.Node().Wake()
	e.To.Node().Wake()
}

func (w *Workspace) owns(p *node.Port) bool {
	if p == nil {
		return false
	}
	n, ok := w.byID[p.Node().ID]
	return ok && n == p.Node()
}

// ChangeSetting converts value to the setting's declared type and applies it
// to the node's component.
func (w *Workspace) ChangeSetting(id uuid.UUID, key string, value cty.Value) error {
	_, err := w.changeSetting(id, key, value)
	return err
}

func (w *Workspace) changeSetting(id uuid.UUID, key string, value cty.Value) (cty.Value, error) {
	if value == cty.NilVal {
		return cty.NilVal, fmt.Errorf("setting %q: no value", key)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	n, ok := w.byID[id]
	if !ok {
		return cty.NilVal, wrapf(ErrNodeNotFound, "%s", id)
	}
	old, err := n.ApplySetting(key, value)
	if err != nil {
		return cty.NilVal, err
	}
	w.logger.Debug("Setting changed.", "node", n.Name, "setting", key)
	return old, nil
}

// SetInput stores a value that is delivered to an input port at every Start.
// During a run it is delivered at once.
func (w *Workspace) SetInput(p *node.Port, value any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.owns(p) {
		return ErrPortNotFound
	}
	if !p.IsInput() {
		return fmt.Errorf("%s is not an input port", p)
	}
	w.presets[p] = value
	if w.run != nil {
		p.Deliver(value)
		p.Node().Wake()
	}
	return nil
}

// Clear removes every node and edge.
func (w *Workspace) Clear(ctx context.Context) error {
	var errs []error
	for _, n := range w.Nodes() {
		if err := w.RemoveNode(ctx, n.ID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
