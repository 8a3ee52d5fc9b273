package node

import (
	"context"
	"time"

	"github.com/vk/flowgrid/internal/metrics"
)

// Run is the node's worker loop. It blocks until the stop flag is set or ctx
// is cancelled, so callers start it on its own goroutine after Prepare.
func (n *Node) Run(ctx context.Context) {
	defer close(n.done)
	metrics.WorkersActive.Inc()
	defer metrics.WorkersActive.Dec()

	rt := n.rt
	timer := time.NewTimer(rt.waitTimeout())
	defer timer.Stop()

	n.logger.Debug("Worker started.")
	for {
		select {
		case <-n.wake:
		case <-timer.C:
		case <-ctx.Done():
			n.RequestStop()
		}
		timer.Reset(rt.waitTimeout())

		if n.stopFlag.Load() {
			n.finish(rt)
			return
		}
		n.step(ctx, rt)
	}
}

func (n *Node) finish(rt *Runtime) {
	if n.State() != Error {
		n.setState(Stopped, rt)
	}
	n.logger.Debug("Worker stopped.", "executions", n.Executions())
}

// step performs one CheckReady and, when ready, one firing.
func (n *Node) step(ctx context.Context, rt *Runtime) {
	rt.Graph.Lock()
	if !n.checkReady() {
		rt.Graph.Unlock()
		return
	}
	n.setState(Running, rt)
	pending := n.drainInputs(rt)
	rt.Graph.Unlock()

	if err := n.fillInputs(pending); err != nil {
		n.fail(err, errorKind(err), rt)
		return
	}

	if rt.SleepTime > 0 {
		select {
		case <-time.After(rt.SleepTime):
		case <-ctx.Done():
		}
	}

	n.setProgress(0, rt)
	outputs, err := n.invoke(ctx, rt)
	if err != nil {
		n.fail(err, "execution", rt)
		return
	}
	n.executions.Add(1)
	metrics.FiringsTotal.WithLabelValues(n.Type).Inc()
	n.setProgress(1, rt)

	rt.Graph.Lock()
	n.propagate(outputs, rt)
	rt.Graph.Unlock()

	n.lastErr.Store(nil)
	n.setState(Idle, rt)
}

func (n *Node) setState(s State, rt *Runtime) {
	if State(n.state.Swap(int32(s))) != s {
		rt.observer().NodeStateChanged(n, s)
	}
}

func (n *Node) fail(err error, kind string, rt *Runtime) {
	n.lastErr.Store(&err)
	metrics.ErrorsTotal.WithLabelValues(n.Type, kind).Inc()
	n.logger.Error("Node failed.", "kind", kind, "error", err)
	n.setState(Error, rt)
}
