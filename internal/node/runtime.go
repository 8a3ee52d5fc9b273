package node

import (
	"sync"
	"time"

	"github.com/vk/flowgrid/internal/component"
)

// DefaultWaitTimeout bounds how long an idle worker sleeps before it
// re-checks its stop flag and readiness without being woken.
const DefaultWaitTimeout = 10 * time.Millisecond

// Runtime is shared by every node of one run.
type Runtime struct {
	// Graph is held for reading while a node walks ports and edges. Structural
	// mutations take the matching write lock.
	Graph       sync.Locker
	Observer    Observer
	WaitTimeout time.Duration
	// SleepTime delays every Execute call, for slowed-down demonstrations.
	SleepTime time.Duration
}

func (rt *Runtime) observer() Observer {
	if rt == nil || rt.Observer == nil {
		return NopObserver{}
	}
	return rt.Observer
}

func (rt *Runtime) waitTimeout() time.Duration {
	if rt.WaitTimeout <= 0 {
		return DefaultWaitTimeout
	}
	return rt.WaitTimeout
}

type nopLocker struct{}

func (nopLocker) Lock()   {}
func (nopLocker) Unlock() {}

// Prepare resets the node's run state for a new run bound to rt: queues and
// last values are cleared, state returns to Idle, progress and counters to
// zero. The caller must hold the structural write lock and the previous
// worker must have returned (see Busy).
func (n *Node) Prepare(rt *Runtime) {
	if rt.Graph == nil {
		rt.Graph = nopLocker{}
	}
	n.rt = rt
	n.wake = make(chan struct{}, 1)
	n.done = make(chan struct{})
	n.stopFlag.Store(false)
	n.sourceFired = false
	n.state.Store(int32(Idle))
	n.progress.Store(0)
	n.executions.Store(0)
	n.lastErr.Store(nil)
	for _, p := range n.Ports() {
		p.reset()
		for _, e := range p.edges {
			e.active.Store(false)
		}
	}
}

// Wake signals the worker. Signals coalesce: a pending wake absorbs new ones.
func (n *Node) Wake() {
	select {
	case n.wake <- struct{}{}:
	default:
	}
}

// RequestStop sets the cooperative stop flag, calls the component's own
// cancel hook and wakes the worker.
func (n *Node) RequestStop() {
	if n.stopFlag.Swap(true) {
		return
	}
	if s, ok := n.Component.(component.Stopper); ok {
		s.Stop()
	}
	n.Wake()
}

// Done is closed when the worker of the current run has returned.
func (n *Node) Done() <-chan struct{} { return n.done }

// Busy reports whether the worker of the last prepared run has not returned
// yet. A node that was never prepared is not busy. The caller must hold the
// structural lock.
func (n *Node) Busy() bool {
	if n.done == nil {
		return false
	}
	select {
	case <-n.done:
		return false
	default:
		return true
	}
}
