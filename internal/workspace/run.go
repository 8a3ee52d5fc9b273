package workspace

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/vk/flowgrid/internal/metrics"
	"github.com/vk/flowgrid/internal/node"
)

// run is the state of one Start..Stop cycle.
type run struct {
	ctx     context.Context
	cancel  context.CancelFunc
	rt      *node.Runtime
	started time.Time

	benchStop chan struct{}
	benchWG   sync.WaitGroup
}

func (r *run) start(n *node.Node) {
	go n.Run(r.ctx)
	n.Wake()
}

// Start resets every node's run state, delivers input presets, runs the
// PreExecution hooks and starts one worker per node. Sources fire on their
// first wake. Start fails with ErrStopTimeout while a worker left over from
// a timed-out Stop has not returned. Cancelling ctx stops the workers just like Stop would, but Stop
// must still be called to finish the run.
func (w *Workspace) Start(ctx context.Context) error {
	w.lifecycle.Lock()
	defer w.lifecycle.Unlock()

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.run != nil {
		return ErrRunning
	}
	for _, n := range w.nodes {
		if n.Busy() {
			return wrapf(ErrStopTimeout, "node %q is still finishing the previous run", n.Name)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	r := &run{
		ctx:    runCtx,
		cancel: cancel,
		rt: &node.Runtime{
			Graph:       w.mu.RLocker(),
			Observer:    w.opts.Observer,
			WaitTimeout: w.opts.WaitTimeout,
			SleepTime:   w.opts.SleepTime,
		},
		started:   time.Now(),
		benchStop: make(chan struct{}),
	}

	for _, n := range w.nodes {
		n.Prepare(r.rt)
	}
	for p, v := range w.presets {
		p.Deliver(v)
	}
	for _, n := range w.nodes {
		if err := n.PreExecution(ctx); err != nil {
			w.logger.Warn("Pre-execution hook failed.", "node", n.Name, "error", err)
		}
	}

	w.logger.Info("🚀 Starting workspace", "nodes", len(w.nodes), "edges", len(w.edges))
	w.run = r
	for _, n := range w.nodes {
		r.start(n)
	}
	if w.opts.Benchmark {
		r.benchWG.Add(1)
		go w.benchmark(r)
	}
	return nil
}

// Stop sets every worker's stop flag, wakes it and waits up to StopTimeout
// for all of them to return. PostExecution hooks run afterwards. Workers
// still busy after the timeout have their context cancelled and
// ErrStopTimeout is returned. Start is refused until they return.
func (w *Workspace) Stop(ctx context.Context) error {
	w.lifecycle.Lock()
	defer w.lifecycle.Unlock()

	w.mu.Lock()
	r := w.run
	if r == nil {
		w.mu.Unlock()
		return ErrNotRunning
	}
	w.run = nil
	nodes := slices.Clone(w.nodes)
	w.mu.Unlock()

	w.logger.Debug("Stopping workspace.", "nodes", len(nodes))
	for _, n := range nodes {
		n.RequestStop()
	}
	stopped := waitAll(nodes, w.opts.StopTimeout)
	r.cancel()
	close(r.benchStop)
	r.benchWG.Wait()

	for _, n := range nodes {
		if err := n.PostExecution(ctx); err != nil {
			w.logger.Warn("Post-execution hook failed.", "node", n.Name, "error", err)
		}
	}

	var executions uint64
	failed := 0
	for _, n := range nodes {
		executions += n.Executions()
		if n.State() == node.Error {
			failed++
		}
	}

	outcome := "ok"
	switch {
	case !stopped:
		outcome = "timeout"
	case failed > 0:
		outcome = "error"
	}
	metrics.RunsTotal.WithLabelValues(outcome).Inc()
	w.logger.Info("🏁 Execution finished.", "duration", time.Since(r.started).Round(time.Millisecond), "executions", executions, "failedNodes", failed)

	if !stopped {
		return ErrStopTimeout
	}
	return nil
}

func waitAll(nodes []*node.Node, timeout time.Duration) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for _, n := range nodes {
		select {
		case <-n.Done():
		case <-deadline.C:
			return false
		}
	}
	return true
}

// Running reports whether the workspace is between Start and Stop.
func (w *Workspace) Running() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.run != nil
}

// Quiescent reports whether nothing can happen any more without outside
// input: no node is firing and none would be ready on its next wake. A
// stopped workspace is quiescent.
func (w *Workspace) Quiescent() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.run == nil {
		return true
	}
	for _, n := range w.nodes {
		if !n.Settled() {
			return false
		}
	}
	return true
}

// Wait blocks until the workspace is quiescent or ctx is done.
func (w *Workspace) Wait(ctx context.Context) error {
	ticker := time.NewTicker(w.opts.WaitTimeout)
	defer ticker.Stop()
	for {
		if w.Quiescent() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Progress averages the progress of all nodes that are not control helpers.
func (w *Workspace) Progress() float64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	sum, count := 0.0, 0
	for _, n := range w.nodes {
		if n.IsControlSlave() {
			continue
		}
		sum += n.Progress()
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// Failed returns the nodes currently in the Error state.
func (w *Workspace) Failed() []*node.Node {
	var out []*node.Node
	for _, n := range w.Nodes() {
		if n.State() == node.Error {
			out = append(out, n)
		}
	}
	return out
}

func (w *Workspace) executions() uint64 {
	var total uint64
	for _, n := range w.Nodes() {
		total += n.Executions()
	}
	return total
}

// benchmark periodically logs and exports the executions-per-second rate.
func (w *Workspace) benchmark(r *run) {
	defer r.benchWG.Done()
	ticker := time.NewTicker(w.opts.BenchmarkInterval)
	defer ticker.Stop()

	last, lastAt := w.executions(), time.Now()
	for {
		select {
		case <-r.benchStop:
			metrics.ExecutionsPerSecond.Set(0)
			return
		case now := <-ticker.C:
			total := w.executions()
			if total < last {
				// A node was removed and took its count along.
				last = total
			}
			rate := float64(total-last) / now.Sub(lastAt).Seconds()
			metrics.ExecutionsPerSecond.Set(rate)
			w.logger.Info("📊 Benchmark", "executionsPerSecond", fmt.Sprintf("%.1f", rate), "total", total)
			last, lastAt = total, now
		}
	}
}
