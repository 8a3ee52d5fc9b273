package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vk/flowgrid/internal/ctxlog"
	"github.com/vk/flowgrid/internal/monitor"
	"github.com/vk/flowgrid/internal/node"
	"github.com/vk/flowgrid/internal/portref"
	"github.com/vk/flowgrid/internal/resultcache"
	"github.com/vk/flowgrid/internal/sioclient"
	"github.com/vk/flowgrid/internal/workspace"
	"github.com/vk/flowgrid/internal/wsfile"
	"github.com/zclconf/go-cty/cty"
)

// Run executes the main application logic based on the provided configuration.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")
	defer a.logger.Debug("App.Run method finished.")

	if a.config.Discover {
		return a.discover()
	}

	if a.config.MetricsPort > 0 {
		if err := a.startServer(a.config.MetricsPort); err != nil {
			return err
		}
		defer a.closeServer(ctx)
	}

	observer, closeMonitor, err := a.openMonitor(ctx)
	if err != nil {
		return err
	}
	defer closeMonitor()

	w := workspace.New(a.registry, workspace.Options{
		WaitTimeout: a.config.WaitTimeout,
		StopTimeout: a.config.StopTimeout,
		SleepTime:   a.config.SleepTime,
		Benchmark:   a.config.Benchmark,
		Observer:    observer,
		Logger:      a.logger,
	})
	if err := a.file.Build(ctx, w); err != nil {
		return fmt.Errorf("failed to build workspace: %w", err)
	}
	defer func() {
		if err := w.Clear(context.WithoutCancel(ctx)); err != nil {
			a.logger.Warn("Failed to dispose workspace.", "error", err)
		}
	}()

	if err := a.applyOverrides(w); err != nil {
		return err
	}
	ports, err := a.outputPorts(w)
	if err != nil {
		return err
	}
	if len(w.Nodes()) == 0 {
		a.logger.Warn("No nodes found in workspace, execution not required.")
		return nil
	}

	var (
		cache resultcache.Store
		key   string
	)
	if a.config.CacheURL != "" {
		cache, err = resultcache.Open(ctx, a.config.CacheURL)
		if err != nil {
			return fmt.Errorf("failed to open result cache: %w", err)
		}
		defer cache.Close()
		key = a.cacheKey(w, ports)
		entry, err := cache.Get(ctx, key)
		switch {
		case err == nil:
			a.logger.Info("♻️ Using cached results.", "key", key, "cachedAt", entry.CreatedAt)
			return a.writeOutputs(entry.Outputs)
		case !errors.Is(err, resultcache.ErrNotFound):
			a.logger.Warn("Result cache lookup failed.", "error", err)
		}
	}

	results, err := a.execute(ctx, w, ports)
	if err != nil {
		return err
	}

	if cache != nil {
		entry := &resultcache.Entry{Key: key, Outputs: results, CreatedAt: time.Now().UTC()}
		if err := cache.Put(ctx, entry); err != nil {
			a.logger.Warn("Failed to store results in cache.", "error", err)
		}
	}
	return a.writeOutputs(results)
}

// execute runs w until it settles or the timeout expires and collects the
// last value of every selected port.
func (a *App) execute(ctx context.Context, w *workspace.Workspace, ports []*node.Port) (map[string]string, error) {
	if err := w.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start workspace: %w", err)
	}

	waitCtx := ctx
	if a.config.Timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, a.config.Timeout)
		defer cancel()
	}
	waitErr := w.Wait(waitCtx)
	results := collect(ports)
	stopErr := w.Stop(context.WithoutCancel(ctx))

	if waitErr != nil {
		if errors.Is(waitErr, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("workspace did not settle within %s", a.config.Timeout)
		}
		return nil, waitErr
	}
	if stopErr != nil {
		return nil, stopErr
	}

	var errs []error
	for _, n := range w.Failed() {
		errs = append(errs, fmt.Errorf("node %q: %w", n.Name, n.LastError()))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("execution failed: %w", err)
	}
	return results, nil
}

// applyOverrides applies -setting and -input values on top of the file.
func (a *App) applyOverrides(w *workspace.Workspace) error {
	for _, raw := range a.config.Settings {
		ref, expr, _ := portref.ParseAssignment(raw)
		n, ok := w.NodeByName(ref.Node)
		if !ok {
			return fmt.Errorf("setting %s: %w: %q", raw, workspace.ErrNodeNotFound, ref.Node)
		}
		v, err := wsfile.ParseValue(expr)
		if err != nil {
			return fmt.Errorf("setting %s: %w", raw, err)
		}
		if err := w.ChangeSetting(n.ID, ref.Member, v); err != nil {
			return fmt.Errorf("setting %s: %w", raw, err)
		}
	}

	for _, raw := range a.config.Inputs {
		ref, text, _ := portref.ParseAssignment(raw)
		p, err := w.Port(ref.Node, ref.Member)
		if err != nil {
			return fmt.Errorf("input %s: %w", raw, err)
		}
		v, err := wsfile.PortValue(inputLiteral(text), p.Type)
		if err != nil {
			return fmt.Errorf("input %s: %w", raw, err)
		}
		if err := w.SetInput(p, v); err != nil {
			return fmt.Errorf("input %s: %w", raw, err)
		}
	}
	return nil
}

// inputLiteral reads a command-line input as an HCL expression and falls
// back to the raw text, so both -input a.in=42 and -input a.in=hello work.
func inputLiteral(text string) cty.Value {
	if v, err := wsfile.ParseValue(text); err == nil {
		return v
	}
	return cty.StringVal(text)
}

// outputPorts resolves -output selections. Without any, every output port
// that feeds no edge is reported.
func (a *App) outputPorts(w *workspace.Workspace) ([]*node.Port, error) {
	if len(a.config.Outputs) == 0 {
		var ports []*node.Port
		for _, n := range w.Nodes() {
			for _, p := range n.Outputs() {
				if !p.Connected() {
					ports = append(ports, p)
				}
			}
		}
		return ports, nil
	}

	ports := make([]*node.Port, 0, len(a.config.Outputs))
	for _, raw := range a.config.Outputs {
		ref, _ := portref.Parse(raw)
		p, err := w.Port(ref.Node, ref.Member)
		if err != nil {
			return nil, fmt.Errorf("output %s: %w", raw, err)
		}
		ports = append(ports, p)
	}
	return ports, nil
}

func (a *App) openMonitor(ctx context.Context) (node.Observer, func(), error) {
	if a.config.MonitorURL == "" {
		return node.NopObserver{}, func() {}, nil
	}
	bus, err := monitor.DialSocketBus(ctx, sioclient.Options{URL: a.config.MonitorURL})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect monitor: %w", err)
	}
	m := monitor.New(bus, a.logger, monitor.DefaultBuffer)
	a.logger.Info("📡 Streaming node events.", "url", a.config.MonitorURL)
	return m, func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := m.Close(closeCtx); err != nil {
			a.logger.Warn("Monitor did not drain.", "error", err)
		}
		bus.Close()
	}, nil
}
