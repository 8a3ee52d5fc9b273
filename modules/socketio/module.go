// Package socketio provides a component that emits the values it receives
// as socket.io events and can wait for a reply event.
package socketio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vk/flowgrid/internal/component"
	"github.com/vk/flowgrid/internal/ctxlog"
	"github.com/vk/flowgrid/internal/registry"
	"github.com/vk/flowgrid/internal/sioclient"
	"github.com/vk/flowgrid/internal/typebridge"
	"github.com/zclconf/go-cty/cty"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// ErrNotConnected is returned by Execute outside a run.
var ErrNotConnected = errors.New("socket.io client is not connected")

type config struct {
	URL                string
	Namespace          string
	EmitEvent          string
	OnEvent            string
	Timeout            time.Duration
	InsecureSkipVerify bool
}

// Component holds one connection per run. It connects in PreExecution,
// emits on every firing and disconnects in PostExecution.
type Component struct {
	mu      sync.Mutex
	cfg     config
	data    any
	io      *socket.Socket
	replies chan any
}

func (c *Component) Ports() []component.PortDescriptor {
	return []component.PortDescriptor{
		{Name: "data", Direction: component.Input, Type: typebridge.Any, Mandatory: true},
		{Name: "response", Direction: component.Output, Type: typebridge.Any, Description: "payload of the on_event reply"},
	}
}

func (c *Component) SetInput(_ int, value any) error {
	c.mu.Lock()
	c.data = value
	c.mu.Unlock()
	return nil
}

// PreExecution dials the configured server.
func (c *Component) PreExecution(ctx context.Context) error {
	c.mu.Lock()
	cfg := c.cfg
	c.mu.Unlock()
	if cfg.URL == "" {
		return errors.New("url setting is required")
	}

	io, err := sioclient.Dial(ctx, sioclient.Options{
		URL:                cfg.URL,
		Namespace:          cfg.Namespace,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
		ConnectTimeout:     cfg.Timeout,
	})
	if err != nil {
		return err
	}

	replies := make(chan any, 16)
	if cfg.OnEvent != "" {
		io.On(types.EventName(cfg.OnEvent), func(data ...any) {
			var payload any
			if len(data) > 0 {
				payload = data[0]
			}
			select {
			case replies <- payload:
			default:
				ctxlog.FromContextOrDefault(ctx).Warn("Dropping socket.io reply, nobody is waiting.", "event", cfg.OnEvent)
			}
		})
	}

	c.mu.Lock()
	c.io, c.replies = io, replies
	c.mu.Unlock()
	return nil
}

func (c *Component) Execute(ctx context.Context, r component.Reporter) (component.Outputs, error) {
	c.mu.Lock()
	io, replies, cfg, data := c.io, c.replies, c.cfg, c.data
	c.mu.Unlock()
	if io == nil {
		return nil, ErrNotConnected
	}

	r.Log(slog.LevelInfo, "Emitting event", "event", cfg.EmitEvent)
	io.Emit(cfg.EmitEvent, data)
	if cfg.OnEvent == "" {
		return nil, nil
	}

	timer := time.NewTimer(cfg.Timeout)
	defer timer.Stop()
	select {
	case payload := <-replies:
		return component.Outputs{0: payload}, nil
	case <-timer.C:
		return nil, fmt.Errorf("timed out after %s waiting for event '%s'", cfg.Timeout, cfg.OnEvent)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// PostExecution disconnects.
func (c *Component) PostExecution(context.Context) error {
	c.mu.Lock()
	io := c.io
	c.io, c.replies = nil, nil
	c.mu.Unlock()
	if io != nil {
		io.Disconnect()
	}
	return nil
}

func (c *Component) Settings() []component.SettingDescriptor {
	return []component.SettingDescriptor{
		{Name: "url", Type: cty.String, Default: cty.StringVal(""), Description: "server URL, e.g. http://localhost:3000/socket.io/"},
		{Name: "namespace", Type: cty.String, Default: cty.StringVal("/")},
		{Name: "emit_event", Type: cty.String, Default: cty.StringVal("message")},
		{Name: "on_event", Type: cty.String, Default: cty.StringVal(""), Description: "reply event to wait for; empty emits without waiting"},
		{Name: "timeout", Type: cty.String, Default: cty.StringVal("10s")},
		{Name: "insecure_skip_verify", Type: cty.Bool, Default: cty.False},
	}
}

func (c *Component) ApplySetting(name string, v cty.Value) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch name {
	case "url":
		c.cfg.URL = v.AsString()
	case "namespace":
		c.cfg.Namespace = v.AsString()
	case "emit_event":
		if v.AsString() == "" {
			return errors.New("emit_event cannot be empty")
		}
		c.cfg.EmitEvent = v.AsString()
	case "on_event":
		c.cfg.OnEvent = v.AsString()
	case "timeout":
		d, err := time.ParseDuration(v.AsString())
		if err != nil {
			return err
		}
		if d <= 0 {
			return fmt.Errorf("timeout must be positive, got %s", d)
		}
		c.cfg.Timeout = d
	case "insecure_skip_verify":
		c.cfg.InsecureSkipVerify = v.True()
	default:
		return fmt.Errorf("unknown setting %q", name)
	}
	return nil
}

// Register registers the component with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterComponent("socketio", &registry.RegisteredComponent{
		New:         func() component.Component { return &Component{} },
		Description: "Emits values as socket.io events.",
	})
}
