package monitor

import (
	"context"

	"github.com/vk/flowgrid/internal/sioclient"
	"github.com/zishang520/socket.io-client-go/socket"
)

// Bus publishes named events with structured fields.
type Bus interface {
	Emit(ctx context.Context, event string, fields map[string]any) error
}

// NullBus is a no-op bus.
type NullBus struct{}

func (NullBus) Emit(context.Context, string, map[string]any) error { return nil }

// SocketBus emits events to a socket.io server.
type SocketBus struct {
	sock *socket.Socket
}

// DialSocketBus connects a SocketBus.
func DialSocketBus(ctx context.Context, opts sioclient.Options) (*SocketBus, error) {
	sock, err := sioclient.Dial(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &SocketBus{sock: sock}, nil
}

func (b *SocketBus) Emit(_ context.Context, event string, fields map[string]any) error {
	b.sock.Emit(event, fields)
	return nil
}

// Close disconnects from the server.
func (b *SocketBus) Close() {
	b.sock.Disconnect()
}

var (
	_ Bus = NullBus{}
	_ Bus = (*SocketBus)(nil)
)
