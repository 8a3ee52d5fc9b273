package ctxlog

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromContext(t *testing.T) {
	t.Parallel()

	t.Run("returns installed logger", func(t *testing.T) {
		t.Parallel()
		logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
		ctx := WithLogger(context.Background(), logger)
		assert.Same(t, logger, FromContext(ctx))
	})

	t.Run("panics without logger", func(t *testing.T) {
		t.Parallel()
		assert.Panics(t, func() { FromContext(context.Background()) })
	})

	t.Run("default fallback", func(t *testing.T) {
		t.Parallel()
		assert.Same(t, slog.Default(), FromContextOrDefault(context.Background()))
	})
}

func TestWith(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), slog.New(slog.NewTextHandler(&buf, nil)))
	ctx = With(ctx, "nodeID", "abc")

	FromContext(ctx).Info("hello")
	require.Contains(t, buf.String(), "nodeID=abc")
}
