package testutil

import (
	"bytes"
	"log/slog"
	"os"
	"sync"
	"testing"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// NewLogger returns a debug-level text logger writing into a SafeBuffer.
// With FLOWGRID_TEST_LOGS=true the captured output is dumped when the test
// finishes.
func NewLogger(t *testing.T) (*slog.Logger, *SafeBuffer) {
	t.Helper()
	buf := &SafeBuffer{}
	logger := slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	t.Cleanup(func() {
		if LogsEnabled() {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), buf.String())
		}
	})
	return logger, buf
}

// LogsEnabled reports whether captured test logs should be dumped, which
// FLOWGRID_TEST_LOGS=true requests.
func LogsEnabled() bool {
	return os.Getenv("FLOWGRID_TEST_LOGS") == "true"
}

// NopReporter discards progress and log notifications.
type NopReporter struct{}

func (NopReporter) Progress(float64, float64) {}
func (NopReporter) Log(slog.Level, string, ...any) {}
