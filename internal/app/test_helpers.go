package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vk/flowgrid/internal/registry"
	"github.com/vk/flowgrid/internal/testutil"
)

// SetupAppTest creates a new app instance for system testing. It returns the
// app together with the buffers receiving its results and its logs.
func SetupAppTest(t *testing.T, cfg *Config, modules ...registry.Module) (*App, *testutil.SafeBuffer, *testutil.SafeBuffer) {
	t.Helper()

	out := &testutil.SafeBuffer{}
	logs := &testutil.SafeBuffer{}
	cfg.LogLevel = "debug"
	testApp := NewApp(out, logs, cfg, modules...)

	t.Cleanup(func() {
		if testutil.LogsEnabled() {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logs.String())
		}
	})

	return testApp, out, logs
}

// HarnessResult is the outcome of RunIntegrationTest.
type HarnessResult struct {
	Err    error
	Output string
	Logs   string
}

// RunIntegrationTest writes files (relative path to content) into a fresh
// directory, runs an App over it with cfg and returns what happened. A panic
// during startup is reported as Err.
func RunIntegrationTest(t *testing.T, files map[string]string, cfg Config, modules ...registry.Module) *HarnessResult {
	t.Helper()

	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	cfg.WorkspacePath = dir
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	var (
		testApp  *App
		out      *testutil.SafeBuffer
		logs     *testutil.SafeBuffer
		panicErr any
	)
	func() {
		defer func() { panicErr = recover() }()
		testApp, out, logs = SetupAppTest(t, &cfg, modules...)
	}()
	if panicErr != nil {
		return &HarnessResult{Err: fmt.Errorf("application startup panicked: %v", panicErr)}
	}

	err := testApp.Run(context.Background())
	return &HarnessResult{Err: err, Output: out.String(), Logs: logs.String()}
}
