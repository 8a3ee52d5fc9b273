package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/flowgrid/internal/app"
)

func TestParse(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		args     []string
		want     *app.Config
		wantExit bool
		wantCode int
	}{
		{
			name: "positional path with defaults",
			args: []string{"ws.hcl"},
			want: &app.Config{WorkspacePath: "ws.hcl", LogFormat: "text", LogLevel: "info"},
		},
		{
			name: "every flag",
			args: []string{
				"-w", "dir", "-timeout", "5s", "-log-format", "JSON", "-log-level", "DEBUG",
				"-input", "a.in=1", "-input", "b.in=two", "-setting", `c.shift=3`, "-output", "c.out",
				"-json", "-benchmark", "-sleep", "10ms", "-wait-timeout", "20ms", "-stop-timeout", "2s",
				"-metrics-port", "9090", "-monitor-url", "http://localhost:3000/socket.io/", "-cache-url", "memory://",
			},
			want: &app.Config{
				WorkspacePath: "dir",
				Timeout:       5 * time.Second,
				LogFormat:     "json",
				LogLevel:      "debug",
				Inputs:        []string{"a.in=1", "b.in=two"},
				Settings:      []string{"c.shift=3"},
				Outputs:       []string{"c.out"},
				JSON:          true,
				Benchmark:     true,
				SleepTime:     10 * time.Millisecond,
				WaitTimeout:   20 * time.Millisecond,
				StopTimeout:   2 * time.Second,
				MetricsPort:   9090,
				MonitorURL:    "http://localhost:3000/socket.io/",
				CacheURL:      "memory://",
			},
		},
		{
			name: "long flag wins over positional",
			args: []string{"-workspace", "a.hcl", "b.hcl"},
			want: &app.Config{WorkspacePath: "a.hcl", LogFormat: "text", LogLevel: "info"},
		},
		{
			name: "discover without path",
			args: []string{"-discover"},
			want: &app.Config{Discover: true, LogFormat: "text", LogLevel: "info"},
		},
		{name: "no path prints usage", args: nil, wantExit: true},
		{name: "help", args: []string{"-h"}, wantExit: true},
		{name: "unknown flag", args: []string{"-nope"}, wantCode: 2},
		{name: "bad log format", args: []string{"-log-format", "xml", "x"}, wantCode: 2},
		{name: "bad log level", args: []string{"-log-level", "trace", "x"}, wantCode: 2},
		{name: "bad input", args: []string{"-input", "novalue", "x"}, wantCode: 2},
		{name: "negative timeout", args: []string{"-timeout", "-1s", "x"}, wantCode: 2},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var out bytes.Buffer
			cfg, exit, err := Parse(tc.args, &out)

			if tc.wantCode != 0 {
				var exitErr *ExitError
				require.ErrorAs(t, err, &exitErr)
				assert.Equal(t, tc.wantCode, exitErr.Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantExit, exit)
			if tc.wantExit {
				assert.Contains(t, out.String(), "Usage:")
				return
			}
			if diff := cmp.Diff(tc.want, cfg); diff != "" {
				t.Errorf("config mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
