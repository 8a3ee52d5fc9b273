package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/flowgrid/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// stringList collects a repeatable flag.
type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ", ") }

func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("flowgrid", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
flowgrid - A concurrent dataflow workspace runner.

Usage:
  flowgrid [options] [WORKSPACE_PATH]
  flowgrid -discover [-json]

Arguments:
  WORKSPACE_PATH
    Path to a single .hcl file or a directory containing .hcl files.

Options:
`)
		flagSet.PrintDefaults()
	}

	var inputs, settings, outputs stringList
	workspaceFlag := flagSet.String("workspace", "", "Path to the workspace file or directory.")
	wFlag := flagSet.String("w", "", "Path to the workspace file or directory (shorthand).")
	timeoutFlag := flagSet.Duration("timeout", 0, "Maximum time to wait for the workspace to settle. 0 waits forever.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	flagSet.Var(&inputs, "input", "Input preset node.port=value. Repeatable.")
	flagSet.Var(&settings, "setting", "Setting override node.key=<hcl expression>. Repeatable.")
	flagSet.Var(&outputs, "output", "Output port node.port to print. Repeatable. Defaults to every unconnected output.")
	jsonFlag := flagSet.Bool("json", false, "Print results (or the discover listing) as JSON.")
	discoverFlag := flagSet.Bool("discover", false, "List the available components and exit.")
	benchmarkFlag := flagSet.Bool("benchmark", false, "Log executions per second while running.")
	sleepFlag := flagSet.Duration("sleep", 0, "Delay before every component execution.")
	waitTimeoutFlag := flagSet.Duration("wait-timeout", 0, "Idle worker poll interval. 0 uses the engine default.")
	stopTimeoutFlag := flagSet.Duration("stop-timeout", 0, "How long stopping waits for workers. 0 uses the engine default.")
	metricsPortFlag := flagSet.Int("metrics-port", 0, "Port for the health check and /metrics server. 0 is disabled.")
	monitorFlag := flagSet.String("monitor-url", "", "socket.io server receiving live node events.")
	cacheFlag := flagSet.String("cache-url", "", "Result cache: memory:// or redis://host:port/db. Empty disables caching.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := ""
	if *workspaceFlag != "" {
		path = *workspaceFlag
	} else if *wFlag != "" {
		path = *wFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	slog.Debug("Workspace path determined.", "path", path)

	if path == "" && !*discoverFlag {
		slog.Debug("No workspace path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		WorkspacePath: path,
		Timeout:       *timeoutFlag,
		LogFormat:     logFormat,
		LogLevel:      logLevel,
		Inputs:        inputs,
		Settings:      settings,
		Outputs:       outputs,
		JSON:          *jsonFlag,
		Discover:      *discoverFlag,
		Benchmark:     *benchmarkFlag,
		SleepTime:     *sleepFlag,
		WaitTimeout:   *waitTimeoutFlag,
		StopTimeout:   *stopTimeoutFlag,
		MetricsPort:   *metricsPortFlag,
		MonitorURL:    *monitorFlag,
		CacheURL:      *cacheFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
