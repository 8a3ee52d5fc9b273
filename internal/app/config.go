package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/vk/flowgrid/internal/portref"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	WorkspacePath string // .hcl file or directory
	// Timeout bounds how long Run waits for the workspace to settle. Zero
	// waits forever.
	Timeout time.Duration

	LogFormat string
	LogLevel  string

	// Inputs are "node.port=value" presets, Settings "node.key=<expr>"
	// overrides and Outputs "node.port" selections.
	Inputs   []string
	Settings []string
	Outputs  []string
	JSON     bool

	// Discover lists the registered components instead of running.
	Discover bool

	Benchmark   bool
	SleepTime   time.Duration
	WaitTimeout time.Duration
	StopTimeout time.Duration

	MetricsPort int
	MonitorURL  string
	CacheURL    string
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.WorkspacePath == "" && !cfg.Discover {
		return nil, errors.New("WorkspacePath is a required configuration field and cannot be empty")
	}

	var errs []error
	for name, d := range map[string]time.Duration{
		"timeout":      cfg.Timeout,
		"sleep":        cfg.SleepTime,
		"wait-timeout": cfg.WaitTimeout,
		"stop-timeout": cfg.StopTimeout,
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s cannot be negative", name))
		}
	}
	if cfg.MetricsPort < 0 || cfg.MetricsPort > 65535 {
		errs = append(errs, fmt.Errorf("metrics port %d out of range", cfg.MetricsPort))
	}
	for _, raw := range cfg.Inputs {
		if _, _, err := portref.ParseAssignment(raw); err != nil {
			errs = append(errs, fmt.Errorf("input: %w", err))
		}
	}
	for _, raw := range cfg.Settings {
		if _, _, err := portref.ParseAssignment(raw); err != nil {
			errs = append(errs, fmt.Errorf("setting: %w", err))
		}
	}
	for _, raw := range cfg.Outputs {
		if _, err := portref.Parse(raw); err != nil {
			errs = append(errs, fmt.Errorf("output: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	return &cfg, nil
}
