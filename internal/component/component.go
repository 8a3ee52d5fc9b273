// Package component defines the contract between the execution engine and
// the processing units it schedules.
//
// A component declares its ports once, receives input values one at a time
// through SetInput and returns whatever outputs it produced from Execute.
// The engine never inspects component fields; everything flows through
// these calls. Lifecycle, settings and randomness are opt-in through the
// small interfaces below.
package component

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"reflect"

	"github.com/zclconf/go-cty/cty"
)

// Direction of a port relative to its component.
type Direction int

const (
	Input Direction = iota
	Output
)

func (d Direction) String() string {
	if d == Output {
		return "output"
	}
	return "input"
}

// PortDescriptor declares one port.
type PortDescriptor struct {
	Name        string
	Direction   Direction
	Type        reflect.Type
	Mandatory   bool
	Control     bool
	Description string
}

// Outputs maps an output index (position among the component's output
// descriptors) to the value produced during one Execute call. Indices that
// are absent did not change.
type Outputs map[int]any

// Reporter is handed to Execute for progress and log notifications.
type Reporter interface {
	Progress(current, max float64)
	Log(level slog.Level, msg string, args ...any)
}

// Component is the unit the engine schedules.
type Component interface {
	Ports() []PortDescriptor
	// SetInput assigns the value for the input at index, counted among
	// input descriptors only.
	SetInput(index int, value any) error
	Execute(ctx context.Context, r Reporter) (Outputs, error)
}

// Initializer is called once when the component is placed in a workspace.
type Initializer interface {
	Initialize(ctx context.Context) error
}

// Disposer is called once when the component leaves the workspace.
type Disposer interface {
	Dispose() error
}

// PreExecutor runs before the first firing of every run.
type PreExecutor interface {
	PreExecution(ctx context.Context) error
}

// PostExecutor runs after a run has stopped.
type PostExecutor interface {
	PostExecution(ctx context.Context) error
}

// Stopper is the component's own cancel hook. The engine calls Stop when
// the workspace stops; a long Execute should return soon after.
type Stopper interface {
	Stop()
}

// RandomSource receives a per-instance seeded generator at construction.
type RandomSource interface {
	SetRand(r *rand.Rand)
}

// SettingDescriptor declares a user-editable setting.
type SettingDescriptor struct {
	Name        string
	Type        cty.Type
	Default     cty.Value
	Description string
	// ReadOnly settings are displayed but never changed by users and do not
	// take part in the workspace hash.
	ReadOnly bool
	// DontSave settings are excluded from persistence and from the hash.
	DontSave bool
}

// Configurable components expose settings.
type Configurable interface {
	Settings() []SettingDescriptor
	ApplySetting(name string, value cty.Value) error
}

// InputIndex returns the input-relative index of the named port, or -1.
func InputIndex(ports []PortDescriptor, name string) int {
	return indexOf(ports, Input, name)
}

// OutputIndex returns the output-relative index of the named port, or -1.
func OutputIndex(ports []PortDescriptor, name string) int {
	return indexOf(ports, Output, name)
}

func indexOf(ports []PortDescriptor, dir Direction, name string) int {
	i := 0
	for _, p := range ports {
		if p.Direction != dir {
			continue
		}
		if p.Name == name {
			return i
		}
		i++
	}
	return -1
}
