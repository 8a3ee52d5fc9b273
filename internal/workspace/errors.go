package workspace

import (
	"errors"
	"fmt"

	"github.com/vk/flowgrid/internal/compat"
)

var (
	// ErrStopTimeout is returned by Stop when workers did not return in time.
	ErrStopTimeout = errors.New("workers did not stop within the stop timeout")
	// ErrRunning is returned by operations that need a stopped workspace.
	ErrRunning = errors.New("workspace is running")
	// ErrNotRunning is returned by Stop on a stopped workspace.
	ErrNotRunning = errors.New("workspace is not running")
	// ErrNodeNotFound is returned when a node id or name does not resolve.
	ErrNodeNotFound = errors.New("node not found")
	// ErrEdgeNotFound is returned when an edge id does not resolve.
	ErrEdgeNotFound = errors.New("edge not found")
	// ErrDuplicateName is returned when a node name is already taken.
	ErrDuplicateName = errors.New("duplicate node name")
	// ErrPortNotFound is returned when a port reference does not resolve.
	ErrPortNotFound = errors.New("port not found")
)

// ValidationError rejects a connection the compatibility checker refused.
type ValidationError struct {
	From, To string
	Level    compat.Level
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("cannot connect %s to %s: compatibility is %s", e.From, e.To, e.Level)
}

func wrapf(err error, format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{err}, args...)...)
}
