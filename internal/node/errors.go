package node

import "fmt"

// ExecutionError wraps a failure raised by a component's Execute or by one
// of its lifecycle hooks.
type ExecutionError struct {
	Node     string
	Phase    string
	Cause    error
	Panicked bool
}

func (e *ExecutionError) Error() string {
	if e.Panicked {
		return fmt.Sprintf("node %q panicked during %s: %v", e.Node, e.Phase, e.Cause)
	}
	return fmt.Sprintf("node %q failed during %s: %v", e.Node, e.Phase, e.Cause)
}

func (e *ExecutionError) Unwrap() error { return e.Cause }

// InputError reports a value that could not be handed to an input port,
// either because coercion failed or because the component refused it.
type InputError struct {
	Port  string
	Value string
	Cause error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("input %s rejected value %s: %v", e.Port, e.Value, e.Cause)
}

func (e *InputError) Unwrap() error { return e.Cause }
