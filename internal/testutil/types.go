package testutil

import "time"

// ExecutionRecord holds the start and end times of one Execute call.
type ExecutionRecord struct {
	Start time.Time
	End   time.Time
}

// Call is one recorded firing of a FuncComponent.
type Call struct {
	Inputs []any
	ExecutionRecord
}
