package node

// State represents the run state of a node.
type State int32

const (
	// Idle indicates the node is waiting for its next wake.
	Idle State = iota
	// Running indicates the node is filling inputs or executing.
	Running
	// Error indicates the last firing failed. It sticks until the next
	// successful firing or a run-state reset.
	Error
	// Stopped is terminal for a run and only reached on explicit stop.
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Error:
		return "error"
	case Stopped:
		return "stopped"
	}
	return "unknown"
}

// Geometry is the presentation-only placement of a graph element.
type Geometry struct {
	X, Y          float64
	Width, Height float64
	Z             int
}
