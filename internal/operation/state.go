package operation

// State represents the lifecycle state of an operation
type State int

const (
	// StateReady indicates the operation has not been started yet
	StateReady State = iota
	// StateExecuting indicates the operation's body is running
	StateExecuting
	// StateFinished indicates the operation has finished, successfully or cancelled
	StateFinished
)

// String returns a string representation of the State
func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateExecuting:
		return "executing"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether no further transition can happen from s
func (s State) IsTerminal() bool {
	return s == StateFinished
}
