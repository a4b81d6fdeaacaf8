package orchestrator

// State is the lifecycle phase of an Orchestrator.
type State int

const (
	StateIdle State = iota
	StateStarting
	StateReady
	StateRunning
	StateTerminating
	StateCleaned
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateStarting:
		return "Starting"
	case StateReady:
		return "Ready"
	case StateRunning:
		return "Running"
	case StateTerminating:
		return "Terminating"
	case StateCleaned:
		return "Cleaned"
	default:
		return "Unknown"
	}
}

// canStart reports whether Start may be called in this state.
func (s State) canStart() bool {
	return s == StateIdle || s == StateCleaned
}
