package relay

// Role is fixed for the lifetime of a process.
type Role int

const (
	RoleClient Role = iota
	RoleHub
)

func (r Role) String() string {
	if r == RoleHub {
		return "hub"
	}
	return "client"
}

// State is the session lifecycle:
// Idle → Connecting → Active → ShuttingDown → Terminated.
// A failed connect goes straight from Connecting to Terminated.
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateActive
	StateShuttingDown
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateShuttingDown:
		return "shutting-down"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}
