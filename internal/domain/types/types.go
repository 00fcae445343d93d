package types

// SessionStatus describes the lifecycle state of an active session.
// There is no "idle" status: when no session exists the tracker holds nil,
// absence is not a fourth state.
type SessionStatus string

const (
	StatusRunning SessionStatus = "RUNNING"
	StatusPaused  SessionStatus = "PAUSED"
	StatusEnded   SessionStatus = "ENDED"
)

func (s SessionStatus) String() string {
	return string(s)
}

// Valid reports whether the status is one of the known lifecycle states.
func (s SessionStatus) Valid() bool {
	switch s {
	case StatusRunning, StatusPaused, StatusEnded:
		return true
	default:
		return false
	}
}

// ActivityType classifies the tracked activity.
type ActivityType string

const (
	ActivityRun  ActivityType = "RUN"
	ActivityWalk ActivityType = "WALK"
	ActivityRide ActivityType = "RIDE"
	ActivityHike ActivityType = "HIKE"
)
