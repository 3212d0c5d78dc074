package slot

// State is where a slot is in its lifecycle.
//
//	NotStarted -> Running -> Completed
//	NotStarted -> SkippedCompleted
//
// Completed and SkippedCompleted are terminal.
type State int

const (
	NotStarted State = iota
	Running
	Completed
	SkippedCompleted
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not started"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case SkippedCompleted:
		return "skipped"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s == Completed || s == SkippedCompleted
}
