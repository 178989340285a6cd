package lifecycle

import "time"

type State int

const (
	NotInitialized State = iota
	Initiating
	Polling
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case NotInitialized:
		return "not-initialized"
	case Initiating:
		return "initiating"
	case Polling:
		return "polling"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Attempt describes the most recent convergence poll.
type Attempt struct {
	Count int
	Max   int
	Delay time.Duration
	Last  Outcome
}
