package sync

import "time"

// Phase identifies a step of the sync cycle state machine
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseChecking   Phase = "checking"
	PhaseStaging    Phase = "staging"
	PhaseCommitting Phase = "committing"
	PhasePushing    Phase = "pushing"
	PhaseDone       Phase = "done"
	PhaseFailed     Phase = "failed"
)

// Result captures the outcome of one sync cycle. It is produced per
// invocation and kept only for logging and the status endpoint.
type Result struct {
	Phase        Phase     `json:"phase"`               // terminal phase: done or failed
	FailedIn     Phase     `json:"failed_in,omitempty"` // phase the cycle aborted in
	NoChanges    bool      `json:"no_changes"`          // benign short-circuit taken
	Committed    bool      `json:"committed"`
	Pushed       bool      `json:"pushed"`
	PushAttempts int       `json:"push_attempts"`
	Started      time.Time `json:"started"`
	Error        string    `json:"error,omitempty"`
}
