package deployment

import "time"

// EventKind discriminates run events.
type EventKind string

const (
	// EventProgress reports that the run entered a new step.
	EventProgress EventKind = "progress"
	// EventLog carries a human-readable message from a step.
	EventLog EventKind = "log"
	// EventFinished is the final event of a run.
	EventFinished EventKind = "finished"
)

// Severity classifies log events.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Event is one item on a run's ordered event stream. Progress events
// carry Step and the step counters; log events carry Message and
// Severity; the finished event carries the outcome, the deployed
// version, the release URL when one was published, and the history
// record when one was written.
type Event struct {
	Kind EventKind `json:"kind"`
	Time time.Time `json:"time"`

	Step       RunState `json:"step,omitempty"`
	StepIndex  int      `json:"step_index,omitempty"`
	TotalSteps int      `json:"total_steps,omitempty"`

	Message  string   `json:"message,omitempty"`
	Severity Severity `json:"severity,omitempty"`

	Success    bool    `json:"success,omitempty"`
	Version    string  `json:"version,omitempty"`
	ReleaseURL string  `json:"release_url,omitempty"`
	Record     *Record `json:"record,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// ProgressEvent builds a progress event for step.
func ProgressEvent(step RunState, index, total int) Event {
	return Event{
		Kind:       EventProgress,
		Time:       time.Now().UTC(),
		Step:       step,
		StepIndex:  index,
		TotalSteps: total,
	}
}

// LogEvent builds a log event.
func LogEvent(severity Severity, message string) Event {
	return Event{
		Kind:     EventLog,
		Time:     time.Now().UTC(),
		Message:  message,
		Severity: severity,
	}
}

// FinishedEvent builds the terminal event of a run.
func FinishedEvent(success bool, deployedVersion string, err error) Event {
	e := Event{
		Kind:    EventFinished,
		Time:    time.Now().UTC(),
		Success: success,
		Version: deployedVersion,
	}
	if err != nil {
		e.Error = err.Error()
	}
	return e
}
