package models

// IssueSeverity classifies how badly an Issue degrades a stage's result.
type IssueSeverity string

const (
	SeverityInfo    IssueSeverity = "info"
	SeverityWarning IssueSeverity = "warning"
	SeverityFatal   IssueSeverity = "fatal"
)

// Issue is one structured problem attached to a pipeline stage's status.
// The orchestrator does not fill StageStatus.Issues; a failed stage's
// error message is recorded in StageStatus.Error.
type Issue struct {
	Severity IssueSeverity `json:"severity"`
	Code     string        `json:"code"` // matches an apperr.Kind string, see internal/apperr
	Message  string        `json:"message"`
}

// StageStatus is the enabled/completed/error-with-message status every
// pipeline stage reports, so the final report can distinguish "unsuitable
// data" from "pipeline bug".
type StageStatus struct {
	Name       string  `json:"name"`
	Enabled    bool    `json:"enabled"`
	Completed  bool    `json:"completed"`
	Error      string  `json:"error,omitempty"`
	Issues     []Issue `json:"issues,omitempty"`
	DurationMS int64   `json:"durationMs"`
}
