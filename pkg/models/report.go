package models

import (
	"time"
)

// ExecutionSummary represents the results of an orchestrated run
type ExecutionSummary struct {
	// Operation details
	OperationID string
	Action      ActionKind
	Interactive bool

	// Timing
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	// Statistics
	Stats Statistics

	// Failures encountered, in processing order
	Failures []FailedOperation

	// Warnings surfaced during the run (multiple masters, critical rollbacks)
	Warnings []string

	// AuditLogPath is where the audit trail was written (empty when disabled)
	AuditLogPath string

	// Aborted is set when the user quit an interactive run before the last group
	Aborted bool
}

// Statistics holds execution counters
type Statistics struct {
	GroupsTotal     int `json:"groups_total"`
	GroupsProcessed int `json:"groups_processed"`
	GroupsDeclined  int `json:"groups_declined"`
	GroupsSkipped   int `json:"groups_skipped"` // master missing at execution time

	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`

	// Rollback failures are also counted in Failed
	RollbackFailures int `json:"rollback_failures"`

	// SymlinkFallbacks counts hardlinks replaced by symlinks across devices
	SymlinkFallbacks int `json:"symlink_fallbacks"`

	BytesReclaimed int64 `json:"bytes_reclaimed"`
}

// FailedOperation records an action that failed on one path
type FailedOperation struct {
	Path      string     `json:"path"`
	Action    ActionKind `json:"action"`
	Error     string     `json:"error"`
	Timestamp time.Time  `json:"timestamp"`
}

// RunStatus represents the overall result
type RunStatus string

const (
	// StatusSuccess indicates no action failed (including nothing to do)
	StatusSuccess RunStatus = "success"
	// StatusFailed indicates every attempted action failed
	StatusFailed RunStatus = "failed"
	// StatusPartial indicates a mix of successes and failures
	StatusPartial RunStatus = "partial"
	// StatusAborted indicates the user quit before all groups were handled
	StatusAborted RunStatus = "aborted"
)

// Status derives the run status from the counters
func (s *ExecutionSummary) Status() RunStatus {
	switch {
	case s.Aborted:
		return StatusAborted
	case s.Stats.Failed == 0:
		return StatusSuccess
	case s.Stats.Succeeded == 0:
		return StatusFailed
	default:
		return StatusPartial
	}
}

// ExitCode returns the process exit code for the run status
func (s RunStatus) ExitCode() int {
	switch s {
	case StatusSuccess:
		return 0
	case StatusFailed:
		return 1
	case StatusPartial:
		return 2
	case StatusAborted:
		return 3
	default:
		return 1
	}
}

// Record folds one outcome into the summary
func (s *ExecutionSummary) Record(path string, requested ActionKind, size int64, outcome Outcome) {
	switch o := outcome.(type) {
	case Success:
		s.Stats.Succeeded++
		s.Stats.BytesReclaimed += size
		if requested == ActionHardlink && o.Action == ActionSymlink {
			s.Stats.SymlinkFallbacks++
		}
	case Skipped:
		s.Stats.Skipped++
	case Failed:
		s.Stats.Failed++
		if o.RollbackErr != nil {
			s.Stats.RollbackFailures++
		}
		s.Failures = append(s.Failures, FailedOperation{
			Path:      path,
			Action:    requested,
			Error:     o.Error(),
			Timestamp: time.Now(),
		})
	default:
		panic("models: unknown outcome type")
	}
}
