package models

// Outcome is the terminal state of one action on one duplicate.
// The only implementations are Success, Skipped and Failed.
type Outcome interface {
	outcome()
}

// Success means the requested link or deletion is in place
type Success struct {
	// Action is the action actually performed (symlink after a cross-device fallback)
	Action ActionKind

	// LinkPath is where the link was created (the duplicate path, or inside the target dir)
	LinkPath string
}

// Skipped means nothing had to be done
type Skipped struct {
	Reason string
}

// Failed means the duplicate was left as it was, unless RollbackErr is set
type Failed struct {
	Err error

	// RollbackErr is set when restoring the original file failed
	RollbackErr error

	// OrphanedTemp is the temp file left on disk after a failed rollback
	OrphanedTemp string
}

func (Success) outcome() {}
func (Skipped) outcome() {}
func (Failed) outcome()  {}

// Skip reasons reported by the executor and orchestrator
const (
	SkipAlreadyHardlinked = "already hardlinked to master"
	SkipAlreadySymlinked  = "already symlinked to master"
	SkipDuplicateMissing  = "duplicate no longer exists"
	SkipMasterMissing     = "master no longer exists"
	SkipUserDeclined      = "skipped by user"
	SkipCompareOnly       = "compare mode"
)

// Error returns the failure message including the rollback failure, if any
func (f Failed) Error() string {
	msg := "unknown error"
	if f.Err != nil {
		msg = f.Err.Error()
	}
	if f.RollbackErr != nil {
		msg += "; rollback failed: " + f.RollbackErr.Error()
		if f.OrphanedTemp != "" {
			msg += " (temp file left at " + f.OrphanedTemp + ")"
		}
	}
	return msg
}

// Unwrap exposes the primary error
func (f Failed) Unwrap() error {
	return f.Err
}
