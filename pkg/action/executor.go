// Package action replaces duplicate files with links to their master, or
// deletes them, without ever leaving a duplicate half-processed.
package action

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sdejongh/dupelink/pkg/fsprobe"
	"github.com/sdejongh/dupelink/pkg/logging"
	"github.com/sdejongh/dupelink/pkg/models"
)

// DefaultTempSuffix is appended to a duplicate while it is being replaced
const DefaultTempSuffix = ".dupelink.tmp"

var (
	// ErrAlreadyExists is returned when a temp or target path is taken
	ErrAlreadyExists = errors.New("path already exists")
	// ErrUnsupported is returned for action/mode combinations that cannot run
	ErrUnsupported = errors.New("operation not supported")
)

// Verifier compares two files byte by byte
type Verifier interface {
	Verify(ctx context.Context, pathA, pathB string) error
}

// Options configure an Executor
type Options struct {
	// FallbackToSymlink creates a symlink when a hardlink fails across filesystems
	FallbackToSymlink bool

	// TargetDir, when set, receives the links (mirroring each duplicate's
	// path relative to its tree) and the duplicates are removed
	TargetDir string

	// Verify compares duplicate and master byte by byte before acting
	Verify bool

	// TempSuffix overrides DefaultTempSuffix
	TempSuffix string
}

// Executor performs one action on one duplicate at a time.
//
// In place, a duplicate is first renamed to a temp name, the link is created
// at the original path, and the temp file is removed. Any failure after the
// rename restores the temp file, so a duplicate always ends either as the
// original file or as the requested link. A failed restore is logged as
// critical and reported in models.Failed.OrphanedTemp.
type Executor struct {
	options  Options
	logger   logging.Logger
	ops      fileOps
	verifier Verifier
}

// NewExecutor creates an executor; a nil logger discards messages
func NewExecutor(options Options, logger logging.Logger) *Executor {
	if options.TempSuffix == "" {
		options.TempSuffix = DefaultTempSuffix
	}
	return &Executor{
		options: options,
		logger:  logging.OrNull(logger),
		ops:     osOps{},
	}
}

// SetVerifier sets the byte comparator used when Options.Verify is set
func (e *Executor) SetVerifier(v Verifier) {
	e.verifier = v
}

// Execute applies action to dup, keeping master. It never returns an
// error: every outcome, including failures, is a models.Outcome.
func (e *Executor) Execute(ctx context.Context, dup models.DuplicateFile, master string, action models.ActionKind) models.Outcome {
	if !action.Mutates() {
		return models.Skipped{Reason: models.SkipCompareOnly}
	}

	logger := e.logger.WithFields(logging.Fields{
		"path":   dup.Path,
		"master": master,
		"action": string(action),
	})

	if fsprobe.IsHardlinkTo(dup.Path, master) {
		logger.Debug(ctx, "already hardlinked", nil)
		return models.Skipped{Reason: models.SkipAlreadyHardlinked}
	}
	if fsprobe.IsSymlinkTo(dup.Path, master) {
		logger.Debug(ctx, "already symlinked", nil)
		return models.Skipped{Reason: models.SkipAlreadySymlinked}
	}

	resolvedMaster, err := filepath.EvalSymlinks(master)
	if err != nil {
		return models.Failed{Err: fmt.Errorf("master unavailable: %w", err)}
	}

	if e.options.Verify {
		if e.verifier == nil {
			return models.Failed{Err: fmt.Errorf("verification requested without a verifier: %w", ErrUnsupported)}
		}
		if err := e.verifier.Verify(ctx, resolvedMaster, dup.Path); err != nil {
			logger.Warn(ctx, "verification failed, leaving file untouched", logging.Fields{"error": err.Error()})
			return models.Failed{Err: err}
		}
	}

	if e.options.TargetDir != "" {
		return e.executeInTarget(ctx, logger, dup, resolvedMaster, action)
	}
	return e.executeInPlace(ctx, logger, dup.Path, resolvedMaster, action)
}

func (e *Executor) executeInPlace(ctx context.Context, logger logging.Logger, path, master string, action models.ActionKind) models.Outcome {
	temp := path + e.options.TempSuffix

	if _, err := e.ops.Lstat(temp); err == nil {
		return models.Failed{Err: fmt.Errorf("temp file %s: %w", temp, ErrAlreadyExists)}
	} else if !os.IsNotExist(err) {
		return models.Failed{Err: fmt.Errorf("failed to check temp file: %w", err)}
	}

	if err := e.ops.Rename(path, temp); err != nil {
		return models.Failed{Err: fmt.Errorf("failed to move duplicate aside: %w", err)}
	}

	used := action
	if action.CreatesLink() {
		var err error
		used, err = e.link(ctx, logger, master, path, action)
		if err != nil {
			return e.rollback(ctx, logger, path, temp, false, err)
		}
	}

	if err := e.ops.Remove(temp); err != nil {
		return e.rollback(ctx, logger, path, temp, action.CreatesLink(), fmt.Errorf("failed to remove temp file: %w", err))
	}

	logger.Info(ctx, "action completed", logging.Fields{"used": string(used)})
	return models.Success{Action: used, LinkPath: path}
}

// link creates the requested link at path and returns the action actually used
func (e *Executor) link(ctx context.Context, logger logging.Logger, master, path string, action models.ActionKind) (models.ActionKind, error) {
	if action == models.ActionSymlink {
		if err := e.ops.Symlink(master, path); err != nil {
			return action, fmt.Errorf("failed to create symlink: %w", err)
		}
		return action, nil
	}

	err := e.ops.Link(master, path)
	if err == nil {
		return action, nil
	}
	if !fsprobe.IsCrossDevice(err) || !e.options.FallbackToSymlink {
		return action, fmt.Errorf("failed to create hardlink: %w", err)
	}

	logger.Info(ctx, "master on another filesystem, falling back to symlink", nil)
	if err := e.ops.Symlink(master, path); err != nil {
		return models.ActionSymlink, fmt.Errorf("failed to create fallback symlink: %w", err)
	}
	return models.ActionSymlink, nil
}

// rollback restores temp to path after cause, removing a link created at path
func (e *Executor) rollback(ctx context.Context, logger logging.Logger, path, temp string, linkCreated bool, cause error) models.Outcome {
	var rbErr error
	if linkCreated {
		if err := e.ops.Remove(path); err != nil && !os.IsNotExist(err) {
			rbErr = fmt.Errorf("failed to remove new link: %w", err)
		}
	}
	if rbErr == nil {
		if err := e.ops.Rename(temp, path); err != nil {
			rbErr = fmt.Errorf("failed to restore original: %w", err)
		}
	}

	if rbErr != nil {
		logger.Error(ctx, "CRITICAL: rollback failed, original content left in temp file", rbErr, logging.Fields{
			"temp":  temp,
			"cause": cause.Error(),
		})
		return models.Failed{Err: cause, RollbackErr: rbErr, OrphanedTemp: temp}
	}

	logger.Warn(ctx, "action failed, original restored", logging.Fields{"error": cause.Error()})
	return models.Failed{Err: cause}
}

func (e *Executor) executeInTarget(ctx context.Context, logger logging.Logger, dup models.DuplicateFile, master string, action models.ActionKind) models.Outcome {
	if !action.CreatesLink() {
		return models.Failed{Err: fmt.Errorf("%s into a target directory: %w", action, ErrUnsupported)}
	}

	rel, err := filepath.Rel(dup.Root, dup.Path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return models.Failed{Err: fmt.Errorf("%s is outside its tree %s: %w", dup.Path, dup.Root, ErrUnsupported)}
	}
	dest := filepath.Join(e.options.TargetDir, rel)

	if _, err := e.ops.Lstat(dest); err == nil {
		return models.Failed{Err: fmt.Errorf("target %s: %w", dest, ErrAlreadyExists)}
	} else if !os.IsNotExist(err) {
		return models.Failed{Err: fmt.Errorf("failed to check target: %w", err)}
	}

	if err := e.ops.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return models.Failed{Err: fmt.Errorf("failed to create target directory: %w", err)}
	}

	used, err := e.link(ctx, logger, master, dest, action)
	if err != nil {
		e.cleanupTarget(ctx, logger, dest)
		return models.Failed{Err: err}
	}

	if err := e.ops.Remove(dup.Path); err != nil {
		e.cleanupTarget(ctx, logger, dest)
		return models.Failed{Err: fmt.Errorf("failed to remove duplicate: %w", err)}
	}

	logger.Info(ctx, "action completed", logging.Fields{"used": string(used), "target": dest})
	return models.Success{Action: used, LinkPath: dest}
}

func (e *Executor) cleanupTarget(ctx context.Context, logger logging.Logger, dest string) {
	if err := e.ops.Remove(dest); err != nil && !os.IsNotExist(err) {
		logger.Error(ctx, "failed to clean up partial target", err, logging.Fields{"target": dest})
	}
}
