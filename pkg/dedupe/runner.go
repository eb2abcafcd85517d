package dedupe

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sdejongh/dupelink/pkg/audit"
	"github.com/sdejongh/dupelink/pkg/logging"
	"github.com/sdejongh/dupelink/pkg/models"
	"github.com/sdejongh/dupelink/pkg/output"
)

// Executor applies an action to one duplicate
type Executor interface {
	Execute(ctx context.Context, dup models.DuplicateFile, master string, action models.ActionKind) models.Outcome
}

// Recorder receives one entry per processed duplicate
type Recorder interface {
	Record(entry audit.Entry) error
	Path() string
}

// Prompter asks the user what to do with a group. It returns the raw
// answer; io.EOF or a cancelled context ends the run as a quit.
type Prompter interface {
	Prompt(ctx context.Context, group models.DuplicateGroup, position, total int) (string, error)
}

// Decision is a normalized interactive answer
type Decision string

const (
	DecisionYes  Decision = "y"
	DecisionNo   Decision = "n"
	DecisionAll  Decision = "a"
	DecisionQuit Decision = "q"
)

// ParseDecision normalizes an answer. Single letters and the full words
// are accepted, case-insensitively.
func ParseDecision(answer string) (Decision, bool) {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return DecisionYes, true
	case "n", "no":
		return DecisionNo, true
	case "a", "all":
		return DecisionAll, true
	case "q", "quit":
		return DecisionQuit, true
	default:
		return "", false
	}
}

// Runner executes a plan group by group, strictly sequentially
type Runner struct {
	executor  Executor
	formatter output.Formatter
	logger    logging.Logger
	operation *models.DedupeOperation
	recorder  Recorder
	prompter  Prompter
	now       func() time.Time
}

// NewRunner creates a runner; a nil logger discards messages
func NewRunner(executor Executor, formatter output.Formatter, logger logging.Logger, operation *models.DedupeOperation) *Runner {
	return &Runner{
		executor:  executor,
		formatter: formatter,
		logger:    logging.OrNull(logger),
		operation: operation,
		now:       time.Now,
	}
}

// SetRecorder sets the audit trail
func (r *Runner) SetRecorder(recorder Recorder) {
	r.recorder = recorder
}

// SetPrompter sets the prompter used in interactive mode
func (r *Runner) SetPrompter(prompter Prompter) {
	r.prompter = prompter
}

// Run processes every group of plan. Per-file failures never stop the run;
// they end up in the summary. An error is only returned when the runner is
// misconfigured.
func (r *Runner) Run(ctx context.Context, plan *models.Plan) (*models.ExecutionSummary, error) {
	if r.operation.Interactive && r.prompter == nil {
		return nil, &models.ValidationError{Field: "Interactive", Message: "no prompter configured"}
	}

	summary := &models.ExecutionSummary{
		OperationID: r.operation.ID,
		Action:      r.operation.Action,
		Interactive: r.operation.Interactive,
		StartTime:   r.now(),
		Warnings:    append([]string(nil), plan.Warnings...),
	}
	summary.Stats.GroupsTotal = len(plan.Groups)
	if r.recorder != nil {
		summary.AuditLogPath = r.recorder.Path()
	}

	logger := r.logger.WithFields(logging.Fields{
		"operation_id": r.operation.ID,
		"action":       string(r.operation.Action),
	})

	totalFiles := plan.DuplicateCount()
	r.report(ctx, func(f output.Formatter) error {
		return f.Start(totalFiles, plan.ReclaimableBytes())
	})

	confirmAll := !r.operation.Interactive
	fileIndex := 0

groups:
	for i, group := range plan.Groups {
		position := i + 1

		if ctx.Err() != nil {
			logger.Warn(ctx, "run interrupted", logging.Fields{"remaining_groups": len(plan.Groups) - i})
			summary.Aborted = true
			break
		}

		if !confirmAll {
			switch r.ask(ctx, logger, group, position, len(plan.Groups)) {
			case DecisionQuit:
				logger.Info(ctx, "user quit", logging.Fields{"remaining_groups": len(plan.Groups) - i})
				summary.Aborted = true
				break groups
			case DecisionNo:
				summary.Stats.GroupsDeclined++
				fileIndex += len(group.Duplicates)
				r.progress(ctx, output.ProgressUpdate{
					Type:         output.UpdateGroupSkipped,
					Master:       group.MasterFile,
					Reason:       models.SkipUserDeclined,
					CurrentGroup: position,
					TotalGroups:  len(plan.Groups),
				})
				continue
			case DecisionAll:
				confirmAll = true
			}
		}

		if _, err := os.Stat(group.MasterFile); err != nil {
			summary.Stats.GroupsSkipped++
			fileIndex += len(group.Duplicates)
			logger.Warn(ctx, "master missing, skipping group", logging.Fields{
				"master": group.MasterFile,
				"error":  err.Error(),
			})
			r.progress(ctx, output.ProgressUpdate{
				Type:         output.UpdateGroupSkipped,
				Master:       group.MasterFile,
				Reason:       models.SkipMasterMissing,
				CurrentGroup: position,
				TotalGroups:  len(plan.Groups),
			})
			continue
		}

		r.progress(ctx, output.ProgressUpdate{
			Type:         output.UpdateGroupStart,
			Master:       group.MasterFile,
			CurrentGroup: position,
			TotalGroups:  len(plan.Groups),
		})

		// a started group runs to completion; cancellation is seen between groups
		groupCtx := context.WithoutCancel(ctx)
		for _, dup := range group.Duplicates {
			fileIndex++
			outcome := r.process(groupCtx, dup, group.MasterFile)

			summary.Record(dup.Path, r.operation.Action, dup.Size, outcome)
			r.record(ctx, logger, group, dup, outcome)
			r.progress(ctx, output.ProgressUpdate{
				Type:        output.UpdateFileDone,
				FilePath:    dup.Path,
				Master:      group.MasterFile,
				Action:      r.operation.Action,
				Outcome:     outcome,
				Bytes:       dup.Size,
				CurrentFile: fileIndex,
				TotalFiles:  totalFiles,
			})

			if failed, ok := outcome.(models.Failed); ok && failed.RollbackErr != nil {
				summary.Warnings = append(summary.Warnings, "CRITICAL: original content of "+dup.Path+" left at "+failed.OrphanedTemp)
			}
		}
		summary.Stats.GroupsProcessed++
	}

	summary.EndTime = r.now()
	summary.Duration = summary.EndTime.Sub(summary.StartTime)

	logger.Info(ctx, "run completed", logging.Fields{
		"status":    string(summary.Status()),
		"succeeded": summary.Stats.Succeeded,
		"failed":    summary.Stats.Failed,
		"skipped":   summary.Stats.Skipped,
		"reclaimed": summary.Stats.BytesReclaimed,
	})
	r.report(ctx, func(f output.Formatter) error {
		return f.Complete(summary)
	})
	return summary, nil
}

// process runs one duplicate to its terminal state
func (r *Runner) process(ctx context.Context, dup models.DuplicateFile, master string) models.Outcome {
	if _, err := os.Lstat(dup.Path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return models.Skipped{Reason: models.SkipDuplicateMissing}
		}
		return models.Failed{Err: err}
	}
	return r.executor.Execute(ctx, dup, master, r.operation.Action)
}

// ask prompts until a valid answer arrives. A prompt error or a cancelled
// context counts as quit.
func (r *Runner) ask(ctx context.Context, logger logging.Logger, group models.DuplicateGroup, position, total int) Decision {
	for {
		if ctx.Err() != nil {
			return DecisionQuit
		}
		answer, err := r.prompter.Prompt(ctx, group, position, total)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, context.Canceled) {
				logger.Error(ctx, "prompt failed", err, nil)
			}
			return DecisionQuit
		}
		if d, ok := ParseDecision(answer); ok {
			return d
		}
		logger.Debug(ctx, "invalid answer", logging.Fields{"answer": answer})
	}
}

func (r *Runner) record(ctx context.Context, logger logging.Logger, group models.DuplicateGroup, dup models.DuplicateFile, outcome models.Outcome) {
	if r.recorder == nil {
		return
	}
	err := r.recorder.Record(audit.Entry{
		Time:    r.now(),
		Action:  r.operation.Action,
		Path:    dup.Path,
		Master:  group.MasterFile,
		Size:    dup.Size,
		Hash:    group.FileHash,
		Outcome: outcome,
	})
	if err != nil {
		logger.Error(ctx, "failed to write audit entry", err, logging.Fields{"path": dup.Path})
	}
}

func (r *Runner) progress(ctx context.Context, update output.ProgressUpdate) {
	r.report(ctx, func(f output.Formatter) error {
		return f.Progress(update)
	})
}

func (r *Runner) report(ctx context.Context, fn func(output.Formatter) error) {
	if r.formatter == nil {
		return
	}
	if err := fn(r.formatter); err != nil {
		r.logger.Warn(ctx, "formatter error", logging.Fields{"error": err.Error()})
	}
}
