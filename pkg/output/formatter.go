package output

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/sdejongh/dupelink/pkg/models"
)

// UpdateType identifies a progress notification
type UpdateType string

const (
	// UpdateGroupStart is sent before the duplicates of a group are processed
	UpdateGroupStart UpdateType = "group_start"
	// UpdateFileDone is sent once a duplicate reached its outcome
	UpdateFileDone UpdateType = "file_done"
	// UpdateGroupSkipped is sent when a group is declined or its master vanished
	UpdateGroupSkipped UpdateType = "group_skipped"
)

// ProgressUpdate represents a progress notification during a run
type ProgressUpdate struct {
	Type     UpdateType
	FilePath string
	Master   string
	Action   models.ActionKind
	Outcome  models.Outcome
	Bytes    int64
	Reason   string

	CurrentFile  int
	TotalFiles   int
	CurrentGroup int
	TotalGroups  int
}

// Formatter renders the progress and the summary of a run.
// Implementations include human-readable, progress bar and JSON formatters.
type Formatter interface {
	// Start announces the number of duplicates and reclaimable bytes
	Start(totalFiles int, totalBytes int64) error

	// Progress reports one step of the run
	Progress(update ProgressUpdate) error

	// Complete finalizes output and displays the summary
	Complete(summary *models.ExecutionSummary) error

	// Error reports an error that is not tied to a single file
	Error(err error) error

	// Name returns the formatter name
	Name() string
}

// Format names accepted by New
const (
	FormatHuman    = "human"
	FormatJSON     = "json"
	FormatProgress = "progress"
)

// New returns the formatter for format. "progress" degrades to "human" when
// w is not a terminal.
func New(format string, w io.Writer, useColor bool) (Formatter, error) {
	if w == nil {
		w = os.Stdout
	}
	switch format {
	case FormatJSON:
		return NewJSONFormatter(w), nil
	case FormatProgress:
		if IsTerminal(w) {
			return NewProgressFormatter(w, useColor), nil
		}
		return NewHumanFormatter(w, useColor), nil
	case FormatHuman, "":
		return NewHumanFormatter(w, useColor), nil
	default:
		return nil, &models.ValidationError{Field: "output", Message: fmt.Sprintf("unknown format %q (human, progress, json)", format)}
	}
}

// IsTerminal reports whether w is an interactive terminal
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
