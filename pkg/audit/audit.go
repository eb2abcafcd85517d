// Package audit writes the plain-text trail of a deduplication run: a
// header describing the run, one line per action, and a closing summary.
package audit

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/sdejongh/dupelink/pkg/models"
)

const (
	separator  = "================================================================"
	hashPrefix = 8
)

// Header describes the run an audit log belongs to
type Header struct {
	RunID     string
	Started   time.Time
	DirA      string
	DirB      string
	MasterDir string
	TargetDir string
	Action    models.ActionKind
	Algorithm models.Algorithm

	// Flags lists the enabled options (e.g. "interactive", "fast")
	Flags []string
}

// Entry is one processed duplicate
type Entry struct {
	Time    time.Time
	Action  models.ActionKind
	Path    string
	Master  string
	Size    int64
	Hash    string
	Outcome models.Outcome
}

// Log is an append-only audit trail
type Log struct {
	w      io.Writer
	closer io.Closer
	path   string
}

// Open appends to the audit file at path, creating it and its directory
func Open(path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	return &Log{w: f, closer: f, path: path}, nil
}

// New writes the trail to w
func New(w io.Writer) *Log {
	return &Log{w: w}
}

// DefaultPath returns a per-run file name inside dir
func DefaultPath(dir, runID string, started time.Time) string {
	id := runID
	if len(id) > 8 {
		id = id[:8]
	}
	return filepath.Join(dir, fmt.Sprintf("dupelink-%s-%s.log", started.Format("20060102-150405"), id))
}

// Path returns the file backing the log, empty for writer-backed logs
func (l *Log) Path() string {
	return l.path
}

// WriteHeader starts the trail of a run
func (l *Log) WriteHeader(h Header) error {
	var b strings.Builder
	fmt.Fprintln(&b, separator)
	fmt.Fprintf(&b, "dupelink audit log\n")
	fmt.Fprintf(&b, "Started:    %s\n", h.Started.Format(time.RFC3339))
	fmt.Fprintf(&b, "Run ID:     %s\n", h.RunID)
	fmt.Fprintf(&b, "Directory1: %s\n", h.DirA)
	fmt.Fprintf(&b, "Directory2: %s\n", h.DirB)
	if h.MasterDir != "" {
		fmt.Fprintf(&b, "Master:     %s\n", h.MasterDir)
	}
	if h.TargetDir != "" {
		fmt.Fprintf(&b, "Target:     %s\n", h.TargetDir)
	}
	fmt.Fprintf(&b, "Action:     %s\n", h.Action)
	if h.Algorithm != "" {
		fmt.Fprintf(&b, "Algorithm:  %s\n", h.Algorithm)
	}
	flags := "none"
	if len(h.Flags) > 0 {
		flags = strings.Join(h.Flags, ", ")
	}
	fmt.Fprintf(&b, "Flags:      %s\n", flags)
	fmt.Fprintln(&b, separator)

	return l.write(b.String())
}

// Record appends one action line
func (l *Log) Record(e Entry) error {
	return l.write(FormatEntry(e) + "\n")
}

// WriteFooter closes the trail with the run totals and failures
func (l *Log) WriteFooter(s *models.ExecutionSummary) error {
	var b strings.Builder
	fmt.Fprintln(&b, separator)
	fmt.Fprintf(&b, "Finished:   %s (%s)\n", s.EndTime.Format(time.RFC3339), s.Duration.Round(time.Millisecond))
	fmt.Fprintf(&b, "Status:     %s\n", s.Status())
	fmt.Fprintf(&b, "Groups:     %d processed, %d declined, %d skipped of %d\n",
		s.Stats.GroupsProcessed, s.Stats.GroupsDeclined, s.Stats.GroupsSkipped, s.Stats.GroupsTotal)
	fmt.Fprintf(&b, "Files:      %d succeeded, %d failed, %d skipped\n", s.Stats.Succeeded, s.Stats.Failed, s.Stats.Skipped)
	fmt.Fprintf(&b, "Reclaimed:  %s\n", humanize.IBytes(uint64(s.Stats.BytesReclaimed)))
	if s.Stats.SymlinkFallbacks > 0 {
		fmt.Fprintf(&b, "Fallbacks:  %d hardlinks replaced by symlinks\n", s.Stats.SymlinkFallbacks)
	}
	if s.Stats.RollbackFailures > 0 {
		fmt.Fprintf(&b, "CRITICAL:   %d rollbacks failed, check the temp files listed below\n", s.Stats.RollbackFailures)
	}
	if len(s.Failures) > 0 {
		fmt.Fprintln(&b, "Failures:")
		for _, f := range s.Failures {
			fmt.Fprintf(&b, "  %s: %s\n", f.Path, f.Error)
		}
	}
	if s.Aborted {
		fmt.Fprintln(&b, "Run aborted by user")
	}
	fmt.Fprintln(&b, separator)

	return l.write(b.String())
}

// Close closes the underlying file, if any
func (l *Log) Close() error {
	if l.closer == nil {
		return nil
	}
	err := l.closer.Close()
	l.closer = nil
	return err
}

func (l *Log) write(s string) error {
	if _, err := io.WriteString(l.w, s); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

// FormatEntry renders one action line:
//
//	[2024-05-01T10:00:00Z] HARDLINK /b/x.jpg -> /a/x.jpg (1.2 MiB) [3f2a9c01...] SUCCESS
//
// Delete lines have no arrow.
func FormatEntry(e Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s %s", e.Time.Format(time.RFC3339), strings.ToUpper(string(e.Action)), e.Path)
	if e.Action != models.ActionDelete && e.Master != "" {
		fmt.Fprintf(&b, " -> %s", e.Master)
	}
	fmt.Fprintf(&b, " (%s)", humanize.IBytes(uint64(e.Size)))
	if e.Hash != "" {
		h := e.Hash
		if len(h) > hashPrefix {
			h = h[:hashPrefix]
		}
		fmt.Fprintf(&b, " [%s...]", h)
	}
	b.WriteString(" ")
	b.WriteString(result(e))
	return b.String()
}

func result(e Entry) string {
	switch o := e.Outcome.(type) {
	case models.Success:
		if o.Action != e.Action {
			return fmt.Sprintf("SUCCESS (%s fallback)", o.Action)
		}
		return "SUCCESS"
	case models.Skipped:
		return "SKIPPED: " + o.Reason
	case models.Failed:
		return "FAILED: " + o.Error()
	default:
		return "UNKNOWN"
	}
}
