package output

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/sdejongh/dupelink/pkg/models"
)

// HumanFormatter prints one line per duplicate and a summary block
type HumanFormatter struct {
	writer     io.Writer
	totalFiles int
	totalBytes int64
	startTime  time.Time
	palette    palette
}

// NewHumanFormatter creates a new human-readable formatter
func NewHumanFormatter(w io.Writer, useColor bool) *HumanFormatter {
	return &HumanFormatter{writer: w, palette: newPalette(useColor)}
}

// Start initializes the formatter
func (f *HumanFormatter) Start(totalFiles int, totalBytes int64) error {
	f.totalFiles = totalFiles
	f.totalBytes = totalBytes
	f.startTime = time.Now()

	fmt.Fprintf(f.writer, "Processing %d duplicates, up to %s reclaimable\n",
		totalFiles, humanize.IBytes(uint64(totalBytes)))
	return nil
}

// Progress reports progress during the run
func (f *HumanFormatter) Progress(update ProgressUpdate) error {
	switch update.Type {
	case UpdateGroupStart:
		fmt.Fprintf(f.writer, "Group %d/%d: keeping %s\n", update.CurrentGroup, update.TotalGroups, update.Master)

	case UpdateGroupSkipped:
		fmt.Fprintf(f.writer, "Group %d/%d: %s (%s)\n", update.CurrentGroup, update.TotalGroups,
			f.palette.skip.Sprint("skipped"), update.Reason)

	case UpdateFileDone:
		fmt.Fprintf(f.writer, "  [%d/%d] %s\n", update.CurrentFile, update.TotalFiles, f.palette.outcome(update))
	}
	return nil
}

// Complete finalizes output and displays summary
func (f *HumanFormatter) Complete(summary *models.ExecutionSummary) error {
	fmt.Fprintln(f.writer)
	writeSummary(f.writer, summary, f.palette)
	return nil
}

// Error reports an error
func (f *HumanFormatter) Error(err error) error {
	fmt.Fprintf(f.writer, "%s %v\n", f.palette.fail.Sprint("Error:"), err)
	return nil
}

// Name returns the formatter name
func (f *HumanFormatter) Name() string {
	return "human"
}

// palette holds the colours of the human output; all of them are no-ops
// when colour is disabled
type palette struct {
	ok, skip, fail, warn *color.Color
}

func newPalette(useColor bool) palette {
	p := palette{
		ok:   color.New(color.FgGreen),
		skip: color.New(color.FgYellow),
		fail: color.New(color.FgRed, color.Bold),
		warn: color.New(color.FgMagenta),
	}
	for _, c := range []*color.Color{p.ok, p.skip, p.fail, p.warn} {
		if useColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) outcome(u ProgressUpdate) string {
	switch o := u.Outcome.(type) {
	case models.Success:
		label := string(o.Action)
		if o.Action != u.Action {
			label += " (fallback)"
		}
		if o.Action == models.ActionDelete {
			return fmt.Sprintf("%s %s %s", p.ok.Sprint("✓"), label, u.FilePath)
		}
		return fmt.Sprintf("%s %s %s -> %s", p.ok.Sprint("✓"), label, o.LinkPath, u.Master)
	case models.Skipped:
		return fmt.Sprintf("%s %s (%s)", p.skip.Sprint("-"), u.FilePath, o.Reason)
	case models.Failed:
		return fmt.Sprintf("%s %s: %s", p.fail.Sprint("✗"), u.FilePath, o.Error())
	default:
		return u.FilePath
	}
}

// writeSummary prints the totals of a run
func writeSummary(w io.Writer, s *models.ExecutionSummary, p palette) {
	fmt.Fprintf(w, "Run %s finished in %s\n", s.OperationID, s.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Summary:\n")
	fmt.Fprintf(w, "  Groups:\n")
	fmt.Fprintf(w, "    Total:          %d\n", s.Stats.GroupsTotal)
	fmt.Fprintf(w, "    Processed:      %d\n", s.Stats.GroupsProcessed)
	if s.Interactive {
		fmt.Fprintf(w, "    Declined:       %d\n", s.Stats.GroupsDeclined)
	}
	fmt.Fprintf(w, "    Master missing: %d\n", s.Stats.GroupsSkipped)
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "  Duplicates (%s):\n", s.Action)
	fmt.Fprintf(w, "    Succeeded:      %d\n", s.Stats.Succeeded)
	fmt.Fprintf(w, "    Skipped:        %d\n", s.Stats.Skipped)
	fmt.Fprintf(w, "    Failed:         %d\n", s.Stats.Failed)
	if s.Stats.SymlinkFallbacks > 0 {
		fmt.Fprintf(w, "    Symlink fallbacks: %d\n", s.Stats.SymlinkFallbacks)
	}
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "  Space reclaimed:  %s\n", humanize.IBytes(uint64(s.Stats.BytesReclaimed)))
	if s.AuditLogPath != "" {
		fmt.Fprintf(w, "  Audit log:        %s\n", s.AuditLogPath)
	}

	fmt.Fprintf(w, "\n")
	status := s.Status()
	switch status {
	case models.StatusSuccess:
		fmt.Fprintf(w, "Status: %s\n", p.ok.Sprint(status))
	case models.StatusAborted, models.StatusPartial:
		fmt.Fprintf(w, "Status: %s\n", p.skip.Sprint(status))
	default:
		fmt.Fprintf(w, "Status: %s\n", p.fail.Sprint(status))
	}

	if len(s.Warnings) > 0 {
		fmt.Fprintf(w, "\nWarnings:\n")
		for _, warning := range s.Warnings {
			fmt.Fprintf(w, "  %s\n", p.warn.Sprint(warning))
		}
	}

	if s.Stats.RollbackFailures > 0 {
		fmt.Fprintf(w, "\n%s %d rollbacks failed; original content is in the temp files listed below\n",
			p.fail.Sprint("CRITICAL:"), s.Stats.RollbackFailures)
	}

	if len(s.Failures) > 0 {
		fmt.Fprintf(w, "\nErrors:\n")
		for _, f := range s.Failures {
			fmt.Fprintf(w, "  %s: %s\n", f.Path, f.Error)
		}
	}
}
