package output

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/dustin/go-humanize"

	"github.com/sdejongh/dupelink/pkg/models"
)

const progressTemplate = `{{counters . }} {{bar . "[" "=" ">" " " "]"}} {{percent . }} {{string . "reclaimed"}} {{etime . }}`

// ProgressFormatter draws a progress bar over the duplicates of a batch run
// and prints only failures while it runs
type ProgressFormatter struct {
	writer    io.Writer
	palette   palette
	mu        sync.Mutex
	bar       *pb.ProgressBar
	reclaimed int64
	failures  []string
}

// NewProgressFormatter creates a new progress bar formatter
func NewProgressFormatter(w io.Writer, useColor bool) *ProgressFormatter {
	return &ProgressFormatter{writer: w, palette: newPalette(useColor)}
}

// Start initializes the progress bar
func (f *ProgressFormatter) Start(totalFiles int, totalBytes int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.bar = pb.ProgressBarTemplate(progressTemplate).New(totalFiles)
	f.bar.SetWriter(f.writer)
	f.bar.SetRefreshRate(100 * time.Millisecond)
	f.bar.Set("reclaimed", "0 B reclaimed")
	f.bar.Start()
	return nil
}

// Progress advances the bar for each finished duplicate
func (f *ProgressFormatter) Progress(update ProgressUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.bar == nil || update.Type != UpdateFileDone {
		return nil
	}

	switch o := update.Outcome.(type) {
	case models.Success:
		f.reclaimed += update.Bytes
		f.bar.Set("reclaimed", humanize.IBytes(uint64(f.reclaimed))+" reclaimed")
	case models.Failed:
		f.failures = append(f.failures, fmt.Sprintf("%s: %s", update.FilePath, o.Error()))
	}
	f.bar.Increment()
	return nil
}

// Complete stops the bar and prints the summary
func (f *ProgressFormatter) Complete(summary *models.ExecutionSummary) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.bar != nil {
		f.bar.Finish()
		f.bar = nil
	}
	fmt.Fprintln(f.writer)
	writeSummary(f.writer, summary, f.palette)
	return nil
}

// Error reports an error below the bar
func (f *ProgressFormatter) Error(err error) error {
	fmt.Fprintf(f.writer, "\n%s %v\n", f.palette.fail.Sprint("Error:"), err)
	return nil
}

// Name returns the formatter name
func (f *ProgressFormatter) Name() string {
	return "progress"
}
