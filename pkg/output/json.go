package output

import (
	"encoding/json"
	"io"
	"time"

	"github.com/sdejongh/dupelink/pkg/models"
)

// JSONFormatter writes a single JSON document once the run completes,
// keeping the output clean and parseable for automation
type JSONFormatter struct {
	writer     io.Writer
	totalFiles int
	totalBytes int64
	events     []JSONFileEvent
}

// JSONFileEvent is the outcome of one duplicate
type JSONFileEvent struct {
	Path     string `json:"path"`
	Master   string `json:"master,omitempty"`
	Action   string `json:"action"`
	Result   string `json:"result"`
	Used     string `json:"used,omitempty"`
	LinkPath string `json:"link_path,omitempty"`
	Reason   string `json:"reason,omitempty"`
	Error    string `json:"error,omitempty"`
	Bytes    int64  `json:"bytes"`
}

// JSONSummary is the document written by Complete
type JSONSummary struct {
	OperationID  string                   `json:"operation_id"`
	Action       models.ActionKind        `json:"action"`
	Interactive  bool                     `json:"interactive"`
	Status       models.RunStatus         `json:"status"`
	ExitCode     int                      `json:"exit_code"`
	StartTime    time.Time                `json:"start_time"`
	EndTime      time.Time                `json:"end_time"`
	DurationMs   int64                    `json:"duration_ms"`
	TotalFiles   int                      `json:"total_files"`
	TotalBytes   int64                    `json:"total_bytes"`
	Stats        models.Statistics        `json:"stats"`
	Files        []JSONFileEvent          `json:"files"`
	Failures     []models.FailedOperation `json:"failures,omitempty"`
	Warnings     []string                 `json:"warnings,omitempty"`
	AuditLogPath string                   `json:"audit_log,omitempty"`
	Aborted      bool                     `json:"aborted"`
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(w io.Writer) *JSONFormatter {
	return &JSONFormatter{writer: w, events: make([]JSONFileEvent, 0)}
}

// Start records the totals
func (f *JSONFormatter) Start(totalFiles int, totalBytes int64) error {
	f.totalFiles = totalFiles
	f.totalBytes = totalBytes
	return nil
}

// Progress accumulates file outcomes for the final document
func (f *JSONFormatter) Progress(update ProgressUpdate) error {
	if update.Type != UpdateFileDone {
		return nil
	}

	ev := JSONFileEvent{
		Path:   update.FilePath,
		Master: update.Master,
		Action: string(update.Action),
		Bytes:  update.Bytes,
	}
	switch o := update.Outcome.(type) {
	case models.Success:
		ev.Result = "success"
		ev.Used = string(o.Action)
		ev.LinkPath = o.LinkPath
	case models.Skipped:
		ev.Result = "skipped"
		ev.Reason = o.Reason
	case models.Failed:
		ev.Result = "failed"
		ev.Error = o.Error()
	}
	f.events = append(f.events, ev)
	return nil
}

// Complete writes the JSON document
func (f *JSONFormatter) Complete(summary *models.ExecutionSummary) error {
	return writeJSON(f.writer, JSONSummary{
		OperationID:  summary.OperationID,
		Action:       summary.Action,
		Interactive:  summary.Interactive,
		Status:       summary.Status(),
		ExitCode:     summary.Status().ExitCode(),
		StartTime:    summary.StartTime,
		EndTime:      summary.EndTime,
		DurationMs:   summary.Duration.Milliseconds(),
		TotalFiles:   f.totalFiles,
		TotalBytes:   f.totalBytes,
		Stats:        summary.Stats,
		Files:        f.events,
		Failures:     summary.Failures,
		Warnings:     summary.Warnings,
		AuditLogPath: summary.AuditLogPath,
		Aborted:      summary.Aborted,
	})
}

// Error writes an error document
func (f *JSONFormatter) Error(err error) error {
	return writeJSON(f.writer, struct {
		Error string `json:"error"`
	}{Error: err.Error()})
}

// Name returns the formatter name
func (f *JSONFormatter) Name() string {
	return "json"
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
