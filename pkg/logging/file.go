package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Format represents the log output format
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

const textTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// FileLoggerConfig holds configuration for file logging
type FileLoggerConfig struct {
	// Path is the log file path
	Path string
	// Format is the output format (json or text)
	Format Format
	// Level is the minimum log level
	Level Level
	// MaxSize is the maximum size in bytes before rotation (0 = no rotation)
	MaxSize int64
	// MaxBackups is the maximum number of backup files to keep
	MaxBackups int
}

// FileLogger implements Logger with zerolog writing to a rotating file
type FileLogger struct {
	out  *rotatingWriter
	sink zerolog.LevelWriter
	zl   zerolog.Logger
}

// NewFileLogger creates a new file logger
func NewFileLogger(config FileLoggerConfig) (*FileLogger, error) {
	if err := os.MkdirAll(filepath.Dir(config.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	out, err := newRotatingWriter(config.Path, config.MaxSize, config.MaxBackups)
	if err != nil {
		return nil, err
	}

	var w io.Writer = out
	if config.Format != FormatJSON {
		w = textWriter(out, true)
	}
	sink := filtered(w, config.Level)

	return &FileLogger{
		out:  out,
		sink: sink,
		zl:   zerolog.New(sink).Level(zerologLevel(config.Level)).With().Timestamp().Logger(),
	}, nil
}

// Debug logs a debug message
func (l *FileLogger) Debug(ctx context.Context, msg string, fields Fields) {
	emit(l.zl.Debug(), msg, nil, fields)
}

// Info logs an info message
func (l *FileLogger) Info(ctx context.Context, msg string, fields Fields) {
	emit(l.zl.Info(), msg, nil, fields)
}

// Warn logs a warning message
func (l *FileLogger) Warn(ctx context.Context, msg string, fields Fields) {
	emit(l.zl.Warn(), msg, nil, fields)
}

// Error logs an error message
func (l *FileLogger) Error(ctx context.Context, msg string, err error, fields Fields) {
	emit(l.zl.Error(), msg, err, fields)
}

// WithFields returns a logger sharing the same file with additional fields
func (l *FileLogger) WithFields(fields Fields) Logger {
	return &FileLogger{
		out:  l.out,
		sink: l.sink,
		zl:   l.zl.With().Fields(map[string]interface{}(fields)).Logger(),
	}
}

// Close flushes and closes the logger
func (l *FileLogger) Close() error {
	return l.out.Close()
}

// ConsoleLogger implements Logger with human readable zerolog output, used for
// --verbose runs on stderr
type ConsoleLogger struct {
	sink zerolog.LevelWriter
	zl   zerolog.Logger
}

// NewConsoleLogger creates a logger writing console-formatted lines to w
func NewConsoleLogger(w io.Writer, level Level, noColor bool) *ConsoleLogger {
	sink := filtered(textWriter(w, noColor), level)
	return &ConsoleLogger{
		sink: sink,
		zl:   zerolog.New(sink).Level(zerologLevel(level)).With().Timestamp().Logger(),
	}
}

func (l *ConsoleLogger) Debug(ctx context.Context, msg string, fields Fields) {
	emit(l.zl.Debug(), msg, nil, fields)
}

func (l *ConsoleLogger) Info(ctx context.Context, msg string, fields Fields) {
	emit(l.zl.Info(), msg, nil, fields)
}

func (l *ConsoleLogger) Warn(ctx context.Context, msg string, fields Fields) {
	emit(l.zl.Warn(), msg, nil, fields)
}

func (l *ConsoleLogger) Error(ctx context.Context, msg string, err error, fields Fields) {
	emit(l.zl.Error(), msg, err, fields)
}

func (l *ConsoleLogger) WithFields(fields Fields) Logger {
	return &ConsoleLogger{sink: l.sink, zl: l.zl.With().Fields(map[string]interface{}(fields)).Logger()}
}

// Close is a no-op; the console writer is owned by the caller
func (l *ConsoleLogger) Close() error {
	return nil
}

func (l *FileLogger) levelSink() zerolog.LevelWriter    { return l.sink }
func (l *ConsoleLogger) levelSink() zerolog.LevelWriter { return l.sink }

// filtered drops entries below level, so one zerolog logger can feed
// destinations with different levels
func filtered(w io.Writer, level Level) zerolog.LevelWriter {
	return &zerolog.FilteredLevelWriter{
		Writer: zerolog.LevelWriterAdapter{Writer: w},
		Level:  zerologLevel(level),
	}
}

func emit(e *zerolog.Event, msg string, err error, fields Fields) {
	if e == nil {
		return
	}
	if err != nil {
		e = e.Err(err)
	}
	if len(fields) > 0 {
		e = e.Fields(map[string]interface{}(fields))
	}
	e.Msg(msg)
}

func textWriter(w io.Writer, noColor bool) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    noColor,
		TimeFormat: textTimeFormat,
		FormatLevel: func(i interface{}) string {
			return "[" + strings.ToUpper(fmt.Sprint(i)) + "]"
		},
	}
}

func zerologLevel(level Level) zerolog.Level {
	switch level {
	case DebugLevel:
		return zerolog.DebugLevel
	case InfoLevel:
		return zerolog.InfoLevel
	case WarnLevel:
		return zerolog.WarnLevel
	case ErrorLevel:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// rotatingWriter is an append-only file that rotates to path.1, path.2, ...
// once it grows past maxSize
type rotatingWriter struct {
	path        string
	maxSize     int64
	maxBackups  int
	mu          sync.Mutex
	file        *os.File
	currentSize int64
}

func newRotatingWriter(path string, maxSize int64, maxBackups int) (*rotatingWriter, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat log file: %w", err)
	}

	return &rotatingWriter{
		path:        path,
		maxSize:     maxSize,
		maxBackups:  maxBackups,
		file:        file,
		currentSize: info.Size(),
	}, nil
}

func (w *rotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return 0, os.ErrClosed
	}
	if w.maxSize > 0 && w.currentSize >= w.maxSize {
		w.rotate()
	}

	n, err := w.file.Write(p)
	w.currentSize += int64(n)
	return n, err
}

func (w *rotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

// rotate shifts backups and reopens an empty file; errors keep the current file
func (w *rotatingWriter) rotate() {
	w.file.Close()

	for i := w.maxBackups - 1; i >= 1; i-- {
		os.Rename(fmt.Sprintf("%s.%d", w.path, i), fmt.Sprintf("%s.%d", w.path, i+1))
	}
	os.Rename(w.path, w.path+".1")

	if w.maxBackups > 0 {
		os.Remove(fmt.Sprintf("%s.%d", w.path, w.maxBackups+1))
	}

	file, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		// keep writing somewhere rather than dropping entries
		file, err = os.OpenFile(w.path+".1", os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			w.file = nil
			return
		}
	}

	w.file = file
	w.currentSize = 0
}

// ParseLevel parses a log level string
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return DebugLevel
	case "info":
		return InfoLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// LevelString returns the upper-case name of a level
func LevelString(level Level) string {
	switch level {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}
