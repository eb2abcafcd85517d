package logging

import (
	"context"
	"errors"
	"io"

	"github.com/rs/zerolog"
)

// sinker is implemented by loggers whose destination can be shared
type sinker interface {
	levelSink() zerolog.LevelWriter
}

// MultiLogger writes each entry once, through a zerolog multi-level writer,
// to the destinations of several file and console loggers. Every
// destination keeps its own format and level.
type MultiLogger struct {
	zl      zerolog.Logger
	members []Logger
}

// NewMultiLogger combines loggers; nil and null loggers are dropped
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	m := &MultiLogger{}
	var sinks []io.Writer
	for _, l := range loggers {
		s, ok := l.(sinker)
		if !ok {
			continue
		}
		sinks = append(sinks, s.levelSink())
		m.members = append(m.members, l)
	}

	// the writers filter by level, the logger passes everything down
	m.zl = zerolog.New(zerolog.MultiLevelWriter(sinks...)).Level(zerolog.DebugLevel).With().Timestamp().Logger()
	return m
}

func (m *MultiLogger) Debug(ctx context.Context, msg string, fields Fields) {
	emit(m.zl.Debug(), msg, nil, fields)
}

func (m *MultiLogger) Info(ctx context.Context, msg string, fields Fields) {
	emit(m.zl.Info(), msg, nil, fields)
}

func (m *MultiLogger) Warn(ctx context.Context, msg string, fields Fields) {
	emit(m.zl.Warn(), msg, nil, fields)
}

func (m *MultiLogger) Error(ctx context.Context, msg string, err error, fields Fields) {
	emit(m.zl.Error(), msg, err, fields)
}

// WithFields returns a MultiLogger sharing the same destinations
func (m *MultiLogger) WithFields(fields Fields) Logger {
	return &MultiLogger{
		zl:      m.zl.With().Fields(map[string]interface{}(fields)).Logger(),
		members: m.members,
	}
}

// Close closes every member and joins their errors
func (m *MultiLogger) Close() error {
	var errs []error
	for _, l := range m.members {
		if err := l.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
