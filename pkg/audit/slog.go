package audit

import (
	"context"
	"errors"
	"log/slog"
)

// SlogLogger writes audit events as structured log records.
type SlogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger creates a logger sink. Records are emitted at Info level
// under the "audit" group.
func NewSlogLogger(logger *slog.Logger) *SlogLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogLogger{logger: logger}
}

// Log writes the event.
func (l *SlogLogger) Log(ctx context.Context, e Event) error {
	l.logger.LogAttrs(ctx, slog.LevelInfo, "audit",
		slog.Group("audit",
			slog.String("id", e.ID),
			slog.String("request_id", e.RequestID),
			slog.String("user_id", e.UserID),
			slog.String("endpoint", e.Endpoint),
			slog.String("method", e.Method),
			slog.String("path", e.Path),
			slog.Any("parameters", e.Parameters),
			slog.Int("status", e.Status),
			slog.Bool("success", e.Success),
			slog.Int64("duration_ms", e.DurationMS),
			slog.String("error", e.ErrorMessage),
		),
	)
	return nil
}

// Close is a no-op; the handler belongs to the caller.
func (*SlogLogger) Close() error { return nil }

// MultiLogger fans events out to several sinks.
type MultiLogger struct {
	sinks []Logger
}

// NewMultiLogger combines sinks. Nil sinks are skipped.
func NewMultiLogger(sinks ...Logger) *MultiLogger {
	m := &MultiLogger{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Log sends the event to every sink and joins their errors.
func (m *MultiLogger) Log(ctx context.Context, e Event) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Log(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink and joins their errors.
func (m *MultiLogger) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Verify interface compliance.
var (
	_ Logger = (*SlogLogger)(nil)
	_ Logger = (*MultiLogger)(nil)
)
