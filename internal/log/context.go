package log

import (
	"context"
	"log/slog"

	"flussi/internal/core"
)

type contextKey string

const loggerContextKey contextKey = "logger"

// NewContext returns a copy of ctx carrying logger.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey, logger)
}

// FromContext extracts a logger from the context
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(loggerContextKey).(*Logger); ok {
		return logger
	}
	return &Logger{
		Logger:    slog.Default(),
		component: "unknown",
	}
}

// LogAdvisory logs a non-fatal finding of the extraction at warn level.
func (l *Logger) LogAdvisory(ctx context.Context, adv core.Advisory) {
	fields := NewFields().With(FieldAdvisory, string(adv.Code))
	if adv.Sheet != "" {
		fields = fields.WithSheet(adv.Sheet, "")
	}
	l.WarnContext(ctx, adv.Message, fields.ToSlice()...)
}

// LogError logs an error with structured context
func (l *Logger) LogError(ctx context.Context, msg string, err error, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	fields = fields.WithError(err).WithOperation(operation)
	l.ErrorContext(ctx, msg, fields.ToSlice()...)
}
