package logging

import (
	"context"
	"log/slog"

	"hlsforge/internal/services"
)

// Structured logging keys shared by every component.
const (
	FieldComponent     = "component"
	FieldJobName       = "job_name"
	FieldStage         = "stage"
	FieldCorrelationID = "correlation_id"
	// FieldEventType classifies a line for filtering, e.g. job_start or job_failed.
	FieldEventType = "event_type"
	// FieldErrorHint is the operator's next step.
	FieldErrorHint = "error_hint"
	// FieldErrorKind is the class from services.Details.
	FieldErrorKind = "error_kind"
	FieldImpact    = "impact"
	FieldAlert     = "alert"
)

// ContextFields returns the job, stage, and correlation attributes tagged on ctx.
func ContextFields(ctx context.Context) []Attr {
	var fields []Attr
	if name, ok := services.JobNameFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldJobName, name))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	if id, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, id))
	}
	return fields
}

// WithContext returns logger carrying ContextFields(ctx). A nil logger
// yields a discarding one.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if fields := ContextFields(ctx); len(fields) > 0 {
		return logger.With(Args(fields...)...)
	}
	return logger
}
