package services

import "context"

type ctxKey int

const (
	jobNameKey ctxKey = iota
	stageKey
	requestIDKey
)

func withString(ctx context.Context, key ctxKey, value string) context.Context {
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func stringValue(ctx context.Context, key ctxKey) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, _ := ctx.Value(key).(string)
	return v, v != ""
}

// WithJobName tags ctx with the job being transcoded. Empty names are ignored.
func WithJobName(ctx context.Context, name string) context.Context {
	return withString(ctx, jobNameKey, name)
}

// JobNameFromContext returns the job tagged by WithJobName.
func JobNameFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, jobNameKey)
}

// WithStage tags ctx with the pipeline stage currently running.
func WithStage(ctx context.Context, stage string) context.Context {
	return withString(ctx, stageKey, stage)
}

// StageFromContext returns the stage tagged by WithStage.
func StageFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, stageKey)
}

// WithRequestID tags ctx with the HTTP request correlation id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return withString(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the id tagged by WithRequestID.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, requestIDKey)
}
