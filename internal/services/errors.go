package services

import (
	"errors"
	"strings"
)

var (
	// ErrAdmission marks failures that keep a job from entering the queue.
	ErrAdmission = errors.New("admission error")
	// ErrExternalTool marks failures of the external encoder or prober.
	ErrExternalTool = errors.New("external tool error")
	// ErrCleanup marks temporary file removal failures after a successful encode.
	ErrCleanup = errors.New("cleanup error")
	// ErrStatusWrite marks status store updates that failed mid-pipeline.
	ErrStatusWrite = errors.New("status write error")
	ErrValidation  = errors.New("validation error")
	ErrTimeout     = errors.New("timeout")
	ErrTransient   = errors.New("transient failure")
)

// ErrorDetails is the structured view of an error produced by Wrap.
type ErrorDetails struct {
	Kind      string
	Stage     string
	Operation string
	Message   string
	Hint      string
	Cause     error
}

type serviceError struct {
	marker    error
	stage     string
	operation string
	message   string
	hint      string
	cause     error
}

func (e *serviceError) Error() string {
	detail := buildDetail(e.stage, e.operation, e.message)
	if e.cause != nil {
		return e.marker.Error() + ": " + detail + ": " + e.cause.Error()
	}
	return e.marker.Error() + ": " + detail
}

func (e *serviceError) Unwrap() []error {
	if e.cause == nil {
		return []error{e.marker}
	}
	return []error{e.marker, e.cause}
}

// Wrap builds an error that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of
// the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	if marker == nil {
		marker = ErrTransient
	}
	return &serviceError{
		marker:    marker,
		stage:     strings.TrimSpace(stage),
		operation: strings.TrimSpace(operation),
		message:   strings.TrimSpace(message),
		cause:     err,
	}
}

// WithHint attaches an operator-facing remediation hint to a wrapped error.
// Errors not produced by Wrap are returned unchanged.
func WithHint(err error, hint string) error {
	var svcErr *serviceError
	if !errors.As(err, &svcErr) {
		return err
	}
	clone := *svcErr
	clone.hint = strings.TrimSpace(hint)
	return &clone
}

// Details extracts the structured fields of a wrapped error. For plain errors
// only Kind and Message are populated.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{}
	}
	var svcErr *serviceError
	if errors.As(err, &svcErr) {
		message := svcErr.message
		if svcErr.cause != nil {
			if message == "" {
				message = svcErr.cause.Error()
			} else {
				message = message + ": " + svcErr.cause.Error()
			}
		}
		return ErrorDetails{
			Kind:      kindOf(svcErr.marker),
			Stage:     svcErr.stage,
			Operation: svcErr.operation,
			Message:   message,
			Hint:      svcErr.hint,
			Cause:     svcErr.cause,
		}
	}
	return ErrorDetails{Kind: kindOf(err), Message: strings.TrimSpace(err.Error())}
}

func kindOf(err error) string {
	switch {
	case errors.Is(err, ErrAdmission):
		return "admission"
	case errors.Is(err, ErrExternalTool):
		return "external_tool"
	case errors.Is(err, ErrCleanup):
		return "cleanup"
	case errors.Is(err, ErrStatusWrite):
		return "status_write"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	default:
		return "transient"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage != "" {
		parts = append(parts, stage)
	}
	if operation != "" {
		parts = append(parts, operation)
	}
	if message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
