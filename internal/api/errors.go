package api

import (
	"errors"
	"net/http"

	"hlsforge/internal/jobname"
	"hlsforge/internal/queue"
	"hlsforge/internal/services"
)

// ErrorStatus maps a domain error to an HTTP status code and a client-safe
// message. Unclassified errors become 500 without leaking their text.
func ErrorStatus(err error) (int, string) {
	switch {
	case err == nil:
		return http.StatusOK, ""
	case errors.Is(err, queue.ErrNotFound):
		return http.StatusNotFound, "video not found"
	case errors.Is(err, queue.ErrConflict):
		return http.StatusConflict, "a video with this name already exists"
	case errors.Is(err, queue.ErrInvalidTransition):
		return http.StatusConflict, "job is not in a state that allows this action"
	case errors.Is(err, jobname.ErrInvalid):
		return http.StatusBadRequest, "file name cannot be used as a job name"
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest, services.Details(err).Message
	case errors.Is(err, services.ErrAdmission):
		return http.StatusServiceUnavailable, "video could not be queued"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
