package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrymomot/hapticqueue/pkg/command"
	"github.com/dmitrymomot/hapticqueue/pkg/pattern"
	"github.com/dmitrymomot/hapticqueue/pkg/queue"
)

var (
	ErrQueueRequired    = errors.New("httpapi: queue is required")
	ErrExecutorRequired = errors.New("httpapi: executor is required")
	ErrLibraryRequired  = errors.New("httpapi: pattern library is required")

	errMissingContentType   = errors.New("missing content type")
	errUnsupportedMediaType = errors.New("unsupported media type")
	errInvalidJSON          = errors.New("invalid JSON body")
)

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, errMissingContentType), errors.Is(err, errUnsupportedMediaType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, queue.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, queue.ErrQueueFull),
		errors.Is(err, queue.ErrStopped),
		errors.Is(err, pattern.ErrExecutorClosed),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	case errors.Is(err, queue.ErrItemNotFound),
		errors.Is(err, pattern.ErrExecutionNotFound),
		errors.Is(err, pattern.ErrPatternNotFound):
		return http.StatusNotFound
	case errors.Is(err, queue.ErrNotPending), errors.Is(err, pattern.ErrNotRunning):
		return http.StatusConflict
	case errors.Is(err, errInvalidJSON),
		errors.Is(err, command.ErrUnknownKind),
		errors.Is(err, command.ErrInvalidIntensity),
		errors.Is(err, queue.ErrInvalidCommand),
		errors.Is(err, queue.ErrInvalidPriority),
		errors.Is(err, pattern.ErrEmptyPattern),
		errors.Is(err, pattern.ErrInvalidStep),
		errors.Is(err, pattern.ErrDeviceRequired),
		errors.Is(err, pattern.ErrRepeatTooLarge):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// errorCode turns a status into a snake_case key, e.g. 429 -> too_many_requests.
func errorCode(status int) string {
	text := http.StatusText(status)
	if text == "" {
		return "error"
	}
	return strings.ToLower(strings.NewReplacer(" ", "_", "-", "_", "'", "").Replace(text))
}
