package apierror

import (
	"errors"
	"fmt"
	"net/http"
)

// E is an HTTP-mappable application error. Handlers translate it into a
// response status; everything else in the codebase treats it as a plain error.
type E struct {
	Status  int
	Code    string
	Message string
	cause   error
}

// Error implements the error interface.
func (e *E) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap exposes the wrapped cause for errors.Is / errors.As chains.
func (e *E) Unwrap() error { return e.cause }

// NotFound reports an absent entity.
func NotFound(message string) *E {
	return &E{Status: http.StatusNotFound, Code: "not_found", Message: message}
}

// Forbidden reports an authorization failure (caller is neither owner nor admin).
func Forbidden(message string) *E {
	return &E{Status: http.StatusForbidden, Code: "forbidden", Message: message}
}

// BadRequest reports invalid input or stale entity state.
func BadRequest(message string) *E {
	return &E{Status: http.StatusBadRequest, Code: "bad_request", Message: message}
}

// Conflict reports a duplicate-creation attempt.
func Conflict(message string) *E {
	return &E{Status: http.StatusConflict, Code: "conflict", Message: message}
}

// Internal wraps a store or downstream failure behind a generic message.
// The cause is preserved for logging but never surfaced to callers.
func Internal(message string, cause error) *E {
	return &E{Status: http.StatusInternalServerError, Code: "internal", Message: message, cause: cause}
}

// StatusOf extracts the HTTP status for an error, defaulting to 500.
func StatusOf(err error) int {
	var e *E
	if errors.As(err, &e) {
		return e.Status
	}
	return http.StatusInternalServerError
}

// MessageOf extracts the user-facing message for an error.
func MessageOf(err error) string {
	var e *E
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}
