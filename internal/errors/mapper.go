package errors

import (
	"context"
	"errors"
	"net/http"

	"gorm.io/gorm"
)

// Map converts a service error into an HTTP status code and a
// caller-safe message. Keeps handlers clean by centralizing the mapping.
func Map(err error) (int, string) {
	switch {
	case err == nil:
		return http.StatusOK, ""

	case errors.Is(err, ErrInvalidArgument):
		return http.StatusBadRequest, err.Error()

	case errors.Is(err, ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, "record not found"

	case errors.Is(err, ErrProfileIncomplete):
		return http.StatusUnprocessableEntity, "profile must be completed and verified first"

	case errors.Is(err, ErrDuplicateDecision):
		return http.StatusConflict, "decision already exists"

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "request timed out"

	case errors.Is(err, context.Canceled):
		// client went away; 499 is the conventional nginx code
		return 499, "request was canceled"

	default:
		// fallback: bubble up error message for debugging
		return http.StatusInternalServerError, err.Error()
	}
}
