package api

import (
	"context"
	"errors"
	"log"

	"givto/internal/service"
	"givto/internal/validation"
)

// Error codes returned to clients
const (
	CodeInvalidCode     = "INVALID_CODE"
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeNotFound        = "NOT_FOUND"
	CodeValidation      = "VALIDATION_ERROR"
	CodeInternal        = "INTERNAL"
)

// Error is one entry of a response's errors list
type Error struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
}

func (e Error) Error() string {
	return e.Code + ": " + e.Message
}

// toError maps a failure to its client-facing form. Unknown errors are logged
// and reported with a generic message.
func toError(op string, err error) Error {
	var vErr validation.ValidationError
	switch {
	case errors.As(err, &vErr):
		return Error{Message: vErr.Message, Code: CodeValidation, Field: vErr.Field}
	case errors.Is(err, service.ErrInvalidCode):
		return Error{Message: "invalid or expired login code", Code: CodeInvalidCode}
	case errors.Is(err, service.ErrUnauthenticated):
		return Error{Message: "authentication required", Code: CodeUnauthenticated}
	case errors.Is(err, service.ErrUnauthorized):
		return Error{Message: "not authorized", Code: CodeUnauthorized}
	case errors.Is(err, service.ErrNotFound):
		return Error{Message: "not found", Code: CodeNotFound}
	case errors.Is(err, context.DeadlineExceeded):
		log.Printf("Operation %s timed out: %v", op, err)
		return Error{Message: "operation timed out", Code: CodeInternal}
	default:
		log.Printf("Operation %s failed: %v", op, err)
		return Error{Message: "internal server error", Code: CodeInternal}
	}
}
