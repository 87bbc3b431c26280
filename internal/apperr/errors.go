// Package apperr holds the error taxonomy shared by the store, the delivery
// router and the HTTP boundary. Callers classify with errors.Is.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrValidation    = errors.New("validation failed")
	ErrAuthorization = errors.New("not authorized")
	ErrPersistence   = errors.New("persistence failed")
	ErrNotFound      = errors.New("not found")
)

func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func Authorization(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrAuthorization, fmt.Sprintf(format, args...))
}

func NotFound(what string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, what)
}

// Persistence wraps a store failure. The cause is kept for logging but is not
// reachable through errors.As, so driver types never leak to callers.
func Persistence(op string, cause error) error {
	if cause == nil {
		return fmt.Errorf("%w: %s", ErrPersistence, op)
	}
	return fmt.Errorf("%w: %s: %v", ErrPersistence, op, cause)
}

// HTTPStatus maps an error from the taxonomy onto a response code.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrAuthorization):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
