package api

import (
	"errors"
	"fmt"
	"net/http"

	"flowfinance/internal/log"
)

// Error categories. Every error returned by Client matches exactly one of
// these with errors.Is.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("not found")
	ErrTransport       = errors.New("transport failure")
)

// Error is a non-2xx response from the API.
type Error struct {
	StatusCode int
	Method     string
	Path       string
	Detail     string
	kind       error
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s %s: %d %s: %s", e.Method, e.Path, e.StatusCode, e.kind, e.Detail)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, e.kind)
}

func (e *Error) Unwrap() error {
	return e.kind
}

// kindForStatus maps an HTTP status to an error category.
func kindForStatus(status int) error {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthenticated
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
		return ErrValidation
	default:
		return ErrTransport
	}
}

// IsAuth reports whether err means the credential token is missing, invalid or expired.
func IsAuth(err error) bool {
	return errors.Is(err, ErrUnauthenticated)
}

// IsNotFound reports whether err is a not-found response.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Kind returns a short category label for logging.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnauthenticated):
		return log.ErrorTypeAuth
	case errors.Is(err, ErrValidation):
		return log.ErrorTypeValidation
	case errors.Is(err, ErrNotFound):
		return log.ErrorTypeNotFound
	case errors.Is(err, ErrTransport):
		return log.ErrorTypeNetwork
	default:
		return log.ErrorTypeInternal
	}
}
