package apiclient

import (
	"errors"
	"fmt"
	"net/http"
)

// Error taxonomy for remote failures. Callers branch with errors.Is; the
// session layer clears credentials only on ErrAuth.
var (
	ErrValidation = errors.New("validation error")
	ErrAuth       = errors.New("authentication error")
	ErrNotFound   = errors.New("not found")
	ErrTransport  = errors.New("transport error")
)

// APIError is a non-2xx response, carrying the server's message when the
// body had one.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error (status %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api error (status %d)", e.Status)
}

// Unwrap maps the status code onto the error taxonomy so callers can use
// errors.Is without inspecting codes.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized:
		return ErrAuth
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusBadRequest, http.StatusForbidden, http.StatusConflict, http.StatusUnprocessableEntity:
		return ErrValidation
	}
	return ErrTransport
}
