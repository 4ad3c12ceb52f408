// Package apperr defines the error kinds shared by the realtime core and the
// HTTP layer. Callers wrap them with fmt.Errorf("...: %w", ...) and match
// them with errors.Is.
package apperr

import (
	"errors"
	"net/http"
)

var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrConflict        = errors.New("conflict")
	ErrFull            = errors.New("room is full")
)

// HTTPStatus maps an error to the status code returned by the API.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, ErrConflict), errors.Is(err, ErrFull):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
