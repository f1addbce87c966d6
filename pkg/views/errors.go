package views

import (
	"errors"
	"net/http"

	"github.com/goliatone/go-material/pkg/model"
)

var (
	// ErrPermissionDenied maps to 403.
	ErrPermissionDenied = errors.New("views: permission denied")
	// ErrMethodNotAllowed maps to 405.
	ErrMethodNotAllowed = errors.New("views: method not allowed")
)

type HTTPError interface {
	error
	StatusCode() int
}

// StatusError attaches an HTTP status to an error.
type StatusError struct {
	Code int
	Err  error
}

func (e StatusError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.Code)
}

func (e StatusError) Unwrap() error { return e.Err }

func (e StatusError) StatusCode() int {
	if e.Code <= 0 {
		return http.StatusInternalServerError
	}
	return e.Code
}

// StatusOf picks the response status for err. Configuration errors and
// anything unrecognised are 500.
func StatusOf(err error) int {
	var httpErr HTTPError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &httpErr):
		return httpErr.StatusCode()
	case errors.Is(err, ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, ErrMethodNotAllowed):
		return http.StatusMethodNotAllowed
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
