package api

import (
	"errors"
	"net/http"

	"github.com/samcharles93/tagcache/pkg/cache"
	"github.com/samcharles93/tagcache/pkg/definitions"
)

var ErrInvalidRequest = errors.New("invalid_request")

type invalidRequestError struct {
	msg string
}

func (e invalidRequestError) Error() string {
	return e.msg
}

func (e invalidRequestError) Unwrap() error {
	return ErrInvalidRequest
}

func newInvalidRequest(msg string) error {
	return invalidRequestError{msg: msg}
}

// errorStatus maps a decode failure to an HTTP status and error type.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest, "invalid_request_error"
	case errors.Is(err, ErrMapNotFound), errors.Is(err, cache.ErrUnknownTag):
		return http.StatusNotFound, "not_found_error"
	case errors.Is(err, cache.ErrUnsupportedVersion), errors.Is(err, definitions.ErrNoDiffuseMap):
		return http.StatusUnprocessableEntity, "unsupported_error"
	default:
		return http.StatusInternalServerError, "server_error"
	}
}

// resultLabel is the metrics label for a decode outcome.
func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, cache.ErrUnknownTag):
		return "unknown_tag"
	case errors.Is(err, cache.ErrUnsupportedVersion):
		return "unsupported"
	case errors.Is(err, cache.ErrResolution):
		return "resolution"
	case errors.Is(err, cache.ErrTruncatedInput):
		return "truncated"
	default:
		return "error"
	}
}
