package api

import (
	"net/http"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v5"
)

// ResponseError is the body of every non-2xx response.
type ResponseError struct {
	Message   string `json:"message"`
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"`
}

// render writes v as JSON. Records are large nested structs, so they are
// encoded with go-json instead of echo's default serializer.
func render(c *echo.Context, status int, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Blob(status, echo.MIMEApplicationJSON, b)
}

func writeError(c *echo.Context, status int, errType, msg string) error {
	return render(c, status, map[string]any{
		"error": ResponseError{
			Message:   msg,
			Type:      errType,
			RequestID: c.Response().Header().Get(echo.HeaderXRequestID),
		},
	})
}

func writeBadRequest(c *echo.Context, msg string) error {
	return writeError(c, http.StatusBadRequest, "invalid_request_error", msg)
}

// writeFailure maps err onto a status with errorStatus and logs server errors.
func writeFailure(c *echo.Context, err error) error {
	status, errType := errorStatus(err)
	if status >= http.StatusInternalServerError {
		requestLogger(c).Error("request failed", "path", c.Request().URL.Path, "err", err)
	}
	return writeError(c, status, errType, err.Error())
}
