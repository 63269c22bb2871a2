package api

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v5"

	"github.com/samcharles93/tagcache/internal/logger"
)

// requestContext tags every request with an X-Request-Id, reusing a valid
// uuid sent by the client, and puts a logger carrying it on the request
// context.
func requestContext(log logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			req := c.Request()
			id := req.Header.Get(echo.HeaderXRequestID)
			if _, err := uuid.Parse(id); err != nil {
				id = uuid.NewString()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, id)

			reqLog := log.With("request_id", id)
			c.SetRequest(req.WithContext(logger.WithContext(req.Context(), reqLog)))
			return next(c)
		}
	}
}

func requestLogger(c *echo.Context) logger.Logger {
	return logger.FromContext(c.Request().Context())
}
