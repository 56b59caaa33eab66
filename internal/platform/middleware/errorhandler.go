package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinica/clinic/internal/platform/validation"
)

// ErrorHandler renders every error as {"detail": ...}. Validation failures
// become 422 with a field to messages map; unknown errors are logged and
// hidden behind a generic 500.
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		var detail interface{} = "Error interno del servidor"

		var verrs validation.Errors
		var he *echo.HTTPError
		switch {
		case errors.As(err, &verrs):
			status = http.StatusUnprocessableEntity
			detail = verrs
		case errors.As(err, &he):
			status = he.Code
			detail = he.Message
			if inner, ok := he.Message.(error); ok {
				detail = inner.Error()
			}
		default:
			rid, _ := c.Get("request_id").(string)
			logger.Error().Err(err).Str("request_id", rid).Msg("unhandled error")
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(status)
		} else {
			writeErr = c.JSON(status, map[string]interface{}{"detail": detail})
		}
		if writeErr != nil {
			logger.Error().Err(writeErr).Msg("write error response")
		}
	}
}
