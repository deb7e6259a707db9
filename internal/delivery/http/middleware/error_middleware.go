package middleware

import (
	"log/slog"
	"net/http"

	"voiceid/internal/delivery/http/response"
	domainerrors "voiceid/internal/domain/errors"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// ErrorMiddleware error handling middleware
type ErrorMiddleware struct {
	logger *slog.Logger
}

// NewErrorMiddleware creates a new error handling middleware
func NewErrorMiddleware(logger *slog.Logger) *ErrorMiddleware {
	return &ErrorMiddleware{
		logger: logger,
	}
}

// HandleHTTPError handles errors as Echo's HTTPErrorHandler. Everything
// collapses into the detail envelope the client expects.
func (m *ErrorMiddleware) HandleHTTPError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var appErr domainerrors.AppError
	if errors.As(err, &appErr) {
		_ = response.Error(c, appErr.HTTPCode(), appErr.Message())

		return
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		detail, ok := httpErr.Message.(string)
		if !ok {
			detail = http.StatusText(httpErr.Code)
		}
		_ = response.Error(c, httpErr.Code, detail)

		return
	}

	m.logger.Error("Unhandled error",
		"error", err.Error(),
		"path", c.Request().URL.Path,
		"method", c.Request().Method,
	)

	_ = response.Error(c, http.StatusInternalServerError, "Internal server error")
}
