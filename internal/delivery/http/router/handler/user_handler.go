package handler

import (
	"log/slog"
	"net/http"

	"voiceid/internal/delivery/http/middleware"
	"voiceid/internal/delivery/http/response"
	"voiceid/internal/stubserver"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// UserHandler holds dependencies for user-related handlers.
type UserHandler struct {
	directory *stubserver.Directory
	logger    *slog.Logger
}

// NewUserHandler is the constructor for UserHandler, injected by Fx.
func NewUserHandler(directory *stubserver.Directory, logger *slog.Logger) *UserHandler {
	return &UserHandler{directory: directory, logger: logger}
}

// Me returns the authenticated user's profile.
func (h *UserHandler) Me(c echo.Context) error {
	subject, ok := middleware.Subject(c)
	if !ok {
		return response.Error(c, http.StatusUnauthorized, "No authenticated subject")
	}

	profile, err := h.directory.Profile(subject)
	if err != nil {
		return errors.WithStack(err)
	}

	return c.JSON(http.StatusOK, response.Profile{
		ID:      profile.ID.String(),
		Email:   profile.Email,
		Name:    profile.Name,
		Surname: profile.Surname,
	})
}
