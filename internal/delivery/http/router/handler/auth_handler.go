// Package handler contains the HTTP handlers for the stub server.
package handler

import (
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"voiceid/internal/delivery/http/middleware"
	"voiceid/internal/delivery/http/response"
	"voiceid/internal/domain/entity"
	"voiceid/internal/domain/service"
	"voiceid/internal/stubserver"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// AuthHandler holds dependencies for the authentication endpoints.
type AuthHandler struct {
	directory *stubserver.Directory
	logger    *slog.Logger
}

// NewAuthHandler is the constructor for AuthHandler, injected by Fx.
func NewAuthHandler(directory *stubserver.Directory, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{directory: directory, logger: logger}
}

// registerRequest is the JSON body for /auth/register.
type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"required"`
	Surname  string `json:"surname" validate:"required"`
}

// Register handles the registration request.
func (h *AuthHandler) Register(c echo.Context) error {
	var input registerRequest
	if err := c.Bind(&input); err != nil {
		return response.Error(c, http.StatusBadRequest, "Invalid registration input")
	}
	if err := c.Validate(&input); err != nil {
		return errors.WithStack(err)
	}

	cred, err := h.directory.Register(service.RegisterInput{
		Email:    input.Email,
		Password: input.Password,
		Name:     input.Name,
		Surname:  input.Surname,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return c.JSON(http.StatusCreated, response.TokenWithPhrase{
		AccessToken: cred.Token,
		Phrase:      cred.Phrase,
		ExpiresIn:   cred.ExpiresIn,
	})
}

// Login handles the password login request. The body is an OAuth2 password
// form: username and password fields, form encoded.
func (h *AuthHandler) Login(c echo.Context) error {
	username := c.FormValue("username")
	password := c.FormValue("password")
	if username == "" || password == "" {
		return response.Error(c, http.StatusBadRequest, "username and password are required")
	}

	cred, err := h.directory.Login(username, password)
	if err != nil {
		return errors.WithStack(err)
	}

	return c.JSON(http.StatusOK, response.TokenWithPhrase{
		AccessToken: cred.Token,
		Phrase:      cred.Phrase,
		ExpiresIn:   cred.ExpiresIn,
	})
}

// EnrollVoice handles the enrollment submission: a multipart form whose
// "files" parts carry the recorded clips.
func (h *AuthHandler) EnrollVoice(c echo.Context) error {
	subject, ok := middleware.Subject(c)
	if !ok {
		return response.Error(c, http.StatusUnauthorized, "No authenticated subject")
	}

	form, err := c.MultipartForm()
	if err != nil {
		return response.Error(c, http.StatusBadRequest, "Expected a multipart form")
	}

	clips, err := readClips(form.File["files"])
	if err != nil {
		return errors.WithStack(err)
	}

	cred, err := h.directory.EnrollVoice(subject, clips)
	if err != nil {
		return errors.WithStack(err)
	}

	return c.JSON(http.StatusOK, response.Token{
		AccessToken: cred.Token,
		ExpiresIn:   cred.ExpiresIn,
	})
}

// VerifyVoice handles the verification submission: a multipart form with a
// single "file" part.
func (h *AuthHandler) VerifyVoice(c echo.Context) error {
	subject, ok := middleware.Subject(c)
	if !ok {
		return response.Error(c, http.StatusUnauthorized, "No authenticated subject")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return response.Error(c, http.StatusBadRequest, "Expected a 'file' form part")
	}

	clips, err := readClips([]*multipart.FileHeader{fileHeader})
	if err != nil {
		return errors.WithStack(err)
	}

	cred, err := h.directory.VerifyVoice(subject, clips[0])
	if err != nil {
		return errors.WithStack(err)
	}

	return c.JSON(http.StatusOK, response.Token{
		AccessToken: cred.Token,
		ExpiresIn:   cred.ExpiresIn,
	})
}

// readClips drains the uploaded parts into memory.
func readClips(headers []*multipart.FileHeader) ([]entity.AudioClip, error) {
	clips := make([]entity.AudioClip, 0, len(headers))
	for _, header := range headers {
		src, err := header.Open()
		if err != nil {
			return nil, errors.Wrap(err, "failed to open uploaded file")
		}

		data, err := io.ReadAll(src)
		src.Close()
		if err != nil {
			return nil, errors.Wrap(err, "failed to read uploaded file")
		}

		clips = append(clips, entity.AudioClip{
			Filename: header.Filename,
			MIMEType: header.Header.Get("Content-Type"),
			Data:     data,
		})
	}

	return clips, nil
}
