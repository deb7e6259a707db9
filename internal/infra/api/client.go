// Package api implements the HTTP clients for the voice-authentication
// backend: the submission collaborator and the profile collaborator.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"voiceid/config"
	"voiceid/internal/domain/entity"
	domainerrors "voiceid/internal/domain/errors"
	"voiceid/internal/domain/service"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Client talks to the backend over HTTP. It implements both the AuthAPI and
// ProfileAPI interfaces.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// New is the constructor for Client.
func New(cfg *config.Config, logger *slog.Logger) (*Client, error) {
	base, err := url.Parse(cfg.Server.BaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "invalid server base URL")
	}

	return &Client{
		baseURL: strings.TrimRight(base.String(), "/"),
		http:    &http.Client{Timeout: cfg.Server.Timeout},
		logger:  logger,
	}, nil
}

// tokenResponse is the backend's credential envelope.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	Phrase      string `json:"phrase,omitempty"`
	ExpiresIn   int    `json:"expires_in"`
}

// errorResponse is the backend's error envelope.
type errorResponse struct {
	Detail string `json:"detail"`
}

// profileResponse is the backend's user record.
type profileResponse struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Surname string `json:"surname"`
}

// Login exchanges email and password for a step-up credential plus the
// challenge phrase to speak.
func (c *Client) Login(ctx context.Context, email, password string) (*entity.IssuedCredential, error) {
	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/auth/login", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.Wrap(err, "failed to build login request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return c.credential(req)
}

// Register initiates registration and returns an onboarding credential plus
// the enrollment phrase.
func (c *Client) Register(ctx context.Context, input service.RegisterInput) (*entity.IssuedCredential, error) {
	body, err := json.Marshal(map[string]string{
		"email":    input.Email,
		"password": input.Password,
		"name":     input.Name,
		"surname":  input.Surname,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode registration")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/auth/register", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to build register request")
	}
	req.Header.Set("Content-Type", "application/json")

	return c.credential(req)
}

// EnrollVoice submits the collected enrollment clips under an onboarding
// credential and returns a full-access credential.
func (c *Client) EnrollVoice(ctx context.Context, token string, clips []entity.AudioClip) (*entity.IssuedCredential, error) {
	body, contentType, err := multipartBody("files", clips)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/auth/register/enroll-voice", body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build enrollment request")
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)

	return c.credential(req)
}

// VerifyVoice submits one verification clip under a step-up credential and
// returns a full-access credential.
func (c *Client) VerifyVoice(ctx context.Context, token string, clip entity.AudioClip) (*entity.IssuedCredential, error) {
	body, contentType, err := multipartBody("file", []entity.AudioClip{clip})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/auth/login/verify-voice", body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build verification request")
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)

	cred, err := c.credential(req)
	if err != nil {
		if errors.Is(err, domainerrors.ErrInvalidCredentials) {
			// A 401 on the verify endpoint means the voice did not match.
			return nil, errors.Wrap(domainerrors.ErrBiometricMismatch, err.Error())
		}

		return nil, err
	}

	return cred, nil
}

// Me fetches the profile for an authenticated session.
func (c *Client) Me(ctx context.Context, token string) (*entity.Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/users/me", nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build profile request")
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "profile request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError(resp)
	}

	var pr profileResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return nil, errors.Wrap(err, "failed to decode profile")
	}

	id, err := uuid.Parse(pr.ID)
	if err != nil {
		return nil, errors.Wrap(err, "profile has an invalid user ID")
	}

	return &entity.Profile{ID: id, Email: pr.Email, Name: pr.Name, Surname: pr.Surname}, nil
}

// credential performs a request that is expected to yield a fresh credential.
func (c *Client) credential(req *http.Request) (*entity.IssuedCredential, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(domainerrors.ErrSubmissionRejected, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, c.statusError(resp)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, errors.Wrap(err, "failed to decode credential response")
	}
	if tr.AccessToken == "" {
		return nil, errors.Wrap(domainerrors.ErrSubmissionRejected, "response carried no credential")
	}

	return &entity.IssuedCredential{
		Token:     tr.AccessToken,
		Phrase:    tr.Phrase,
		ExpiresIn: tr.ExpiresIn,
	}, nil
}

// statusError maps a non-success response onto the error taxonomy.
func (c *Client) statusError(resp *http.Response) error {
	detail := responseDetail(resp.Body)
	c.logger.Debug("Server rejected request",
		slog.Int("status", resp.StatusCode), slog.String("detail", detail))

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return errors.Wrap(domainerrors.ErrInvalidCredentials, detail)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return errors.Wrap(domainerrors.ErrValidationFailed, detail)
	default:
		return errors.Wrapf(domainerrors.ErrSubmissionRejected, "status %d: %s", resp.StatusCode, detail)
	}
}

func responseDetail(body io.Reader) string {
	var er errorResponse
	if err := json.NewDecoder(body).Decode(&er); err != nil || er.Detail == "" {
		return "no detail"
	}

	return er.Detail
}

// multipartBody packages audio clips as a multipart form under one field name.
func multipartBody(field string, clips []entity.AudioClip) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for _, clip := range clips {
		part, err := writer.CreateFormFile(field, clip.Filename)
		if err != nil {
			return nil, "", errors.Wrap(err, "failed to create form file")
		}
		if _, err := part.Write(clip.Data); err != nil {
			return nil, "", errors.Wrap(err, "failed to write audio payload")
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", errors.Wrap(err, "failed to finish multipart body")
	}

	return &buf, writer.FormDataContentType(), nil
}
