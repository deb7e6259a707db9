package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"voiceid/config"
	"voiceid/internal/domain/entity"
	domainerrors "voiceid/internal/domain/errors"
	"voiceid/internal/domain/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, baseURL string) *Client {
	t.Helper()

	cfg := &config.Config{}
	cfg.Server.BaseURL = baseURL
	cfg.Server.Timeout = 5 * time.Second

	client, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	return client
}

func TestClient_Login(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/login", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "jan@example.com", r.PostFormValue("username"))
		assert.Equal(t, "s3cret", r.PostFormValue("password"))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "2fa-token",
			"phrase":       "speak friend",
			"expires_in":   300,
		})
	}))
	defer server.Close()

	cred, err := newClient(t, server.URL).Login(context.Background(), "jan@example.com", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "2fa-token", cred.Token)
	assert.Equal(t, "speak friend", cred.Phrase)
	assert.Equal(t, 300, cred.ExpiresIn)
}

func TestClient_LoginRejected(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "Incorrect email or password"})
	}))
	defer server.Close()

	_, err := newClient(t, server.URL).Login(context.Background(), "jan@example.com", "wrong")
	assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)
}

func TestClient_RegisterReturnsPhrase(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/register", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "jan@example.com", body["email"])
		assert.Equal(t, "Jan", body["name"])
		assert.Equal(t, "Kowalski", body["surname"])

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "onboarding-token",
			"phrase":       "enrollment phrase",
			"expires_in":   900,
		})
	}))
	defer server.Close()

	cred, err := newClient(t, server.URL).Register(context.Background(), service.RegisterInput{
		Email:    "jan@example.com",
		Password: "s3cret-pass",
		Name:     "Jan",
		Surname:  "Kowalski",
	})
	require.NoError(t, err)
	assert.Equal(t, "onboarding-token", cred.Token)
	assert.Equal(t, "enrollment phrase", cred.Phrase)
}

func TestClient_EnrollVoiceSendsAllClips(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/register/enroll-voice", r.URL.Path)
		assert.Equal(t, "Bearer onboarding-token", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		files := r.MultipartForm.File["files"]
		require.Len(t, files, 3)
		assert.Equal(t, "sample-01.wav", files[0].Filename)

		part, err := files[2].Open()
		require.NoError(t, err)
		defer part.Close()
		data, err := io.ReadAll(part)
		require.NoError(t, err)
		assert.Equal(t, []byte("three"), data)

		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "full-token", "expires_in": 1800})
	}))
	defer server.Close()

	clips := []entity.AudioClip{
		{Filename: "sample-01.wav", MIMEType: "audio/wav", Data: []byte("one")},
		{Filename: "sample-02.wav", MIMEType: "audio/wav", Data: []byte("two")},
		{Filename: "sample-03.wav", MIMEType: "audio/wav", Data: []byte("three")},
	}

	cred, err := newClient(t, server.URL).EnrollVoice(context.Background(), "onboarding-token", clips)
	require.NoError(t, err)
	assert.Equal(t, "full-token", cred.Token)
	assert.Empty(t, cred.Phrase)
}

func TestClient_VerifyVoiceMismatch(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/login/verify-voice", r.URL.Path)
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "Voice verification failed"})
	}))
	defer server.Close()

	clip := entity.AudioClip{Filename: "sample-01.wav", MIMEType: "audio/wav", Data: []byte("clip")}
	_, err := newClient(t, server.URL).VerifyVoice(context.Background(), "2fa-token", clip)
	assert.ErrorIs(t, err, domainerrors.ErrBiometricMismatch)
}

func TestClient_VerifyVoiceSuccess(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Len(t, r.MultipartForm.File["file"], 1)
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "full-token", "expires_in": 1800})
	}))
	defer server.Close()

	clip := entity.AudioClip{Filename: "sample-01.wav", MIMEType: "audio/wav", Data: []byte("clip")}
	cred, err := newClient(t, server.URL).VerifyVoice(context.Background(), "2fa-token", clip)
	require.NoError(t, err)
	assert.Equal(t, "full-token", cred.Token)
}

func TestClient_ValidationFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "value is not a valid email address"})
	}))
	defer server.Close()

	_, err := newClient(t, server.URL).Register(context.Background(), service.RegisterInput{})
	assert.ErrorIs(t, err, domainerrors.ErrValidationFailed)
}

func TestClient_ServerErrorIsSubmissionRejected(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newClient(t, server.URL).Login(context.Background(), "jan@example.com", "pw")
	assert.ErrorIs(t, err, domainerrors.ErrSubmissionRejected)
}

func TestClient_Me(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/me", r.URL.Path)
		assert.Equal(t, "Bearer full-token", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]string{
			"id":      id.String(),
			"email":   "jan@example.com",
			"name":    "Jan",
			"surname": "Kowalski",
		})
	}))
	defer server.Close()

	profile, err := newClient(t, server.URL).Me(context.Background(), "full-token")
	require.NoError(t, err)
	assert.Equal(t, id, profile.ID)
	assert.Equal(t, "jan@example.com", profile.Email)
	assert.Equal(t, "Kowalski", profile.Surname)
}

func TestClient_MeUnauthorized(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "Could not validate credentials"})
	}))
	defer server.Close()

	_, err := newClient(t, server.URL).Me(context.Background(), "stale-token")
	assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)
}
