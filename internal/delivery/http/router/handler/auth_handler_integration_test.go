package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"voiceid/config"
	"voiceid/internal/delivery/http/middleware"
	"voiceid/internal/delivery/http/validator"
	"voiceid/internal/domain/entity"
	"voiceid/internal/infra/auth"
	"voiceid/internal/stubserver"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestServer wires the handlers, middleware and error handling the same
// way the stub server does, minus the listener.
func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()

	cfg := &config.Config{}
	cfg.Capture.MinEnrollmentRecordings = 3
	cfg.Stub = &config.StubConfig{
		JWTSecret:     "handler-test-secret",
		AccessTTL:     30 * time.Minute,
		PreAuthTTL:    5 * time.Minute,
		EnrollmentTTL: 15 * time.Minute,
		BcryptCost:    4,
	}

	minter, err := auth.NewTokenMinter(cfg.Stub.JWTSecret)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	directory := stubserver.NewDirectory(cfg, auth.NewBcryptHasher(cfg.Stub.BcryptCost), minter, logger)

	authHandler := NewAuthHandler(directory, logger)
	userHandler := NewUserHandler(directory, logger)
	authMiddleware := middleware.NewAuthMiddleware(minter)

	e := echo.New()
	e.Validator = validator.New()
	e.HTTPErrorHandler = middleware.NewErrorMiddleware(logger).HandleHTTPError

	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/login", authHandler.Login)

	enrollGroup := e.Group("/auth/register")
	enrollGroup.Use(authMiddleware.Authenticate)
	enrollGroup.Use(authMiddleware.RequireScope(entity.ScopeOnboardingRequired))
	enrollGroup.POST("/enroll-voice", authHandler.EnrollVoice)

	verifyGroup := e.Group("/auth/login")
	verifyGroup.Use(authMiddleware.Authenticate)
	verifyGroup.Use(authMiddleware.RequireScope(entity.ScopeSecondFactorRequired))
	verifyGroup.POST("/verify-voice", authHandler.VerifyVoice)

	userGroup := e.Group("/users")
	userGroup.Use(authMiddleware.Authenticate)
	userGroup.Use(authMiddleware.RequireScope(entity.ScopeFullAccess))
	userGroup.GET("/me", userHandler.Me)

	return e
}

func doRegister(t *testing.T, e *echo.Echo, email string) (token, phrase string) {
	t.Helper()

	body, err := json.Marshal(map[string]string{
		"email":    email,
		"password": "s3cret-pass",
		"name":     "Jan",
		"surname":  "Kowalski",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	return resp["access_token"].(string), resp["phrase"].(string)
}

func multipartUpload(t *testing.T, field string, count int) (io.Reader, string) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for i := 0; i < count; i++ {
		part, err := writer.CreateFormFile(field, "sample.wav")
		require.NoError(t, err)
		_, err = part.Write([]byte("pcm"))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	return &buf, writer.FormDataContentType()
}

func doEnroll(t *testing.T, e *echo.Echo, token string) string {
	t.Helper()

	body, contentType := multipartUpload(t, "files", 3)
	req := httptest.NewRequest(http.MethodPost, "/auth/register/enroll-voice", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	return resp["access_token"].(string)
}

func TestAuthHandler_RegisterIssuesPhrase(t *testing.T) {
	e := newTestServer(t)

	token, phrase := doRegister(t, e, "jan@example.com")
	assert.NotEmpty(t, token)
	assert.NotEmpty(t, phrase)
}

func TestAuthHandler_RegisterValidation(t *testing.T) {
	e := newTestServer(t)

	body := `{"email":"not-an-email","password":"short","name":"","surname":""}`
	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "detail")
}

func TestAuthHandler_EnrollVoiceScopeLadder(t *testing.T) {
	e := newTestServer(t)

	onboarding, _ := doRegister(t, e, "jan@example.com")
	full := doEnroll(t, e, onboarding)
	assert.NotEmpty(t, full)

	// A full-access credential no longer carries the onboarding scope.
	body, contentType := multipartUpload(t, "files", 3)
	req := httptest.NewRequest(http.MethodPost, "/auth/register/enroll-voice", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+full)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAuthHandler_EnrollVoiceRequiresAuth(t *testing.T) {
	e := newTestServer(t)

	body, contentType := multipartUpload(t, "files", 3)
	req := httptest.NewRequest(http.MethodPost, "/auth/register/enroll-voice", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Authorization header is missing")
}

func TestAuthHandler_EnrollVoiceTooFewFiles(t *testing.T) {
	e := newTestServer(t)

	onboarding, _ := doRegister(t, e, "jan@example.com")

	body, contentType := multipartUpload(t, "files", 2)
	req := httptest.NewRequest(http.MethodPost, "/auth/register/enroll-voice", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+onboarding)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "At least 3 enrollment files are required")
}

func TestAuthHandler_LoginAndVerifyVoice(t *testing.T) {
	e := newTestServer(t)

	onboarding, phrase := doRegister(t, e, "jan@example.com")
	doEnroll(t, e, onboarding)

	form := url.Values{}
	form.Set("username", "jan@example.com")
	form.Set("password", "s3cret-pass")
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var login map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))
	assert.Equal(t, phrase, login["phrase"])

	body, contentType := multipartUpload(t, "file", 1)
	req = httptest.NewRequest(http.MethodPost, "/auth/login/verify-voice", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+login["access_token"].(string))
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var verify map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &verify))
	assert.NotEmpty(t, verify["access_token"])
}

func TestAuthHandler_LoginBeforeEnrollment(t *testing.T) {
	e := newTestServer(t)

	doRegister(t, e, "jan@example.com")

	form := url.Values{}
	form.Set("username", "jan@example.com")
	form.Set("password", "s3cret-pass")
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "Voice enrollment is not complete")
}

func TestUserHandler_Me(t *testing.T) {
	e := newTestServer(t)

	onboarding, _ := doRegister(t, e, "jan@example.com")
	full := doEnroll(t, e, onboarding)

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+full)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var profile map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
	assert.Equal(t, "jan@example.com", profile["email"])
	assert.Equal(t, "Kowalski", profile["surname"])

	// A step-up credential may not read the profile.
	req = httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+onboarding)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
