package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"voiceid/config"
	"voiceid/internal/domain/entity"
	"voiceid/internal/domain/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCapture struct {
	state entity.CaptureState
}

func (f *fakeCapture) Start(context.Context) error      { return nil }
func (f *fakeCapture) Stop() (*entity.Recording, error) { return nil, nil }
func (f *fakeCapture) Play(context.Context) error       { return nil }
func (f *fakeCapture) Pause() error                     { return nil }
func (f *fakeCapture) Discard() error                   { return nil }
func (f *fakeCapture) Take() *entity.Recording          { return nil }
func (f *fakeCapture) ElapsedSeconds() int              { return 0 }
func (f *fakeCapture) PlaybackSeconds() int             { return 0 }
func (f *fakeCapture) Teardown()                        {}

func (f *fakeCapture) State() entity.CaptureState {
	if f.state == "" {
		return entity.CaptureIdle
	}

	return f.state
}

type fakeSessions struct {
	session *entity.AuthSession
}

func (f *fakeSessions) Decode(string) (*entity.AuthSession, error) { return f.session, nil }

func (f *fakeSessions) Adopt(_ context.Context, token, phrase string) (*entity.AuthSession, error) {
	claims, err := decodeScopes(token)
	if err != nil {
		return nil, err
	}
	f.session = &entity.AuthSession{RawToken: token, Scopes: claims, ChallengePhrase: phrase}

	return f.session, nil
}

func (f *fakeSessions) Restore(context.Context) *entity.AuthSession { return f.current() }

func (f *fakeSessions) Logout() error {
	f.session = nil

	return nil
}

func (f *fakeSessions) Current() *entity.AuthSession { return f.current() }

func (f *fakeSessions) Status() entity.SessionStatus { return f.current().Status() }

func (f *fakeSessions) current() *entity.AuthSession {
	if f.session == nil {
		return &entity.AuthSession{}
	}

	return f.session
}

// decodeScopes lets tests drive the status ladder with readable tokens like
// "token:2fa:required".
func decodeScopes(token string) ([]string, error) {
	parts := strings.SplitN(token, ":", 2)
	if len(parts) != 2 {
		return nil, nil
	}

	return []string{parts[1]}, nil
}

type fakeAuthAPI struct {
	cred entity.IssuedCredential
}

func (f *fakeAuthAPI) Login(context.Context, string, string) (*entity.IssuedCredential, error) {
	return &f.cred, nil
}

func (f *fakeAuthAPI) Register(context.Context, service.RegisterInput) (*entity.IssuedCredential, error) {
	return &f.cred, nil
}

func (f *fakeAuthAPI) EnrollVoice(context.Context, string, []entity.AudioClip) (*entity.IssuedCredential, error) {
	return &f.cred, nil
}

func (f *fakeAuthAPI) VerifyVoice(context.Context, string, entity.AudioClip) (*entity.IssuedCredential, error) {
	return &f.cred, nil
}

type fakeProber struct{}

func (fakeProber) Probe([]byte, string) (float64, error) { return 1, nil }

func newTestShell(t *testing.T, sessions *fakeSessions, api *fakeAuthAPI, input string) (*Shell, *bytes.Buffer) {
	t.Helper()

	cfg := &config.Config{}
	cfg.Capture.MinEnrollmentRecordings = 3

	out := &bytes.Buffer{}

	return &Shell{
		cfg:      cfg,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		capture:  &fakeCapture{},
		sessions: sessions,
		api:      api,
		prober:   fakeProber{},
		in:       strings.NewReader(input),
		out:      out,
	}, out
}

func TestShell_HelpGatedByStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		session  *entity.AuthSession
		contains string
		excludes string
	}{
		{
			name:     "Unauthenticated",
			session:  nil,
			contains: "login <email> <password>",
			excludes: "record",
		},
		{
			name:     "OnboardingRequired",
			session:  &entity.AuthSession{RawToken: "t", Scopes: []string{entity.ScopeOnboardingRequired}},
			contains: "import <path>",
			excludes: "login <email>",
		},
		{
			name:     "PendingSecondFactor",
			session:  &entity.AuthSession{RawToken: "t", Scopes: []string{entity.ScopeSecondFactorRequired}},
			contains: "collect, submit, logout",
			excludes: "import",
		},
		{
			name:     "Authenticated",
			session:  &entity.AuthSession{RawToken: "t", Scopes: []string{entity.ScopeFullAccess}},
			contains: "whoami, logout",
			excludes: "record",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			shell, out := newTestShell(t, &fakeSessions{session: tt.session}, &fakeAuthAPI{}, "")
			shell.printHelp()

			assert.Contains(t, out.String(), "help, status, exit")
			assert.Contains(t, out.String(), tt.contains)
			assert.NotContains(t, out.String(), tt.excludes)
		})
	}
}

func TestShell_LoginStartsVerificationFlow(t *testing.T) {
	t.Parallel()

	api := &fakeAuthAPI{cred: entity.IssuedCredential{
		Token: "token:" + entity.ScopeSecondFactorRequired, Phrase: "speak friend", ExpiresIn: 300,
	}}
	sessions := &fakeSessions{}
	shell, out := newTestShell(t, sessions, api,
		"login jan@example.com s3cret\nstatus\nexit\n")

	require.NoError(t, shell.Serve(context.Background()))

	assert.Contains(t, out.String(), `record yourself reading: "speak friend"`)
	assert.Contains(t, out.String(), "verification batch: 0 of 1 recordings")
}

func TestShell_RegisterStartsEnrollmentFlow(t *testing.T) {
	t.Parallel()

	api := &fakeAuthAPI{cred: entity.IssuedCredential{
		Token: "token:" + entity.ScopeOnboardingRequired, Phrase: "enrollment phrase", ExpiresIn: 900,
	}}
	shell, out := newTestShell(t, &fakeSessions{}, api,
		"register jan@example.com s3cret-pass Jan Kowalski\nstatus\nexit\n")

	require.NoError(t, shell.Serve(context.Background()))

	assert.Contains(t, out.String(), "enrollment batch: 0 of 3 recordings")
}

func TestShell_LogoutTearsDownFlow(t *testing.T) {
	t.Parallel()

	api := &fakeAuthAPI{cred: entity.IssuedCredential{
		Token: "token:" + entity.ScopeOnboardingRequired, Phrase: "p",
	}}
	shell, out := newTestShell(t, &fakeSessions{}, api,
		"login jan@example.com s3cret\nlogout\ncollect\nexit\n")

	require.NoError(t, shell.Serve(context.Background()))

	assert.Contains(t, out.String(), "logged out")
	assert.Contains(t, out.String(), "no enrollment or verification flow is active")
}

func TestShell_UnknownCommand(t *testing.T) {
	t.Parallel()

	shell, out := newTestShell(t, &fakeSessions{}, &fakeAuthAPI{}, "frobnicate\nexit\n")

	require.NoError(t, shell.Serve(context.Background()))

	assert.Contains(t, out.String(), `unknown command "frobnicate"`)
}
