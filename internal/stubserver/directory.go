// Package stubserver hosts the in-memory development backend. It mimics the
// production voice-authentication API closely enough to exercise the client
// end to end, while treating the voice matching itself as a black box that
// accepts any non-empty clip.
package stubserver

import (
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"voiceid/config"
	"voiceid/internal/domain/entity"
	domainerrors "voiceid/internal/domain/errors"
	"voiceid/internal/domain/service"
	"voiceid/internal/infra/auth"

	"github.com/google/uuid"
)

// Directory errors mirror the production backend's responses.
var (
	errEmailTaken = domainerrors.NewBaseError(
		http.StatusBadRequest,
		"EMAIL_TAKEN",
		"A user with this email already exists",
		"",
	)

	errBadLogin = domainerrors.NewBaseError(
		http.StatusUnauthorized,
		"INVALID_CREDENTIALS",
		"Incorrect email or password",
		"",
	)

	errNotEnrolled = domainerrors.NewBaseError(
		http.StatusForbidden,
		"ENROLLMENT_INCOMPLETE",
		"Voice enrollment is not complete",
		"",
	)

	errTooFewClips = domainerrors.NewBaseError(
		http.StatusBadRequest,
		"TOO_FEW_CLIPS",
		"At least 3 enrollment files are required",
		"",
	)

	errEmptyClip = domainerrors.NewBaseError(
		http.StatusBadRequest,
		"EMPTY_CLIP",
		"An uploaded audio clip is empty",
		"",
	)

	errVoiceMismatch = domainerrors.NewBaseError(
		http.StatusUnauthorized,
		"VOICE_MISMATCH",
		"Voice verification failed",
		"",
	)

	errUnknownUser = domainerrors.NewBaseError(
		http.StatusUnauthorized,
		"UNKNOWN_USER",
		"No account exists for this credential",
		"",
	)
)

// account is one registered user.
type account struct {
	id           uuid.UUID
	email        string
	passwordHash string
	name         string
	surname      string
	phrase       string
	enrolled     bool
	clipCount    int
}

// Directory is the in-memory account store behind the stub server's handlers.
type Directory struct {
	hasher service.PasswordHasher
	minter *auth.TokenMinter
	cfg    *config.StubConfig
	logger *slog.Logger

	minClips int

	mu      sync.Mutex
	byEmail map[string]*account
	rand    *rand.Rand
}

// NewDirectory is the constructor for Directory.
func NewDirectory(cfg *config.Config, hasher service.PasswordHasher, minter *auth.TokenMinter, logger *slog.Logger) *Directory {
	minClips := cfg.Capture.MinEnrollmentRecordings
	if minClips <= 0 {
		minClips = 3
	}

	return &Directory{
		hasher:   hasher,
		minter:   minter,
		cfg:      cfg.Stub,
		logger:   logger,
		minClips: minClips,
		byEmail:  make(map[string]*account),
		rand:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Register creates an account, or resets one whose enrollment never
// finished, and issues an onboarding credential plus the phrase to record.
func (d *Directory) Register(input service.RegisterInput) (*entity.IssuedCredential, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	acct, exists := d.byEmail[input.Email]
	if exists && acct.enrolled {
		return nil, errEmailTaken
	}

	hash, err := d.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	phrase := challengePhrases[d.rand.Intn(len(challengePhrases))]
	if !exists {
		acct = &account{id: uuid.New(), email: input.Email}
		d.byEmail[input.Email] = acct
	}
	acct.passwordHash = hash
	acct.name = input.Name
	acct.surname = input.Surname
	acct.phrase = phrase
	acct.clipCount = 0

	d.logger.Info("Registered account", slog.String("email", acct.email))

	return d.issue(acct, phrase, []string{entity.ScopeOnboardingRequired}, d.cfg.EnrollmentTTL)
}

// Login checks the password and issues a step-up credential carrying the
// account's challenge phrase.
func (d *Directory) Login(email, password string) (*entity.IssuedCredential, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	acct, ok := d.byEmail[email]
	if !ok || !d.hasher.Check(password, acct.passwordHash) {
		return nil, errBadLogin
	}
	if !acct.enrolled {
		return nil, errNotEnrolled
	}

	return d.issue(acct, acct.phrase, []string{entity.ScopeSecondFactorRequired}, d.cfg.PreAuthTTL)
}

// EnrollVoice completes an account's enrollment from the submitted clips and
// issues a full-access credential.
func (d *Directory) EnrollVoice(subject uuid.UUID, clips []entity.AudioClip) (*entity.IssuedCredential, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	acct, err := d.bySubjectLocked(subject)
	if err != nil {
		return nil, err
	}

	if len(clips) < d.minClips {
		return nil, errTooFewClips
	}
	for _, clip := range clips {
		if len(clip.Data) == 0 {
			return nil, errEmptyClip
		}
	}

	acct.enrolled = true
	acct.clipCount = len(clips)
	d.logger.Info("Enrollment complete",
		slog.String("email", acct.email), slog.Int("clips", len(clips)))

	return d.issue(acct, "", []string{entity.ScopeFullAccess}, d.cfg.AccessTTL)
}

// VerifyVoice runs the stand-in voice check and issues a full-access
// credential on success. Any non-empty clip passes.
func (d *Directory) VerifyVoice(subject uuid.UUID, clip entity.AudioClip) (*entity.IssuedCredential, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	acct, err := d.bySubjectLocked(subject)
	if err != nil {
		return nil, err
	}
	if !acct.enrolled {
		return nil, errNotEnrolled
	}
	if len(clip.Data) == 0 {
		return nil, errVoiceMismatch
	}

	return d.issue(acct, "", []string{entity.ScopeFullAccess}, d.cfg.AccessTTL)
}

// Profile returns the account record behind a subject claim.
func (d *Directory) Profile(subject uuid.UUID) (*entity.Profile, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	acct, err := d.bySubjectLocked(subject)
	if err != nil {
		return nil, err
	}

	return &entity.Profile{
		ID:      acct.id,
		Email:   acct.email,
		Name:    acct.name,
		Surname: acct.surname,
	}, nil
}

func (d *Directory) bySubjectLocked(subject uuid.UUID) (*account, error) {
	for _, acct := range d.byEmail {
		if acct.id == subject {
			return acct, nil
		}
	}

	return nil, errUnknownUser
}

func (d *Directory) issue(acct *account, phrase string, scopes []string, ttl time.Duration) (*entity.IssuedCredential, error) {
	token, err := d.minter.Mint(acct.id, acct.name+" "+acct.surname, scopes, ttl)
	if err != nil {
		return nil, err
	}

	return &entity.IssuedCredential{
		Token:     token,
		Phrase:    phrase,
		ExpiresIn: int(ttl.Seconds()),
	}, nil
}
