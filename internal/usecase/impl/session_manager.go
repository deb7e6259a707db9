package impl

import (
	"context"
	"log/slog"
	"sync"

	"voiceid/internal/domain/entity"
	domainerrors "voiceid/internal/domain/errors"
	"voiceid/internal/domain/repository"
	"voiceid/internal/domain/service"
	"voiceid/internal/usecase"

	"github.com/pkg/errors"
)

// sessionManager implements the SessionUsecase interface. It owns the two
// persisted slots (credential and challenge phrase) and the derived session;
// nothing else writes them.
type sessionManager struct {
	store    repository.CredentialStore
	decoder  service.TokenDecoder
	profiles service.ProfileAPI
	logger   *slog.Logger

	mu      sync.Mutex
	current *entity.AuthSession
}

// NewSessionManager is the constructor for sessionManager.
func NewSessionManager(
	store repository.CredentialStore,
	decoder service.TokenDecoder,
	profiles service.ProfileAPI,
	logger *slog.Logger,
) usecase.SessionUsecase {
	return &sessionManager{
		store:    store,
		decoder:  decoder,
		profiles: profiles,
		logger:   logger,
		current:  &entity.AuthSession{},
	}
}

// Decode derives a session view from a credential without installing it.
func (srv *sessionManager) Decode(token string) (*entity.AuthSession, error) {
	claims, err := srv.decoder.Decode(token)
	if err != nil {
		return nil, errors.Wrap(domainerrors.ErrTokenDecode, err.Error())
	}

	return &entity.AuthSession{
		RawToken:  token,
		Scopes:    claims.Scopes,
		Subject:   claims.Subject,
		Name:      claims.Name,
		ExpiresAt: claims.ExpiresAt,
	}, nil
}

// Adopt installs a new credential. Each side effect must complete in order:
// persist, decode, and (for a full-access credential) profile fetch. Persist
// failure keeps the previous session; decode and profile failure force a full
// logout, since an ambiguous credential is always treated as no credential.
func (srv *sessionManager) Adopt(ctx context.Context, token, phrase string) (*entity.AuthSession, error) {
	srv.mu.Lock()
	defer srv.mu.Unlock()

	prevToken := srv.current.RawToken

	if err := srv.store.SaveCredential(token); err != nil {
		srv.rollbackCredentialLocked(prevToken)

		return nil, errors.Wrap(err, "failed to persist credential")
	}

	session, err := srv.Decode(token)
	if err != nil {
		srv.logger.Warn("Adopted credential failed to decode, logging out", slog.Any("error", err))
		srv.logoutLocked()

		return nil, err
	}

	switch {
	case session.Status() == entity.StatusAuthenticated:
		// The step-up is over; a cached challenge must not be replayable.
		// This wins over any phrase the server sent along.
		if err := srv.store.ClearPhrase(); err != nil {
			srv.logger.Warn("Failed to clear challenge phrase", slog.Any("error", err))
		}
	case phrase != "":
		if err := srv.store.SavePhrase(phrase); err != nil {
			srv.rollbackCredentialLocked(prevToken)

			return nil, errors.Wrap(err, "failed to persist challenge phrase")
		}
		session.ChallengePhrase = phrase
	default:
		if cached, err := srv.store.LoadPhrase(); err == nil {
			session.ChallengePhrase = cached
		}
	}

	if session.Status() == entity.StatusAuthenticated {
		profile, err := srv.profiles.Me(ctx, token)
		if err != nil {
			// A rejected profile fetch usually means the credential was
			// already invalid server-side; half-authenticated is not a state.
			srv.logger.Warn("Profile fetch failed, logging out", slog.Any("error", err))
			srv.logoutLocked()

			return nil, errors.Wrap(domainerrors.ErrProfileFetchFailed, err.Error())
		}
		session.Profile = profile
	}

	srv.current = session
	srv.logger.Info("Credential adopted",
		slog.String("status", string(session.Status())),
		slog.String("subject", session.Subject))

	return session, nil
}

// Restore rebuilds the session from the persisted credential at startup. Any
// failure resolves to the unauthenticated session with the slots cleared.
func (srv *sessionManager) Restore(ctx context.Context) *entity.AuthSession {
	srv.mu.Lock()
	defer srv.mu.Unlock()

	token, err := srv.store.LoadCredential()
	if err != nil {
		if !errors.Is(err, repository.ErrSlotEmpty) {
			srv.logger.Warn("Failed to load persisted credential", slog.Any("error", err))
		}
		srv.current = &entity.AuthSession{}

		return srv.current
	}

	session, err := srv.Decode(token)
	if err != nil {
		srv.logger.Warn("Persisted credential failed to decode, logging out", slog.Any("error", err))
		srv.logoutLocked()

		return srv.current
	}

	if cached, err := srv.store.LoadPhrase(); err == nil {
		session.ChallengePhrase = cached
	}

	if session.Status() == entity.StatusAuthenticated {
		profile, err := srv.profiles.Me(ctx, token)
		if err != nil {
			srv.logger.Warn("Profile fetch failed on restore, logging out", slog.Any("error", err))
			srv.logoutLocked()

			return srv.current
		}
		session.Profile = profile
		session.ChallengePhrase = ""
		if err := srv.store.ClearPhrase(); err != nil {
			srv.logger.Warn("Failed to clear challenge phrase", slog.Any("error", err))
		}
	}

	srv.current = session
	srv.logger.Info("Session restored", slog.String("status", string(session.Status())))

	return session
}

// Logout clears both persisted slots and resets to unauthenticated.
func (srv *sessionManager) Logout() error {
	srv.mu.Lock()
	defer srv.mu.Unlock()

	srv.logoutLocked()
	srv.logger.Info("Logged out")

	return nil
}

// Current returns the session derived from the last adopted credential.
func (srv *sessionManager) Current() *entity.AuthSession {
	srv.mu.Lock()
	defer srv.mu.Unlock()

	return srv.current
}

// Status is the accessor the routing collaborator reads.
func (srv *sessionManager) Status() entity.SessionStatus {
	srv.mu.Lock()
	defer srv.mu.Unlock()

	return srv.current.Status()
}

// logoutLocked clears both slots and the derived session. Slot errors are
// logged, never surfaced: logout must always succeed locally.
func (srv *sessionManager) logoutLocked() {
	if err := srv.store.ClearCredential(); err != nil {
		srv.logger.Warn("Failed to clear credential slot", slog.Any("error", err))
	}
	if err := srv.store.ClearPhrase(); err != nil {
		srv.logger.Warn("Failed to clear phrase slot", slog.Any("error", err))
	}
	srv.current = &entity.AuthSession{}
}

// rollbackCredentialLocked restores the credential slot to the previous
// session's token after a failed adoption.
func (srv *sessionManager) rollbackCredentialLocked(prevToken string) {
	var err error
	if prevToken == "" {
		err = srv.store.ClearCredential()
	} else {
		err = srv.store.SaveCredential(prevToken)
	}
	if err != nil {
		srv.logger.Warn("Failed to roll back credential slot", slog.Any("error", err))
	}
}
