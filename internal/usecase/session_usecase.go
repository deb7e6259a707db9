package usecase

import (
	"context"

	"voiceid/internal/domain/entity"
)

// SessionUsecase is the single authority mapping a credential to an
// authentication phase, and the only writer of persisted credential state.
type SessionUsecase interface {
	// Decode derives a session view from a credential without installing it.
	// It fails with ErrTokenDecode for malformed or expired credentials.
	Decode(token string) (*entity.AuthSession, error)

	// Adopt installs a new credential: persists it, decodes it, and fetches
	// the profile when the credential grants full access. On persist failure
	// the previous session is kept; on profile-fetch failure the session is
	// fully logged out. The optional phrase replaces any cached challenge.
	Adopt(ctx context.Context, token, phrase string) (*entity.AuthSession, error)

	// Restore rebuilds the session from the persisted credential at startup.
	// A missing or undecodable credential yields the unauthenticated session
	// and clears the bad credential.
	Restore(ctx context.Context) *entity.AuthSession

	// Logout clears the persisted credential and cached phrase and resets to
	// unauthenticated. It succeeds without any network call.
	Logout() error

	// Current returns the session derived from the last adopted credential.
	Current() *entity.AuthSession

	// Status is an accessor for the routing collaborator; it never mutates.
	Status() entity.SessionStatus
}
