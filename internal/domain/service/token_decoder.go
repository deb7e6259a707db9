package service

import (
	"voiceid/internal/domain/entity"
)

// TokenDecoder extracts the scope claim and expiry from a bearer credential
// without contacting the server. The credential is never parsed for anything
// beyond those claims.
type TokenDecoder interface {
	// Decode parses the credential. It fails when the credential is
	// malformed, unparsable, or already expired; callers must treat any
	// failure as "not authenticated" and must not retain the credential.
	Decode(token string) (*entity.TokenClaims, error)
}
