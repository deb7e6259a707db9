package entity

import "time"

// SessionStatus is the authentication phase derived from a credential's scopes.
type SessionStatus string

const (
	// StatusUnauthenticated means no usable credential is present.
	StatusUnauthenticated SessionStatus = "unauthenticated"
	// StatusPendingSecondFactor means the password was accepted and the user
	// must now pass voice verification.
	StatusPendingSecondFactor SessionStatus = "pending_second_factor"
	// StatusOnboardingRequired means the account exists but voice enrollment
	// has not been completed yet.
	StatusOnboardingRequired SessionStatus = "onboarding_required"
	// StatusAuthenticated means the credential grants full access.
	StatusAuthenticated SessionStatus = "authenticated"
)

// Scope markers issued by the authentication server.
const (
	ScopeFullAccess           = "auth:full"
	ScopeSecondFactorRequired = "2fa:required"
	ScopeOnboardingRequired   = "onboarding:required"
)

// scopeRule binds one scope marker to the status it implies.
type scopeRule struct {
	scope  string
	status SessionStatus
}

// scopePolicy is the ordered scope-to-status mapping. The first matching rule
// wins, so full access is listed first: a residual step-up marker must never
// re-demote an otherwise fully authorized session.
var scopePolicy = []scopeRule{
	{ScopeFullAccess, StatusAuthenticated},
	{ScopeSecondFactorRequired, StatusPendingSecondFactor},
	{ScopeOnboardingRequired, StatusOnboardingRequired},
}

// StatusForScopes derives the session status from a credential's scope set.
// A credential matching no rule is treated as unauthenticated.
func StatusForScopes(scopes []string) SessionStatus {
	for _, rule := range scopePolicy {
		for _, scope := range scopes {
			if scope == rule.scope {
				return rule.status
			}
		}
	}

	return StatusUnauthenticated
}

// TokenClaims is the subset of credential claims the client reads. The token
// is otherwise treated as opaque.
type TokenClaims struct {
	Subject   string
	Name      string
	Scopes    []string
	ExpiresAt time.Time
}

// AuthSession is the decoded, derived view of the current credential. It is
// replaced wholesale whenever a new credential is adopted and reset to the
// zero session on logout or decode failure.
type AuthSession struct {
	RawToken        string    // The opaque bearer credential as received from the server.
	Scopes          []string  // Capability markers extracted from the credential.
	Subject         string    // Server-side user identifier from the credential.
	Name            string    // Display name carried in the credential.
	ExpiresAt       time.Time // Credential expiry.
	ChallengePhrase string    // Server-issued phrase to speak; only while a step-up is pending.
	Profile         *Profile  // Fetched only once the session is fully authenticated.
}

// Status derives the authentication phase from the session's scopes. The
// status is never stored; the scope set is the single source of truth.
func (s *AuthSession) Status() SessionStatus {
	if s == nil || s.RawToken == "" {
		return StatusUnauthenticated
	}

	return StatusForScopes(s.Scopes)
}
