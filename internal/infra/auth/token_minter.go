package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// TokenMinter signs short-lived HS256 credentials for the development
// backend. The production backend owns the real signing key; this minter
// exists so the client can be exercised end to end without it.
type TokenMinter struct {
	secret []byte
}

// NewTokenMinter is the constructor for TokenMinter.
func NewTokenMinter(secret string) (*TokenMinter, error) {
	if secret == "" {
		return nil, errors.New("jwt secret must be provided")
	}

	return &TokenMinter{secret: []byte(secret)}, nil
}

// Mint creates a signed credential carrying the subject, display name,
// scope list, and expiry.
func (m *TokenMinter) Mint(subject uuid.UUID, name string, scopes []string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":    subject.String(),
		"name":   name,
		"iat":    now.Unix(),
		"exp":    now.Add(ttl).Unix(),
		"scopes": scopes,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token")
	}

	return signed, nil
}

// Verify checks a credential's signature and expiry and returns its claims.
func (m *TokenMinter) Verify(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}

		return m.secret, nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("failed to parse token claims")
	}

	return claims, nil
}
