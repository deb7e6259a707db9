// Package auth provides concrete implementations for authentication-related domain services.
package auth

import (
	"time"

	"voiceid/internal/domain/entity"
	domainerrors "voiceid/internal/domain/errors"
	"voiceid/internal/domain/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// claimsDecoder is a concrete implementation of the TokenDecoder interface.
// The client cannot verify the server's signature, so the credential is
// parsed unverified; only the scope claim and expiry are read, and an expired
// or malformed credential is rejected outright.
type claimsDecoder struct{}

// NewClaimsDecoder is the constructor for claimsDecoder.
func NewClaimsDecoder() service.TokenDecoder {
	return &claimsDecoder{}
}

// Decode parses the credential's scope claim and expiry without contacting
// the server.
func (d *claimsDecoder) Decode(tokenString string) (*entity.TokenClaims, error) {
	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse credential")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("unexpected claims shape")
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return nil, errors.Wrap(err, "invalid expiry claim")
	}
	if exp == nil {
		return nil, errors.New("credential has no expiry")
	}
	if exp.Before(time.Now()) {
		return nil, errors.Wrapf(domainerrors.ErrTokenExpired, "credential expired at %s", exp.Time)
	}

	subject, err := claims.GetSubject()
	if err != nil {
		return nil, errors.Wrap(err, "invalid subject claim")
	}

	scopes, err := scopesFromClaims(claims)
	if err != nil {
		return nil, err
	}

	name, _ := claims["name"].(string)

	return &entity.TokenClaims{
		Subject:   subject,
		Name:      name,
		Scopes:    scopes,
		ExpiresAt: exp.Time,
	}, nil
}

// scopesFromClaims extracts the "scopes" claim as a string list. A missing
// claim yields an empty set, which maps to unauthenticated downstream.
func scopesFromClaims(claims jwt.MapClaims) ([]string, error) {
	raw, present := claims["scopes"]
	if !present || raw == nil {
		return nil, nil
	}

	list, ok := raw.([]any)
	if !ok {
		return nil, errors.New("scopes claim is not a list")
	}

	scopes := make([]string, 0, len(list))
	for _, item := range list {
		scope, ok := item.(string)
		if !ok {
			return nil, errors.New("scopes claim contains a non-string entry")
		}
		scopes = append(scopes, scope)
	}

	return scopes, nil
}
