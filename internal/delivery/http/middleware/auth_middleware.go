package middleware

import (
	"net/http"
	"slices"
	"strings"

	"voiceid/internal/delivery/http/response"
	"voiceid/internal/infra/auth"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Context keys set by Authenticate for handlers to read.
const (
	ContextKeySubject = "subject"
	ContextKeyScopes  = "scopes"
)

// AuthMiddleware validates bearer credentials and enforces scope claims.
type AuthMiddleware struct {
	minter *auth.TokenMinter
}

// NewAuthMiddleware is the constructor for AuthMiddleware.
func NewAuthMiddleware(minter *auth.TokenMinter) *AuthMiddleware {
	return &AuthMiddleware{minter: minter}
}

// Authenticate validates the bearer credential and stores its subject and
// scopes on the request context.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			return response.Error(c, http.StatusUnauthorized, "Authorization header is missing")
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			return response.Error(c, http.StatusUnauthorized, "Invalid token format, must be Bearer token")
		}

		claims, err := m.minter.Verify(tokenString)
		if err != nil {
			return response.Error(c, http.StatusUnauthorized, "Invalid or expired token")
		}

		subjectStr, err := claims.GetSubject()
		if err != nil || subjectStr == "" {
			return response.Error(c, http.StatusUnauthorized, "Subject missing from token")
		}
		subject, err := uuid.Parse(subjectStr)
		if err != nil {
			return response.Error(c, http.StatusUnauthorized, "Invalid subject format in token")
		}

		scopesClaim, _ := claims["scopes"].([]any)
		var scopes []string
		for _, s := range scopesClaim {
			if scopeStr, ok := s.(string); ok {
				scopes = append(scopes, scopeStr)
			}
		}

		c.Set(ContextKeySubject, subject)
		c.Set(ContextKeyScopes, scopes)

		return next(c)
	}
}

// RequireScope is a middleware factory that checks for a specific scope.
// It must be used AFTER the Authenticate middleware.
func (m *AuthMiddleware) RequireScope(requiredScope string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			scopesVal := c.Get(ContextKeyScopes)
			scopes, ok := scopesVal.([]string)
			if !ok {
				return response.Error(c, http.StatusForbidden, "Permission denied: scope information missing")
			}

			if !slices.Contains(scopes, requiredScope) {
				return response.Error(c, http.StatusForbidden, "Permission denied: require '"+requiredScope+"' scope")
			}

			return next(c)
		}
	}
}

// Subject reads the authenticated subject stored by Authenticate.
func Subject(c echo.Context) (uuid.UUID, bool) {
	subject, ok := c.Get(ContextKeySubject).(uuid.UUID)

	return subject, ok
}
