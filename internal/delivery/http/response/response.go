// Package response defines the wire payloads the stub server shares with the
// production backend.
package response

import (
	"github.com/labstack/echo/v4"
)

// Token is the credential envelope returned by enrollment and verification.
type Token struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// TokenWithPhrase additionally carries the challenge phrase to record.
type TokenWithPhrase struct {
	AccessToken string `json:"access_token"`
	Phrase      string `json:"phrase"`
	ExpiresIn   int    `json:"expires_in"`
}

// Profile is the user record returned by /users/me.
type Profile struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Surname string `json:"surname"`
}

// Detail is the error envelope. Every non-success response uses it.
type Detail struct {
	Detail string `json:"detail"`
}

// Error writes the error envelope with the given status.
func Error(c echo.Context, statusCode int, detail string) error {
	return c.JSON(statusCode, Detail{Detail: detail})
}
