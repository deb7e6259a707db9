// Package validator adapts go-playground/validator to echo's Validator
// interface.
package validator

import (
	"net/http"

	playground "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type requestValidator struct {
	validate *playground.Validate
}

// New builds an echo.Validator backed by struct-tag validation.
func New() echo.Validator {
	return &requestValidator{validate: playground.New()}
}

// Validate implements echo.Validator.
func (v *requestValidator) Validate(i any) error {
	if err := v.validate.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	return nil
}
