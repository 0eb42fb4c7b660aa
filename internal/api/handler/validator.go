package handler

import (
	"github.com/shopassist/shopchat/internal/pkg/validation"
)

// echoValidator adapts the shared validation package so Echo can call
// c.Validate(req). Failures are *validation.Error carrying per-field messages.
type echoValidator struct {
	v *validation.Validator
}

// NewValidator returns an echoValidator ready to be assigned to echo.Echo.Validator.
func NewValidator() *echoValidator {
	return &echoValidator{v: validation.New()}
}

// Validate satisfies the echo.Validator interface.
func (ev *echoValidator) Validate(i any) error {
	return ev.v.Struct(i)
}
