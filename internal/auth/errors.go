package auth

import (
	"errors"
	"fmt"

	"github.com/dave817/sereniowebapp/internal/store"
)

// ErrValidation is matched by every input validation failure.
var ErrValidation = errors.New("validation failed")

var (
	ErrMissingFields = fmt.Errorf("%w: all fields are required", ErrValidation)
	ErrInvalidEmail  = fmt.Errorf("%w: invalid email format", ErrValidation)

	// ErrDuplicateEmail aliases the store error so callers need only this package.
	ErrDuplicateEmail = store.ErrDuplicateEmail

	// ErrInvalidCredentials covers both an unknown email and a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrMissingToken = errors.New("no token provided")
	ErrInvalidToken = errors.New("invalid token")
)
