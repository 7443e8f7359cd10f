package auth

import (
	"context"
	"fmt"
)

// Principal represents an authenticated caller.
type Principal struct {
	UID string
}

// ErrorType represents the type of authentication error
type ErrorType string

const (
	ErrInvalidToken ErrorType = "invalid_token"
	ErrUnauthorized ErrorType = "unauthorized"
	ErrForbidden    ErrorType = "forbidden"
)

// Error represents an authentication-related error
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Verifier turns a bearer token into a verified caller identity.
type Verifier interface {
	// Verify validates token and returns the caller's user ID.
	Verify(ctx context.Context, token string) (string, error)
}
