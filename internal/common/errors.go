// Package common defines shared constants and sentinel errors used across
// the store, service and web layers of inkwell. Callers should use errors.Is
// to match these values.
package common

import (
	"errors"
	"strings"
)

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// Identity errors.
	ErrDuplicateEmail = errors.New("user already registered")
	ErrUnknownEmail   = errors.New("email does not exist")
	ErrBadCredential  = errors.New("password is not correct")

	// Content errors.
	ErrForbidden      = errors.New("forbidden")
	ErrDuplicateTitle = errors.New("a post with this title already exists")

	// Contact form errors.
	ErrValidationIncomplete = errors.New("form is incomplete")
	ErrDeliveryFailed       = errors.New("message delivery failed")

	// Session token errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// IncompleteError reports which required form fields were left empty.
// It matches ErrValidationIncomplete.
type IncompleteError struct {
	Missing []string
}

func (e *IncompleteError) Error() string {
	return ErrValidationIncomplete.Error() + ": missing " + strings.Join(e.Missing, ", ")
}

func (e *IncompleteError) Is(target error) bool {
	return target == ErrValidationIncomplete
}
