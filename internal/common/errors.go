// Package common defines shared constants and sentinel errors used across
// QuestKeeper layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// Account lifecycle errors. Every one of them is a client error.
	ErrDuplicateAccount      = errors.New("duplicate account")
	ErrInvalidActivationCode = errors.New("invalid activation code")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrAccountNotActive      = errors.New("account not active")
	ErrAccountNotFound       = errors.New("account not found")

	// Auth errors (unknown, malformed or expired bearer token).
	ErrInvalidToken = errors.New("invalid token")
)
