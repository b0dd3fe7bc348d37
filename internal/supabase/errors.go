package supabase

import "errors"

// Auth failures callers are expected to branch on.
var (
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrUserExists           = errors.New("email is already registered")
	ErrConfirmationRequired = errors.New("email confirmation required before sign in")
	ErrSessionExpired       = errors.New("session expired, sign in again")
)
