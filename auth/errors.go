package auth

import "errors"

// Sentinel errors for authentication and authorization.
var (
	// Token errors. The gate folds all of them into "anonymous".
	ErrTokenExpired      = errors.New("auth: token expired")
	ErrTokenMalformed    = errors.New("auth: token malformed")
	ErrTokenBadSignature = errors.New("auth: token signature invalid")
	ErrMissingSubject    = errors.New("auth: token subject is required")
	ErrInvalidValidity   = errors.New("auth: token validity must be a positive whole number of seconds")

	// Login errors
	ErrInvalidCredentials   = errors.New("auth: invalid credentials")
	ErrUserNotFound         = errors.New("auth: user not found")
	ErrUserStoreUnavailable = errors.New("auth: user store unavailable")

	// Authorization errors
	ErrUnauthenticated  = errors.New("auth: authentication required")
	ErrInsufficientRole = errors.New("auth: insufficient role")
)
