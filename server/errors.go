package server

import "errors"

// Construction errors.
var (
	// ErrMissingDependency indicates a required field of Deps is nil.
	ErrMissingDependency = errors.New("server: missing dependency")
)

// Client-facing messages for statuses other than 401 and 403.
const (
	messageMalformedLogin = "Malformed login request"
	messageTooManyLogins  = "Too many login attempts, try again later"
	messageUnavailable    = "Authentication service temporarily unavailable"
	messageInternal       = "Internal server error"
)
