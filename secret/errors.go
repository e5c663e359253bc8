package secret

import "errors"

var (
	// ErrMissingEnv is returned when a ${VAR} reference names an unset variable.
	ErrMissingEnv = errors.New("secret: missing required environment variables")

	// ErrUnknownProvider is returned for a reference to an unregistered provider.
	ErrUnknownProvider = errors.New("secret: provider is not registered")

	// ErrInvalidProvider is returned when registering a factory without a name.
	ErrInvalidProvider = errors.New("secret: provider name and factory are required")

	// ErrDuplicateProvider is returned when a provider name is registered twice.
	ErrDuplicateProvider = errors.New("secret: provider already registered")

	// ErrEmptySecret is returned by a strict resolver when a provider yields "".
	ErrEmptySecret = errors.New("secret: provider returned empty value")

	// ErrInvalidRef is returned for a malformed secret reference.
	ErrInvalidRef = errors.New("secret: invalid reference")
)
