package config

import "errors"

// Validation errors.
var (
	// ErrMissingSecret indicates no signing secret was configured.
	ErrMissingSecret = errors.New("config: jwt secret is required")

	// ErrWeakSecret indicates a secret shorter than auth.MinSecretLength bytes.
	ErrWeakSecret = errors.New("config: jwt secret is too short")

	// ErrPlaceholderSecret indicates the well-known sample secret is in use.
	ErrPlaceholderSecret = errors.New("config: jwt secret is the published placeholder")

	// ErrInvalidExpiration indicates a token lifetime that is not a positive
	// whole number of seconds.
	ErrInvalidExpiration = errors.New("config: jwt expiration must be a positive whole number of seconds")

	// ErrMissingPrefix indicates an empty token prefix on the Authorization header.
	ErrMissingPrefix = errors.New("config: jwt prefix is required for the Authorization header")

	// ErrInvalidStoreLimit indicates a non-positive store rate or burst.
	ErrInvalidStoreLimit = errors.New("config: store rate and burst must be positive")

	// ErrUnknownDriver indicates an unsupported store driver.
	ErrUnknownDriver = errors.New("config: unknown store driver")

	// ErrUnknownPasswordHash indicates an unsupported password hash name.
	ErrUnknownPasswordHash = errors.New("config: unknown password hash")

	// ErrUnsafeSeed indicates demo users would be written to a persistent store.
	ErrUnsafeSeed = errors.New("config: demo users on a persistent store require seed.allow_persistent")
)
