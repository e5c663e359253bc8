package password

import "errors"

var (
	// ErrUnsupportedHash is returned when a stored hash has an unknown format.
	ErrUnsupportedHash = errors.New("password: unsupported hash format")

	// ErrInvalidHash is returned when a stored hash is recognized but corrupt.
	ErrInvalidHash = errors.New("password: invalid hash")

	// ErrTooShort is returned when hashing a password below the minimum length.
	ErrTooShort = errors.New("password: too short")

	// ErrInvalidConfig is returned for hasher parameters below the safe minimums.
	ErrInvalidConfig = errors.New("password: invalid hasher config")
)
