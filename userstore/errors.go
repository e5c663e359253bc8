package userstore

import "errors"

// Sentinel errors for user stores.
var (
	// ErrUserExists is returned by Create when the username is taken.
	ErrUserExists = errors.New("userstore: user already exists")

	// ErrUnknownDriver is returned by Open for an unsupported driver.
	ErrUnknownDriver = errors.New("userstore: unknown driver")

	// ErrDSNRequired is returned by Open when a driver needs a DSN.
	ErrDSNRequired = errors.New("userstore: dsn is required")

	// ErrInvalidUser is returned by Create for an empty username or hash.
	ErrInvalidUser = errors.New("userstore: username and password hash are required")

	// ErrClosed is returned by a store after Close.
	ErrClosed = errors.New("userstore: store closed")
)
