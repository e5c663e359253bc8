package userstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonwraymond/tokengate/auth"
)

// Supported driver names for Open.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Drivers lists the supported driver names.
func Drivers() []string {
	return []string{DriverMemory, DriverSQLite, DriverPostgres, DriverRedis}
}

// Store is a user persistence backend.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: methods honor cancellation and deadlines.
// - Errors: FindByUsername and UpdatePasswordHash wrap auth.ErrUserNotFound
//   for an unknown user; Create returns ErrUserExists for a duplicate username.
// - Ownership: returned records are copies; callers may modify them.
type Store interface {
	auth.UserStore

	// Create inserts a user and returns the stored record with its ID.
	Create(ctx context.Context, username, passwordHash string, roles auth.Roles) (*auth.UserRecord, error)

	// UpdatePasswordHash replaces the stored hash of an existing user.
	UpdatePasswordHash(ctx context.Context, username, passwordHash string) error

	// List returns all users ordered by ID.
	List(ctx context.Context) ([]auth.UserRecord, error)

	// Count returns the number of users.
	Count(ctx context.Context) (int, error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases the backend's resources.
	Close() error
}

// Open creates the store for driver. The memory driver ignores dsn.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	driver = strings.ToLower(strings.TrimSpace(driver))
	if driver == "" {
		driver = DriverMemory
	}
	if driver != DriverMemory && dsn == "" {
		return nil, fmt.Errorf("%w: driver %q", ErrDSNRequired, driver)
	}

	switch driver {
	case DriverMemory:
		return NewMemoryStore(), nil
	case DriverSQLite:
		return OpenSQLite(ctx, dsn)
	case DriverPostgres:
		return OpenPostgres(ctx, dsn)
	case DriverRedis:
		return OpenRedis(ctx, dsn, "")
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}

func validateUser(username, passwordHash string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" || passwordHash == "" {
		return "", ErrInvalidUser
	}
	return username, nil
}

func notFound() error {
	return fmt.Errorf("userstore: find user: %w", auth.ErrUserNotFound)
}
