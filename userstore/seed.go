package userstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonwraymond/tokengate/auth"
)

// DemoPassword is the shared password of the demo accounts.
const DemoPassword = "password123"

// DemoUser is an account created by SeedDemoUsers.
type DemoUser struct {
	Username string
	Roles    auth.Roles
}

// DemoUsers returns the demo accounts in creation order.
func DemoUsers() []DemoUser {
	return []DemoUser{
		{Username: "john", Roles: auth.NewRoles("USER")},
		{Username: "admin", Roles: auth.NewRoles("ADMIN", "USER")},
		{Username: "jane", Roles: auth.NewRoles("USER")},
	}
}

// Hasher hashes plaintext passwords. *password.Verifier satisfies it.
type Hasher interface {
	Hash(plaintext string) (string, error)
}

// SeedDemoUsers creates the demo accounts when store is empty. It returns
// the number of users created; a non-empty store is left untouched.
func SeedDemoUsers(ctx context.Context, store Store, hasher Hasher) (int, error) {
	n, err := store.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("seed demo users: %w", err)
	}
	if n > 0 {
		return 0, nil
	}

	created := 0
	for _, demo := range DemoUsers() {
		hash, err := hasher.Hash(DemoPassword)
		if err != nil {
			return created, fmt.Errorf("seed demo users: hash %s: %w", demo.Username, err)
		}
		_, err = store.Create(ctx, demo.Username, hash, demo.Roles)
		if errors.Is(err, ErrUserExists) {
			continue
		}
		if err != nil {
			return created, fmt.Errorf("seed demo users: create %s: %w", demo.Username, err)
		}
		created++
	}
	return created, nil
}
