// Package userstore provides the user lookup backends used by the login
// flow: an in-memory map, SQLite, PostgreSQL and Redis.
//
// Every backend satisfies auth.UserStore and health.Pinger. Lookups of an
// unknown username return an error wrapping auth.ErrUserNotFound; anything
// else is an infrastructure failure. Usernames are matched exactly.
//
// Open selects a backend by driver name:
//
//	store, err := userstore.Open(ctx, "sqlite", "/var/lib/tokengate/users.db")
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
// SeedDemoUsers populates an empty store with the demo accounts.
package userstore
