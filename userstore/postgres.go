package userstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonwraymond/tokengate/auth"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS users (
	id            BIGSERIAL   PRIMARY KEY,
	username      TEXT        NOT NULL UNIQUE,
	password_hash TEXT        NOT NULL,
	roles         TEXT        NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to PostgreSQL and applies the schema.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%w: postgres dsn", ErrDSNRequired)
	}

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	config.MaxConns = 10
	config.MinConns = 1
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute
	config.HealthCheckPeriod = 30 * time.Second

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, config)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(connectCtx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply postgres schema: %w", err)
	}

	return NewPostgresStore(pool), nil
}

// NewPostgresStore wraps an existing pool. The schema must already exist.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// FindByUsername looks up a user by exact username.
func (s *PostgresStore) FindByUsername(ctx context.Context, username string) (*auth.UserRecord, error) {
	const q = `SELECT id, username, password_hash, roles FROM users WHERE username = $1`

	var (
		u     auth.UserRecord
		roles string
	)
	err := s.pool.QueryRow(ctx, q, username).Scan(&u.ID, &u.Username, &u.PasswordHash, &roles)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound()
	}
	if err != nil {
		return nil, fmt.Errorf("userstore: postgres find user: %w", err)
	}
	u.Roles = auth.ParseRoles(roles)
	return &u, nil
}

// Create inserts a user.
func (s *PostgresStore) Create(ctx context.Context, username, passwordHash string, roles auth.Roles) (*auth.UserRecord, error) {
	username, err := validateUser(username, passwordHash)
	if err != nil {
		return nil, err
	}
	roles = auth.NewRoles(roles...)

	const q = `INSERT INTO users (username, password_hash, roles) VALUES ($1, $2, $3)
ON CONFLICT (username) DO NOTHING RETURNING id`

	var id int64
	err = s.pool.QueryRow(ctx, q, username, passwordHash, roles.String()).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserExists
	}
	if err != nil {
		return nil, fmt.Errorf("userstore: postgres create user: %w", err)
	}

	return &auth.UserRecord{
		ID:           id,
		Username:     username,
		PasswordHash: passwordHash,
		Roles:        roles,
	}, nil
}

// UpdatePasswordHash replaces an existing user's hash.
func (s *PostgresStore) UpdatePasswordHash(ctx context.Context, username, passwordHash string) error {
	if _, err := validateUser(username, passwordHash); err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `UPDATE users SET password_hash = $1 WHERE username = $2`, passwordHash, username)
	if err != nil {
		return fmt.Errorf("userstore: postgres update hash: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound()
	}
	return nil
}

// List returns all users ordered by ID.
func (s *PostgresStore) List(ctx context.Context) ([]auth.UserRecord, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, username, password_hash, roles FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("userstore: postgres list users: %w", err)
	}
	defer rows.Close()

	var out []auth.UserRecord
	for rows.Next() {
		var (
			u     auth.UserRecord
			roles string
		)
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &roles); err != nil {
			return nil, fmt.Errorf("userstore: postgres list users: %w", err)
		}
		u.Roles = auth.ParseRoles(roles)
		out = append(out, u)
	}
	return out, rows.Err()
}

// Count returns the number of users.
func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("userstore: postgres count users: %w", err)
	}
	return n, nil
}

// Ping checks the pool.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
