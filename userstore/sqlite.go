package userstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jonwraymond/tokengate/auth"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	username      TEXT    NOT NULL UNIQUE,
	password_hash TEXT    NOT NULL,
	roles         TEXT    NOT NULL DEFAULT '',
	created_at    INTEGER NOT NULL
);
`

// SQLiteStore implements Store over a single SQLite file.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (creating if needed) the SQLite database at path and
// applies the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: sqlite path", ErrDSNRequired)
	}

	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

// FindByUsername looks up a user by exact username.
func (s *SQLiteStore) FindByUsername(ctx context.Context, username string) (*auth.UserRecord, error) {
	const q = `SELECT id, username, password_hash, roles FROM users WHERE username = ?`

	var (
		u     auth.UserRecord
		roles string
	)
	err := s.db.QueryRowContext(ctx, q, username).Scan(&u.ID, &u.Username, &u.PasswordHash, &roles)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound()
	}
	if err != nil {
		return nil, fmt.Errorf("userstore: sqlite find user: %w", err)
	}
	u.Roles = auth.ParseRoles(roles)
	return &u, nil
}

// Create inserts a user.
func (s *SQLiteStore) Create(ctx context.Context, username, passwordHash string, roles auth.Roles) (*auth.UserRecord, error) {
	username, err := validateUser(username, passwordHash)
	if err != nil {
		return nil, err
	}
	roles = auth.NewRoles(roles...)

	const q = `INSERT INTO users (username, password_hash, roles, created_at) VALUES (?, ?, ?, ?)
ON CONFLICT(username) DO NOTHING`

	res, err := s.db.ExecContext(ctx, q, username, passwordHash, roles.String(), s.now().UTC().UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("userstore: sqlite create user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("userstore: sqlite create user: %w", err)
	}
	if n == 0 {
		return nil, ErrUserExists
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("userstore: sqlite create user: %w", err)
	}

	return &auth.UserRecord{
		ID:           id,
		Username:     username,
		PasswordHash: passwordHash,
		Roles:        roles,
	}, nil
}

// UpdatePasswordHash replaces an existing user's hash.
func (s *SQLiteStore) UpdatePasswordHash(ctx context.Context, username, passwordHash string) error {
	if _, err := validateUser(username, passwordHash); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE username = ?`, passwordHash, username)
	if err != nil {
		return fmt.Errorf("userstore: sqlite update hash: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("userstore: sqlite update hash: %w", err)
	}
	if n == 0 {
		return notFound()
	}
	return nil
}

// List returns all users ordered by ID.
func (s *SQLiteStore) List(ctx context.Context) ([]auth.UserRecord, error) {
	const q = `SELECT id, username, password_hash, roles FROM users ORDER BY id`

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("userstore: sqlite list users: %w", err)
	}
	defer rows.Close()

	var out []auth.UserRecord
	for rows.Next() {
		var (
			u     auth.UserRecord
			roles string
		)
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &roles); err != nil {
			return nil, fmt.Errorf("userstore: sqlite list users: %w", err)
		}
		u.Roles = auth.ParseRoles(roles)
		out = append(out, u)
	}
	return out, rows.Err()
}

// Count returns the number of users.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("userstore: sqlite count users: %w", err)
	}
	return n, nil
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the database.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
