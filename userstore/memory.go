package userstore

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/jonwraymond/tokengate/auth"
)

// MemoryStore keeps users in a map. It is intended for development, demos
// and tests; contents are lost on restart.
type MemoryStore struct {
	mu     sync.RWMutex
	users  map[string]*auth.UserRecord
	nextID int64
	closed bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:  make(map[string]*auth.UserRecord),
		nextID: 1,
	}
}

// FindByUsername returns a copy of the user record.
func (s *MemoryStore) FindByUsername(ctx context.Context, username string) (*auth.UserRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}
	u, ok := s.users[username]
	if !ok {
		return nil, notFound()
	}
	return cloneRecord(u), nil
}

// Create inserts a user.
func (s *MemoryStore) Create(ctx context.Context, username, passwordHash string, roles auth.Roles) (*auth.UserRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	username, err := validateUser(username, passwordHash)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	if _, exists := s.users[username]; exists {
		return nil, ErrUserExists
	}

	u := &auth.UserRecord{
		ID:           s.nextID,
		Username:     username,
		PasswordHash: passwordHash,
		Roles:        auth.NewRoles(roles...),
	}
	s.nextID++
	s.users[username] = u
	return cloneRecord(u), nil
}

// UpdatePasswordHash replaces an existing user's hash.
func (s *MemoryStore) UpdatePasswordHash(ctx context.Context, username, passwordHash string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := validateUser(username, passwordHash); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	u, ok := s.users[username]
	if !ok {
		return notFound()
	}
	u.PasswordHash = passwordHash
	return nil
}

// List returns all users ordered by ID.
func (s *MemoryStore) List(ctx context.Context) ([]auth.UserRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}
	out := make([]auth.UserRecord, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *cloneRecord(u))
	}
	slices.SortFunc(out, func(a, b auth.UserRecord) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

// Count returns the number of users.
func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, ErrClosed
	}
	return len(s.users), nil
}

// Ping reports ErrClosed after Close.
func (s *MemoryStore) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// Close discards all users.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.users = nil
	return nil
}

func cloneRecord(u *auth.UserRecord) *auth.UserRecord {
	c := *u
	c.Roles = slices.Clone(u.Roles)
	return &c
}
