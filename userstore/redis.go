package userstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jonwraymond/tokengate/auth"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix is the key prefix used when none is given.
const DefaultRedisPrefix = "tokengate:"

// RedisStore implements Store with one hash per user, an ID sequence and a
// sorted set indexing usernames by ID.
//
// Keys (with the default prefix):
//
//	tokengate:user:<username>  hash {id, username, password_hash, roles}
//	tokengate:users            zset username scored by id
//	tokengate:users:seq        integer id sequence
type RedisStore struct {
	client *redis.Client
	prefix string
}

// OpenRedis connects using a redis:// URL and verifies the connection.
func OpenRedis(ctx context.Context, url, prefix string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisStore(client, prefix), nil
}

// NewRedisStore wraps an existing client. An empty prefix uses
// DefaultRedisPrefix.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) userKey(username string) string { return s.prefix + "user:" + username }
func (s *RedisStore) indexKey() string               { return s.prefix + "users" }
func (s *RedisStore) seqKey() string                 { return s.prefix + "users:seq" }

// FindByUsername looks up a user by exact username.
func (s *RedisStore) FindByUsername(ctx context.Context, username string) (*auth.UserRecord, error) {
	fields, err := s.client.HGetAll(ctx, s.userKey(username)).Result()
	if err != nil {
		return nil, fmt.Errorf("userstore: redis find user: %w", err)
	}
	return decodeRedisUser(fields)
}

// Create inserts a user. The username field is claimed with HSETNX so
// concurrent creates of the same name cannot both succeed.
func (s *RedisStore) Create(ctx context.Context, username, passwordHash string, roles auth.Roles) (*auth.UserRecord, error) {
	username, err := validateUser(username, passwordHash)
	if err != nil {
		return nil, err
	}
	roles = auth.NewRoles(roles...)
	key := s.userKey(username)

	claimed, err := s.client.HSetNX(ctx, key, "username", username).Result()
	if err != nil {
		return nil, fmt.Errorf("userstore: redis create user: %w", err)
	}
	if !claimed {
		return nil, ErrUserExists
	}

	id, err := s.client.Incr(ctx, s.seqKey()).Result()
	if err != nil {
		_ = s.client.Del(ctx, key).Err()
		return nil, fmt.Errorf("userstore: redis create user: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			"id", id,
			"password_hash", passwordHash,
			"roles", roles.String(),
		)
		pipe.ZAdd(ctx, s.indexKey(), redis.Z{Score: float64(id), Member: username})
		return nil
	})
	if err != nil {
		_ = s.client.Del(ctx, key).Err()
		return nil, fmt.Errorf("userstore: redis create user: %w", err)
	}

	return &auth.UserRecord{
		ID:           id,
		Username:     username,
		PasswordHash: passwordHash,
		Roles:        roles,
	}, nil
}

// updateHashScript only writes to a hash that already holds a full record.
var updateHashScript = redis.NewScript(`
if redis.call("HEXISTS", KEYS[1], "id") == 0 then
  return 0
end
redis.call("HSET", KEYS[1], "password_hash", ARGV[1])
return 1
`)

// UpdatePasswordHash replaces an existing user's hash.
func (s *RedisStore) UpdatePasswordHash(ctx context.Context, username, passwordHash string) error {
	if _, err := validateUser(username, passwordHash); err != nil {
		return err
	}
	n, err := updateHashScript.Run(ctx, s.client, []string{s.userKey(username)}, passwordHash).Int()
	if err != nil {
		return fmt.Errorf("userstore: redis update hash: %w", err)
	}
	if n == 0 {
		return notFound()
	}
	return nil
}

// List returns all users ordered by ID.
func (s *RedisStore) List(ctx context.Context) ([]auth.UserRecord, error) {
	names, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("userstore: redis list users: %w", err)
	}
	if len(names) == 0 {
		return nil, nil
	}

	cmds, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, name := range names {
			pipe.HGetAll(ctx, s.userKey(name))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("userstore: redis list users: %w", err)
	}

	out := make([]auth.UserRecord, 0, len(cmds))
	for _, cmd := range cmds {
		fields, err := cmd.(*redis.MapStringStringCmd).Result()
		if err != nil {
			return nil, fmt.Errorf("userstore: redis list users: %w", err)
		}
		u, err := decodeRedisUser(fields)
		if errors.Is(err, auth.ErrUserNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, nil
}

// Count returns the number of users.
func (s *RedisStore) Count(ctx context.Context) (int, error) {
	n, err := s.client.ZCard(ctx, s.indexKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("userstore: redis count users: %w", err)
	}
	return int(n), nil
}

// Ping checks the connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// decodeRedisUser treats a hash without an id as absent, which also covers
// a create that has claimed the name but not yet written the record.
func decodeRedisUser(fields map[string]string) (*auth.UserRecord, error) {
	rawID, ok := fields["id"]
	if !ok {
		return nil, notFound()
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("userstore: redis user has bad id %q: %w", rawID, err)
	}
	return &auth.UserRecord{
		ID:           id,
		Username:     fields["username"],
		PasswordHash: fields["password_hash"],
		Roles:        auth.ParseRoles(fields["roles"]),
	}, nil
}
