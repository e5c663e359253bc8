package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonwraymond/tokengate/observe"
)

// UserRecord is a user as seen by the authenticator. The store owns it; the
// core only reads it.
type UserRecord struct {
	ID           int64
	Username     string
	PasswordHash string
	Roles        Roles
}

// UserStore resolves users by username.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: methods should honor cancellation/deadlines.
// - Errors: FindByUsername returns ErrUserNotFound (possibly wrapped) when the
//   user does not exist; any other error is an infrastructure failure.
type UserStore interface {
	FindByUsername(ctx context.Context, username string) (*UserRecord, error)
}

// PasswordVerifier compares a plaintext password against a stored hash.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: Verify returns (false, nil) on mismatch and an error only when the
//   hash cannot be interpreted. Implementations must not log the plaintext.
type PasswordVerifier interface {
	Verify(plaintext, hash string) (bool, error)
}

// PasswordUpgrader reports outdated hashes and produces their replacement.
// *password.Verifier satisfies it.
type PasswordUpgrader interface {
	NeedsUpgrade(hash string) (bool, error)
	Hash(plaintext string) (string, error)
}

// HashUpdater stores a replacement password hash.
type HashUpdater interface {
	UpdatePasswordHash(ctx context.Context, username, passwordHash string) error
}

// Guard runs store calls under resilience policies (timeouts, bulkheads,
// circuit breakers). *resilience.Executor satisfies it.
type Guard interface {
	Execute(ctx context.Context, op func(context.Context) error) error
}

// Credential is a login attempt. The password is transient and never logged.
type Credential struct {
	Username string
	Password string
}

// String implements fmt.Stringer without exposing the password.
func (c Credential) String() string {
	return fmt.Sprintf("Credential{Username: %q, Password: [REDACTED]}", c.Username)
}

// GoString keeps %#v from printing the password.
func (c Credential) GoString() string {
	return c.String()
}

// LoginResult is returned on a successful login.
type LoginResult struct {
	Token     string
	Username  string
	Roles     Roles
	ExpiresAt time.Time
}

// LoginOption configures an Authenticator.
type LoginOption func(*Authenticator)

// WithGuard wraps every store lookup with g.
func WithGuard(g Guard) LoginOption {
	return func(a *Authenticator) {
		a.guard = g
	}
}

// WithDecoyHash sets a hash that is verified against when the username is
// unknown, so both failure paths do the same hashing work.
func WithDecoyHash(hash string) LoginOption {
	return func(a *Authenticator) {
		a.decoyHash = hash
	}
}

// WithRehash replaces a user's outdated hash after a successful login, while
// the plaintext is at hand. A failed rehash is logged and the login stands.
func WithRehash(upgrader PasswordUpgrader, store HashUpdater) LoginOption {
	return func(a *Authenticator) {
		a.upgrader = upgrader
		a.updater = store
	}
}

// WithLoginClock overrides the clock used to stamp issued tokens.
func WithLoginClock(now func() time.Time) LoginOption {
	return func(a *Authenticator) {
		a.now = now
	}
}

// WithLoginLogger sets the logger for login outcomes.
func WithLoginLogger(logger observe.Logger) LoginOption {
	return func(a *Authenticator) {
		a.logger = logger
	}
}

// WithLoginMetrics sets the metrics sink for login outcomes.
func WithLoginMetrics(metrics observe.AuthMetrics) LoginOption {
	return func(a *Authenticator) {
		a.metrics = metrics
	}
}

// WithLoginTracer sets the tracer used for login spans.
func WithLoginTracer(tracer observe.Tracer) LoginOption {
	return func(a *Authenticator) {
		a.tracer = tracer
	}
}

// Authenticator verifies credentials and mints tokens.
//
// Contract:
// - Concurrency: safe for concurrent use; no lock is held across store or
//   verifier calls.
// - Errors: every credential failure is ErrInvalidCredentials, whether or not
//   the username exists. Store outages wrap ErrUserStoreUnavailable.
type Authenticator struct {
	store     UserStore
	verifier  PasswordVerifier
	codec     *Codec
	guard     Guard
	decoyHash string
	upgrader  PasswordUpgrader
	updater   HashUpdater
	now       func() time.Time
	logger    observe.Logger
	metrics   observe.AuthMetrics
	tracer    observe.Tracer
}

// NewAuthenticator creates a credential authenticator.
func NewAuthenticator(store UserStore, verifier PasswordVerifier, codec *Codec, opts ...LoginOption) *Authenticator {
	a := &Authenticator{
		store:    store,
		verifier: verifier,
		codec:    codec,
		now:      time.Now,
		logger:   observe.NopLogger(),
		metrics:  observe.NopAuthMetrics(),
		tracer:   observe.NopTracer(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Login verifies cred and returns a freshly issued token.
func (a *Authenticator) Login(ctx context.Context, cred Credential) (*LoginResult, error) {
	ctx, span := a.tracer.StartSpan(ctx, "auth.login")
	start := time.Now()

	result, err := a.login(ctx, cred)

	a.tracer.EndSpan(span, err)
	outcome := loginOutcome(err)
	a.metrics.RecordLogin(ctx, outcome, time.Since(start))

	switch outcome {
	case "success":
		a.logger.Info(ctx, "login succeeded", observe.Field{Key: "username", Value: cred.Username})
	case "invalid_credentials":
		a.logger.Warn(ctx, "login failed", observe.Field{Key: "username", Value: cred.Username})
	default:
		a.logger.Error(ctx, "login aborted",
			observe.Field{Key: "username", Value: cred.Username},
			observe.Field{Key: "error", Value: err.Error()},
		)
	}
	return result, err
}

func (a *Authenticator) login(ctx context.Context, cred Credential) (*LoginResult, error) {
	username := strings.TrimSpace(cred.Username)
	if username == "" || cred.Password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := a.findUser(ctx, username)
	if errors.Is(err, ErrUserNotFound) {
		a.burnDecoy(cred.Password)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUserStoreUnavailable, err)
	}

	ok, err := a.verifier.Verify(cred.Password, user.PasswordHash)
	if err != nil {
		a.logger.Error(ctx, "stored password hash unusable",
			observe.Field{Key: "username", Value: user.Username},
			observe.Field{Key: "error", Value: err.Error()},
		)
		return nil, ErrInvalidCredentials
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}
	a.rehash(ctx, user, cred.Password)

	now := a.now()
	token, err := a.codec.Issue(user.Username, user.Roles, now)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		Token:     token,
		Username:  user.Username,
		Roles:     user.Roles,
		ExpiresAt: now.Truncate(time.Second).Add(a.codec.Validity()),
	}, nil
}

func (a *Authenticator) findUser(ctx context.Context, username string) (*UserRecord, error) {
	if a.guard == nil {
		return a.lookup(ctx, username)
	}

	var user *UserRecord
	err := a.guard.Execute(ctx, func(ctx context.Context) error {
		u, err := a.lookup(ctx, username)
		if err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (a *Authenticator) lookup(ctx context.Context, username string) (*UserRecord, error) {
	user, err := a.store.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (a *Authenticator) rehash(ctx context.Context, user *UserRecord, plaintext string) {
	if a.upgrader == nil || a.updater == nil {
		return
	}
	stale, err := a.upgrader.NeedsUpgrade(user.PasswordHash)
	if err != nil || !stale {
		return
	}

	hash, err := a.upgrader.Hash(plaintext)
	if err == nil {
		err = a.updater.UpdatePasswordHash(ctx, user.Username, hash)
	}
	if err != nil {
		a.logger.Warn(ctx, "password rehash failed",
			observe.Field{Key: "username", Value: user.Username},
			observe.Field{Key: "error", Value: err.Error()},
		)
		return
	}
	a.logger.Info(ctx, "password hash upgraded", observe.Field{Key: "username", Value: user.Username})
}

func (a *Authenticator) burnDecoy(password string) {
	if a.decoyHash == "" {
		return
	}
	_, _ = a.verifier.Verify(password, a.decoyHash)
}

func loginOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrUserStoreUnavailable):
		return "store_unavailable"
	default:
		return "error"
	}
}
