package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/jonwraymond/tokengate/auth"
	"github.com/jonwraymond/tokengate/config"
	"github.com/jonwraymond/tokengate/health"
	"github.com/jonwraymond/tokengate/observe"
)

// Role names used by the built-in routes.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// UserLister lists users for the admin endpoint.
type UserLister interface {
	List(ctx context.Context) ([]auth.UserRecord, error)
}

// LoginLimiter admits login attempts per client key.
// *resilience.KeyedRateLimiter satisfies it.
type LoginLimiter interface {
	Allow(key string) bool
}

// Deps are the collaborators of the HTTP surface.
type Deps struct {
	// Gate establishes the security context. Required.
	Gate *auth.Gate

	// Authenticator serves the login route. Required.
	Authenticator *auth.Authenticator

	// Responder writes error bodies. Required.
	Responder *auth.Responder

	// Users backs the admin listing. Required.
	Users UserLister

	// LoginLimiter throttles logins per client address. Optional.
	LoginLimiter LoginLimiter

	// Health is mounted on the probe routes. Optional.
	Health *health.Aggregator

	// Observer adds request ids, spans, metrics and access logs. Optional.
	Observer observe.Observer

	// Metrics, when set, is mounted at GET /metrics (e.g. promhttp.Handler()).
	Metrics http.Handler

	// Logger receives handler errors. Defaults to the observer's logger.
	Logger observe.Logger

	// MaxBodyBytes bounds the login body. Default: 1 MiB
	MaxBodyBytes int64
}

// New builds the request pipeline.
func New(deps Deps) (http.Handler, error) {
	switch {
	case deps.Gate == nil:
		return nil, fmt.Errorf("%w: gate", ErrMissingDependency)
	case deps.Authenticator == nil:
		return nil, fmt.Errorf("%w: authenticator", ErrMissingDependency)
	case deps.Responder == nil:
		return nil, fmt.Errorf("%w: responder", ErrMissingDependency)
	case deps.Users == nil:
		return nil, fmt.Errorf("%w: users", ErrMissingDependency)
	}
	if deps.MaxBodyBytes <= 0 {
		deps.MaxBodyBytes = 1 << 20
	}
	if deps.Logger == nil {
		deps.Logger = observe.NopLogger()
		if deps.Observer != nil {
			deps.Logger = deps.Observer.Logger()
		}
	}

	h := &handlers{deps: deps}
	policy, err := routes(h)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	policy.Register(mux, deps.Responder)
	if deps.Health != nil {
		health.RegisterHandlers(mux, deps.Health)
	}
	if deps.Metrics != nil {
		mux.Handle("GET /metrics", deps.Metrics)
	}

	handler := deps.Gate.Middleware(mux)
	if deps.Observer != nil {
		mw, err := observe.NewHTTPMiddleware(deps.Observer)
		if err != nil {
			return nil, err
		}
		handler = mw.Wrap(handler)
	}
	return handler, nil
}

// routes declares the authorization table.
func routes(h *handlers) (*auth.Policy, error) {
	policy := auth.NewPolicy()
	routes := []struct {
		method, pattern string
		roles           auth.Roles
		fn              http.HandlerFunc
	}{
		{http.MethodPost, "/api/auth/login", nil, h.login},
		{http.MethodGet, "/api/public/health", nil, h.publicHealth},
		{http.MethodGet, "/api/user/me", auth.NewRoles(RoleUser), h.me},
		{http.MethodGet, "/api/admin/users", auth.NewRoles(RoleAdmin), h.adminUsers},
	}
	for _, r := range routes {
		if err := policy.HandleFunc(r.method, r.pattern, r.roles, r.fn); err != nil {
			return nil, err
		}
	}
	return policy, nil
}

// Run serves handler on cfg.Addr until ctx is canceled, then shuts down
// gracefully within cfg.ShutdownTimeout.
func Run(ctx context.Context, cfg config.HTTPConfig, handler http.Handler, logger observe.Logger) error {
	lis, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Addr, err)
	}
	return Serve(ctx, lis, cfg, handler, logger)
}

// Serve is Run on an existing listener.
func Serve(ctx context.Context, lis net.Listener, cfg config.HTTPConfig, handler http.Handler, logger observe.Logger) error {
	if logger == nil {
		logger = observe.NopLogger()
	}
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "http server listening", observe.Field{Key: "addr", Value: lis.Addr().String()})
		errCh <- srv.Serve(lis)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	logger.Info(shutdownCtx, "http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
