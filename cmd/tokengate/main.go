// Command tokengate serves token login and role-protected routes.
//
// All settings come from TOKENGATE_* environment variables and an optional
// YAML file named by TOKENGATE_CONFIG_FILE; see package config.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonwraymond/tokengate/auth"
	"github.com/jonwraymond/tokengate/config"
	"github.com/jonwraymond/tokengate/health"
	"github.com/jonwraymond/tokengate/observe"
	"github.com/jonwraymond/tokengate/password"
	"github.com/jonwraymond/tokengate/resilience"
	"github.com/jonwraymond/tokengate/secret"
	"github.com/jonwraymond/tokengate/server"
	"github.com/jonwraymond/tokengate/userstore"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("tokengate: %v", err)
	}
}

func run(ctx context.Context) error {
	resolver, err := secret.NewDefaultResolver()
	if err != nil {
		return fmt.Errorf("secret providers: %w", err)
	}
	cfg, err := config.LoadValid(ctx, resolver)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	obs, err := observe.NewObserver(ctx, cfg.Observe.ToObserve())
	if err != nil {
		return fmt.Errorf("init observer: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = obs.Shutdown(shutdownCtx)
	}()
	logger := obs.Logger()
	metrics := obs.AuthMetrics()

	codec, err := auth.NewCodec(cfg.CodecConfig())
	if err != nil {
		return err
	}

	hasher, err := newHasher(cfg.Login.PasswordHash)
	if err != nil {
		return err
	}
	verifier := password.NewVerifier(hasher)

	store, err := userstore.Open(ctx, cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		return fmt.Errorf("open user store: %w", err)
	}
	defer store.Close()

	if cfg.Seed.DemoUsers {
		n, err := userstore.SeedDemoUsers(ctx, store, verifier)
		if err != nil {
			return err
		}
		if n > 0 {
			logger.Warn(ctx, "demo users created with the shared demo password", observe.Field{Key: "count", Value: n})
		}
	}

	decoy, err := password.DecoyHash(hasher)
	if err != nil {
		return fmt.Errorf("decoy hash: %w", err)
	}

	storeRetry := cfg.StoreRetry()
	storeRetry.OnRetry = func(attempt int, err error, delay time.Duration) {
		logger.Warn(context.Background(), "retrying user store lookup",
			observe.Field{Key: "attempt", Value: attempt},
			observe.Field{Key: "delay", Value: delay.String()},
			observe.Field{Key: "error", Value: err.Error()},
		)
	}

	guard := resilience.NewExecutor(
		resilience.WithRateLimiter(resilience.NewRateLimiter(cfg.StoreRateLimit())),
		resilience.WithBulkhead(resilience.NewBulkhead(resilience.BulkheadConfig{
			MaxConcurrent: cfg.Store.MaxConcurrent,
			MaxWait:       cfg.Store.Timeout,
		})),
		resilience.WithRetry(resilience.NewRetry(storeRetry)),
		resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			MaxFailures:  cfg.Store.FailureLimit,
			ResetTimeout: cfg.Store.ResetTimeout,
			IsFailure: func(err error) bool {
				return !errors.Is(err, auth.ErrUserNotFound)
			},
			OnStateChange: func(from, to resilience.State) {
				logger.Warn(context.Background(), "user store circuit changed",
					observe.Field{Key: "from", Value: from.String()},
					observe.Field{Key: "to", Value: to.String()},
				)
			},
		})),
		resilience.WithTimeout(cfg.Store.Timeout),
	)

	authenticator := auth.NewAuthenticator(store, verifier, codec,
		auth.WithGuard(guard),
		auth.WithDecoyHash(decoy),
		auth.WithRehash(verifier, store),
		auth.WithLoginLogger(logger),
		auth.WithLoginMetrics(metrics),
		auth.WithLoginTracer(obs.AuthTracer()),
	)
	gate := auth.NewGate(codec, cfg.GateConfig(),
		auth.WithGateLogger(logger),
		auth.WithGateMetrics(metrics),
	)
	responder := auth.NewResponder(
		auth.WithResponderLogger(logger),
		auth.WithResponderMetrics(metrics),
	)

	agg := health.NewAggregator(health.AggregatorConfig{Timeout: cfg.Store.Timeout})
	agg.Register("user_store", server.StoreChecker(store))
	agg.Register("signing_key", server.SigningKeyChecker(codec))
	agg.Register("store_guard", server.GuardChecker(guard))
	agg.Register("memory", health.NewMemoryChecker(health.MemoryCheckerConfig{}))

	deps := server.Deps{
		Gate:          gate,
		Authenticator: authenticator,
		Responder:     responder,
		Users:         store,
		LoginLimiter: resilience.NewKeyedRateLimiter(resilience.RateLimiterConfig{
			Rate:  cfg.Login.RatePerSecond,
			Burst: cfg.Login.Burst,
		}, cfg.Login.MaxClients),
		Health:       agg,
		Observer:     obs,
		Metrics:      obs.MetricsHandler(),
		Logger:       logger,
		MaxBodyBytes: cfg.HTTP.MaxBodyBytes,
	}

	handler, err := server.New(deps)
	if err != nil {
		return err
	}

	logger.Info(ctx, "tokengate starting",
		observe.Field{Key: "store", Value: cfg.Store.Driver},
		observe.Field{Key: "token_validity", Value: cfg.JWT.Expiration().String()},
	)
	return server.Run(ctx, cfg.HTTP, handler, logger)
}

func newHasher(name string) (password.Hasher, error) {
	switch name {
	case "argon2id":
		return password.NewArgon2(password.DefaultArgon2Config())
	default:
		return password.NewBcrypt(0)
	}
}
