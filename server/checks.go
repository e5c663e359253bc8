package server

import (
	"context"
	"strings"
	"time"

	"github.com/jonwraymond/tokengate/auth"
	"github.com/jonwraymond/tokengate/health"
	"github.com/jonwraymond/tokengate/resilience"
)

// SigningKeyChecker reports whether codec can still issue a token that it
// then accepts.
func SigningKeyChecker(codec *auth.Codec) health.Checker {
	return health.NewCheckerFunc("signing_key", func(context.Context) health.Result {
		now := time.Now()
		token, err := codec.Issue("health-probe", nil, now)
		if err != nil {
			return health.Unhealthy("cannot issue tokens", err)
		}
		if _, err := codec.Verify(token, now); err != nil {
			return health.Unhealthy("cannot verify issued tokens", err)
		}
		return health.Healthy("signing key usable")
	})
}

// StoreChecker pings the user store.
func StoreChecker(store health.Pinger) health.Checker {
	return health.NewPingChecker("user_store", store)
}

// GuardChecker reports the state of the executor guarding store lookups.
// A guard that is shedding load is degraded; the store check decides
// whether the store itself is down.
func GuardChecker(guard *resilience.Executor) health.Checker {
	return health.NewCheckerFunc("store_guard", func(context.Context) health.Result {
		details := map[string]any{}
		var shedding []string

		if cb := guard.CircuitBreaker(); cb != nil {
			snap := cb.Snapshot()
			details["circuit"] = snap.State.String()
			details["consecutive_failures"] = snap.Failures
			if snap.State != resilience.StateClosed {
				shedding = append(shedding, "circuit "+snap.State.String())
			}
		}
		if b := guard.Bulkhead(); b != nil {
			snap := b.Snapshot()
			details["in_flight"] = snap.Active
			details["bulkhead_rejected"] = snap.Rejected
			if snap.Available <= 0 {
				shedding = append(shedding, "bulkhead full")
			}
		}
		if rl := guard.RateLimiter(); rl != nil {
			tokens := rl.Tokens()
			details["rate_tokens"] = tokens
			if tokens < 1 {
				shedding = append(shedding, "rate limited")
			}
		}

		if len(shedding) > 0 {
			return health.Degraded("store guard shedding: " + strings.Join(shedding, ", ")).WithDetails(details)
		}
		return health.Healthy("store guard admitting lookups").WithDetails(details)
	})
}
