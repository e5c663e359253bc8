// Package resilience guards the calls a login makes to the user store.
//
// Verifying a token never leaves the process, but a login reads a user
// record from a database, and a slow or failing store must not pile up
// requests or hold handlers open. The guards are:
//
//   - RateLimiter and KeyedRateLimiter: token buckets; the keyed variant
//     keeps one bucket per client and throttles password guessing.
//   - Bulkhead: caps concurrent store lookups.
//   - Retry: re-runs a lookup that failed transiently, with backoff.
//   - CircuitBreaker: stops calling a store that keeps failing.
//   - Timeout: bounds each lookup.
//
// An Executor composes them in that order, outermost first:
//
//	exec := resilience.NewExecutor(
//	    resilience.WithBulkhead(resilience.NewBulkhead(resilience.BulkheadConfig{MaxConcurrent: 32})),
//	    resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{})),
//	    resilience.WithTimeout(2*time.Second),
//	)
//
//	err := exec.Execute(ctx, func(ctx context.Context) error {
//	    user, err = store.FindByUsername(ctx, name)
//	    return err
//	})
//
// *Executor satisfies auth.Guard.
package resilience
