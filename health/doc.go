// Package health reports whether the gate can serve logins.
//
// Token verification needs nothing but the signing key, so the process is
// live as soon as it listens. Readiness depends on the collaborators a login
// touches: the user store and the circuit breaker guarding it. Each is a
// Checker; an Aggregator runs them concurrently under a deadline and the
// HTTP handlers expose the result:
//
//	agg := health.NewAggregator()
//	agg.Register("userstore", health.NewPingChecker("userstore", store))
//	health.RegisterHandlers(mux, agg)
//
// Liveness is /healthz, readiness is /readyz and the JSON report is /health.
package health
