// Package server assembles the HTTP surface of tokengate.
//
// Routes are declared once in an auth.Policy. The pipeline for every request
// is: observe.HTTPMiddleware (request id, span, access log), then
// auth.Gate.Middleware (security context), then the mux, where auth.Require
// enforces each route's roles before its handler runs.
//
//	POST /api/auth/login      public, rate limited per client address
//	GET  /api/public/health   public
//	GET  /api/user/me         USER
//	GET  /api/admin/users     ADMIN
//
// The health probes (/healthz, /readyz, /health) and, when configured, the
// Prometheus scrape endpoint (/metrics) are mounted alongside.
package server
