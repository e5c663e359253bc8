package auth

import (
	"net/http"
)

// Decision is the outcome of an authorization check.
type Decision int

const (
	// Allow lets the request continue to the handler.
	Allow Decision = iota
	// DenyUnauthorized means no valid identity was presented (401).
	DenyUnauthorized
	// DenyForbidden means the identity lacks every required role (403).
	DenyForbidden
)

// String returns the decision label used in logs and metrics.
func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case DenyUnauthorized:
		return "unauthorized"
	case DenyForbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}

// Status returns the HTTP status code for the decision.
func (d Decision) Status() int {
	switch d {
	case Allow:
		return http.StatusOK
	case DenyUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusForbidden
	}
}

// Err returns the sentinel error for a deny decision, or nil for Allow.
func (d Decision) Err() error {
	switch d {
	case Allow:
		return nil
	case DenyUnauthorized:
		return ErrUnauthenticated
	default:
		return ErrInsufficientRole
	}
}

// Decide compares the required roles of an operation against the caller's
// identity.
//
// An empty requirement is public. Otherwise a missing identity is always
// DenyUnauthorized, even when the caller would also lack the role, so clients
// can tell "log in" apart from "not permitted". An identity holding none of
// the required roles is DenyForbidden.
func Decide(id *Identity, required Roles) Decision {
	if required.Empty() {
		return Allow
	}
	if id.IsAnonymous() {
		return DenyUnauthorized
	}
	if !id.Roles.Intersects(required) {
		return DenyForbidden
	}
	return Allow
}

// Require returns middleware that enforces required on every request and
// hands denials to the responder. The handler chain stops on deny.
func Require(required Roles, responder *Responder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision := Decide(IdentityFromContext(r.Context()), required)
			route := r.Pattern
			if route == "" {
				route = r.URL.Path
			}
			responder.Record(r.Context(), route, decision)
			if decision != Allow {
				responder.Write(w, r, decision)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
