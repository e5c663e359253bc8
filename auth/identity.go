package auth

import "time"

// Identity is the security context of an authenticated request: who the
// caller is and which authorities they hold. It is built from verified token
// claims once per request and never mutated afterwards. A nil *Identity means
// the request is anonymous.
type Identity struct {
	// Principal is the authenticated username (the token subject).
	Principal string

	// Roles are the authorities granted by the token.
	Roles Roles

	// IssuedAt is when the backing token was issued.
	IssuedAt time.Time

	// ExpiresAt is when the backing token stops being accepted.
	ExpiresAt time.Time
}

// NewIdentity builds an Identity from verified claims.
func NewIdentity(c *Claims) *Identity {
	return &Identity{
		Principal: c.Subject,
		Roles:     c.Roles,
		IssuedAt:  c.IssuedAt,
		ExpiresAt: c.ExpiresAt,
	}
}

// HasRole checks if the identity has a specific role.
func (id *Identity) HasRole(role string) bool {
	if id == nil {
		return false
	}
	return id.Roles.Contains(role)
}

// HasAnyRole reports whether the identity holds at least one of roles.
func (id *Identity) HasAnyRole(roles Roles) bool {
	if id == nil {
		return false
	}
	return id.Roles.Intersects(roles)
}

// IsAnonymous returns true for a nil identity or one without a principal.
func (id *Identity) IsAnonymous() bool {
	return id == nil || id.Principal == ""
}
