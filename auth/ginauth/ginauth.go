// Package ginauth adapts the auth gate and decision point to gin.
//
// Authenticate plays the role of auth.Gate.Middleware and RequireRoles the
// role of auth.Require. Both share the core's types, so a gin service and a
// net/http service accept the same tokens and answer with the same bodies.
//
//	r := gin.New()
//	r.Use(ginauth.Authenticate(gate))
//	r.GET("/api/user/me", ginauth.RequireRoles(responder, "USER"), me)
package ginauth

import (
	"github.com/gin-gonic/gin"

	"github.com/jonwraymond/tokengate/auth"
)

// IdentityKey is the gin context key holding the *auth.Identity.
const IdentityKey = "tokengate.identity"

// Authenticate attaches the verified identity to the request. Like
// auth.Gate.Middleware it never aborts; an invalid or absent token leaves
// the request anonymous.
func Authenticate(g *auth.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := g.Identify(c.Request)
		if id != nil {
			c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), id))
			c.Set(IdentityKey, id)
		}
		c.Next()
	}
}

// RequireRoles aborts with a 401 or 403 body unless the caller holds at
// least one of roles. No roles makes the route public.
func RequireRoles(responder *auth.Responder, roles ...string) gin.HandlerFunc {
	required := auth.NewRoles(roles...)
	return func(c *gin.Context) {
		decision := auth.Decide(Identity(c), required)

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		responder.Record(c.Request.Context(), route, decision)

		if decision != auth.Allow {
			responder.Write(c.Writer, c.Request, decision)
			c.Abort()
			return
		}
		c.Next()
	}
}

// Identity returns the caller's identity, or nil when anonymous.
func Identity(c *gin.Context) *auth.Identity {
	if v, ok := c.Get(IdentityKey); ok {
		if id, ok := v.(*auth.Identity); ok {
			return id
		}
	}
	return auth.IdentityFromContext(c.Request.Context())
}
