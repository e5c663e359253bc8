package auth

import (
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
)

// Route pairs a handler with the roles required to reach it. An empty Roles
// set makes the route public.
type Route struct {
	Method  string
	Pattern string
	Roles   Roles
	Handler http.Handler
}

// Key returns the ServeMux pattern for the route ("GET /api/users").
func (r Route) Key() string {
	if r.Method == "" {
		return r.Pattern
	}
	return r.Method + " " + r.Pattern
}

// Policy is the authorization table of a service: every route and the roles
// it requires, declared in one place and enforced uniformly by Decide.
//
// Contract:
// - Concurrency: Handle and Register may be called concurrently; routes are
//   expected to be declared at startup.
type Policy struct {
	mu     sync.RWMutex
	routes []Route
	keys   map[string]struct{}
}

// NewPolicy creates an empty policy table.
func NewPolicy() *Policy {
	return &Policy{keys: make(map[string]struct{})}
}

// Handle declares a route. It fails on a duplicate method and pattern.
func (p *Policy) Handle(method, pattern string, roles Roles, handler http.Handler) error {
	if strings.TrimSpace(pattern) == "" || handler == nil {
		return fmt.Errorf("auth: invalid route %q %q", method, pattern)
	}

	route := Route{
		Method:  strings.ToUpper(strings.TrimSpace(method)),
		Pattern: pattern,
		Roles:   NewRoles(roles...),
		Handler: handler,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.keys[route.Key()]; exists {
		return fmt.Errorf("auth: route %q already declared", route.Key())
	}
	p.keys[route.Key()] = struct{}{}
	p.routes = append(p.routes, route)
	return nil
}

// HandleFunc declares a route backed by a handler function.
func (p *Policy) HandleFunc(method, pattern string, roles Roles, fn http.HandlerFunc) error {
	return p.Handle(method, pattern, roles, fn)
}

// Routes returns a copy of the declared routes in declaration order.
func (p *Policy) Routes() []Route {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.routes)
}

// Lookup returns the route declared for method and pattern.
func (p *Policy) Lookup(method, pattern string) (Route, bool) {
	key := Route{Method: strings.ToUpper(method), Pattern: pattern}.Key()
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, r := range p.routes {
		if r.Key() == key {
			return r, true
		}
	}
	return Route{}, false
}

// Register installs every route on mux, each wrapped by Require with the
// route's roles.
func (p *Policy) Register(mux *http.ServeMux, responder *Responder) {
	for _, route := range p.Routes() {
		mux.Handle(route.Key(), Require(route.Roles, responder)(route.Handler))
	}
}
