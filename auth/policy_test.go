package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func okHandler(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }

func TestPolicy_Handle(t *testing.T) {
	p := NewPolicy()

	if err := p.HandleFunc("get", "/api/user/me", NewRoles("USER"), okHandler); err != nil {
		t.Fatalf("HandleFunc() error = %v", err)
	}
	if err := p.HandleFunc("GET", "/api/user/me", NewRoles("ADMIN"), okHandler); err == nil {
		t.Error("duplicate route accepted")
	}
	if err := p.HandleFunc("POST", "/api/user/me", nil, okHandler); err != nil {
		t.Errorf("same pattern, other method: %v", err)
	}
	if err := p.HandleFunc("GET", "  ", nil, okHandler); err == nil {
		t.Error("empty pattern accepted")
	}
	if err := p.Handle("GET", "/nil", nil, nil); err == nil {
		t.Error("nil handler accepted")
	}

	route, found := p.Lookup("GET", "/api/user/me")
	if !found {
		t.Fatal("Lookup() did not find declared route")
	}
	if route.Key() != "GET /api/user/me" || !route.Roles.Equal(NewRoles("USER")) {
		t.Errorf("route = %+v", route)
	}
	if _, found := p.Lookup("DELETE", "/api/user/me"); found {
		t.Error("Lookup() found undeclared route")
	}
}

func TestPolicy_RoutesIsCopy(t *testing.T) {
	p := NewPolicy()
	_ = p.HandleFunc("GET", "/a", nil, okHandler)
	_ = p.HandleFunc("GET", "/b", NewRoles("USER"), okHandler)

	routes := p.Routes()
	if len(routes) != 2 || routes[0].Pattern != "/a" || routes[1].Pattern != "/b" {
		t.Fatalf("Routes() = %+v", routes)
	}
	routes[0].Pattern = "/changed"
	if p.Routes()[0].Pattern != "/a" {
		t.Error("Routes() shares storage with the policy")
	}
}

func TestRoute_KeyWithoutMethod(t *testing.T) {
	if got := (Route{Pattern: "/any"}).Key(); got != "/any" {
		t.Errorf("Key() = %q, want /any", got)
	}
}

func TestPolicy_Register(t *testing.T) {
	p := NewPolicy()
	_ = p.HandleFunc("GET", "/public", nil, okHandler)
	_ = p.HandleFunc("GET", "/user", NewRoles("USER"), okHandler)
	_ = p.HandleFunc("GET", "/admin", NewRoles("ADMIN"), okHandler)

	mux := http.NewServeMux()
	p.Register(mux, NewResponder())

	tests := []struct {
		path string
		id   *Identity
		want int
	}{
		{"/public", nil, http.StatusOK},
		{"/user", nil, http.StatusUnauthorized},
		{"/user", identity("john", "USER"), http.StatusOK},
		{"/admin", identity("john", "USER"), http.StatusForbidden},
		{"/admin", identity("admin", "ADMIN", "USER"), http.StatusOK},
		{"/admin", nil, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		name := tt.path + " as anonymous"
		if tt.id != nil {
			name = tt.path + " as " + tt.id.Principal
		}
		t.Run(strings.TrimPrefix(name, "/"), func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.id != nil {
				req = req.WithContext(WithIdentity(req.Context(), tt.id))
			}
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
