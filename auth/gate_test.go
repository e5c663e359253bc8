package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestGate(t *testing.T, config GateConfig, opts ...GateOption) (*Gate, *Codec) {
	t.Helper()
	codec := newTestCodec(t, time.Hour)
	opts = append([]GateOption{WithClock(func() time.Time { return testT0 })}, opts...)
	return NewGate(codec, config, opts...), codec
}

func TestNewGate_Defaults(t *testing.T) {
	g, _ := newTestGate(t, GateConfig{})
	cfg := g.Config()
	if cfg.HeaderName != "Authorization" || cfg.TokenPrefix != "Bearer " {
		t.Errorf("Config() = %+v", cfg)
	}

	custom, _ := newTestGate(t, GateConfig{HeaderName: "X-Auth-Token"})
	if custom.Config().TokenPrefix != "" {
		t.Errorf("custom header prefix = %q, want empty", custom.Config().TokenPrefix)
	}
}

func TestGate_Authenticate(t *testing.T) {
	g, codec := newTestGate(t, GateConfig{})
	valid, _ := codec.Issue("john", NewRoles("USER"), testT0)
	expired, _ := codec.Issue("john", NewRoles("USER"), testT0.Add(-2*time.Hour))

	tests := []struct {
		name    string
		header  string
		wantID  bool
		wantErr error
	}{
		{"absent", "", false, nil},
		{"valid", "Bearer " + valid, true, nil},
		{"valid with extra space", "Bearer   " + valid, true, nil},
		{"expired", "Bearer " + expired, false, ErrTokenExpired},
		{"wrong scheme", "Basic " + valid, false, ErrTokenMalformed},
		{"no scheme", valid, false, ErrTokenMalformed},
		{"lowercase scheme", "bearer " + valid, false, ErrTokenMalformed},
		{"empty token", "Bearer ", false, ErrTokenMalformed},
		{"garbage", "Bearer x.y.z", false, ErrTokenMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			id, err := g.Authenticate(req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Authenticate() error = %v, want %v", err, tt.wantErr)
			}
			if (id != nil) != tt.wantID {
				t.Errorf("Authenticate() identity = %v, want present=%v", id, tt.wantID)
			}
			if id != nil && id.Principal != "john" {
				t.Errorf("Principal = %q, want john", id.Principal)
			}
		})
	}
}

func TestGate_CustomHeader(t *testing.T) {
	g, codec := newTestGate(t, GateConfig{HeaderName: "X-Auth-Token"})
	token, _ := codec.Issue("john", NewRoles("USER"), testT0)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Auth-Token", token)
	req.Header.Set("Authorization", "Bearer garbage")

	id, err := g.Authenticate(req)
	if err != nil || id == nil {
		t.Fatalf("Authenticate() = %v, %v", id, err)
	}
}

func TestGate_MiddlewareNeverBlocks(t *testing.T) {
	metrics := &recordingMetrics{}
	g, codec := newTestGate(t, GateConfig{}, WithGateMetrics(metrics))
	valid, _ := codec.Issue("john", NewRoles("USER"), testT0)

	tests := []struct {
		name          string
		header        string
		wantPrincipal string
	}{
		{"absent", "", ""},
		{"invalid", "Bearer garbage", ""},
		{"valid", "Bearer " + valid, "john"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			reached := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				reached = true
				seen = PrincipalFromContext(r.Context())
				w.WriteHeader(http.StatusTeapot)
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			g.Middleware(next).ServeHTTP(rec, req)

			if !reached || rec.Code != http.StatusTeapot {
				t.Fatalf("gate intercepted the request: reached=%v status=%d", reached, rec.Code)
			}
			if seen != tt.wantPrincipal {
				t.Errorf("principal = %q, want %q", seen, tt.wantPrincipal)
			}
		})
	}

	want := []string{"absent", "malformed", "valid"}
	if len(metrics.verifications) != len(want) {
		t.Fatalf("verifications = %q, want %q", metrics.verifications, want)
	}
	for i := range want {
		if metrics.verifications[i] != want[i] {
			t.Errorf("verification[%d] = %q, want %q", i, metrics.verifications[i], want[i])
		}
	}
}

func TestGate_UsesClock(t *testing.T) {
	codec := newTestCodec(t, time.Hour)
	token, _ := codec.Issue("john", NewRoles("USER"), testT0)

	now := testT0
	g := NewGate(codec, GateConfig{}, WithClock(func() time.Time { return now }))

	if id, _ := g.AuthenticateHeader("Bearer " + token); id == nil {
		t.Fatal("token rejected before expiry")
	}
	now = testT0.Add(time.Hour)
	if _, err := g.AuthenticateHeader("Bearer " + token); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("AuthenticateHeader() at expiry error = %v, want ErrTokenExpired", err)
	}
}

func TestFailureKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrTokenExpired, "expired"},
		{ErrTokenBadSignature, "bad_signature"},
		{ErrTokenMalformed, "malformed"},
		{errors.New("x"), "malformed"},
	}
	for _, tt := range tests {
		if got := failureKind(tt.err); got != tt.want {
			t.Errorf("failureKind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
