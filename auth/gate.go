package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/jonwraymond/tokengate/observe"
)

// GateConfig configures where the gate finds the bearer token.
type GateConfig struct {
	// HeaderName is the header containing the token.
	// Default: "Authorization"
	HeaderName string

	// TokenPrefix is the scheme label before the token in the header.
	// Default: "Bearer "
	TokenPrefix string
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithClock overrides the clock used for token verification.
func WithClock(now func() time.Time) GateOption {
	return func(g *Gate) {
		g.now = now
	}
}

// WithGateLogger sets the logger used for rejected tokens.
func WithGateLogger(logger observe.Logger) GateOption {
	return func(g *Gate) {
		g.logger = logger
	}
}

// WithGateMetrics sets the metrics sink for verification outcomes.
func WithGateMetrics(metrics observe.AuthMetrics) GateOption {
	return func(g *Gate) {
		g.metrics = metrics
	}
}

// Gate establishes the request security context from the credential header.
//
// The gate only informs: it attaches an Identity when the token verifies and
// otherwise lets the request through anonymously. Enforcement belongs to the
// decision point (see Require), so an unauthenticated request to a protected
// route still receives a uniform 401.
type Gate struct {
	codec   *Codec
	config  GateConfig
	now     func() time.Time
	logger  observe.Logger
	metrics observe.AuthMetrics
}

// NewGate creates a gate over codec.
func NewGate(codec *Codec, config GateConfig, opts ...GateOption) *Gate {
	// Apply defaults
	if config.HeaderName == "" {
		config.HeaderName = "Authorization"
	}
	if config.TokenPrefix == "" && strings.EqualFold(config.HeaderName, "Authorization") {
		config.TokenPrefix = "Bearer "
	}

	g := &Gate{
		codec:   codec,
		config:  config,
		now:     time.Now,
		logger:  observe.NopLogger(),
		metrics: observe.NopAuthMetrics(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Config returns the effective gate configuration.
func (g *Gate) Config() GateConfig {
	return g.config
}

// Authenticate resolves the identity carried by r.
//
// It returns (nil, nil) when the header is absent and (nil, err) when a
// credential is present but does not verify.
func (g *Gate) Authenticate(r *http.Request) (*Identity, error) {
	return g.AuthenticateHeader(r.Header.Get(g.config.HeaderName))
}

// AuthenticateHeader resolves the identity carried by a raw header value.
func (g *Gate) AuthenticateHeader(header string) (*Identity, error) {
	if header == "" {
		return nil, nil
	}

	// Extract token
	tokenString, found := strings.CutPrefix(header, g.config.TokenPrefix)
	if !found {
		return nil, ErrTokenMalformed
	}
	tokenString = strings.TrimSpace(tokenString)

	claims, err := g.codec.Verify(tokenString, g.now())
	if err != nil {
		return nil, err
	}
	return NewIdentity(claims), nil
}

// Identify is Authenticate with the outcome logged and counted. Failures
// yield a nil identity.
func (g *Gate) Identify(r *http.Request) *Identity {
	id, err := g.Authenticate(r)
	g.record(r.Context(), id, err)
	return id
}

// Middleware attaches the verified identity to the request context. It never
// writes a response.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := g.Identify(r)
		if id != nil {
			r = r.WithContext(WithIdentity(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

func (g *Gate) record(ctx context.Context, id *Identity, err error) {
	switch {
	case err != nil:
		g.metrics.RecordVerification(ctx, failureKind(err))
		g.logger.Debug(ctx, "credential rejected", observe.Field{Key: "reason", Value: failureKind(err)})
	case id != nil:
		g.metrics.RecordVerification(ctx, "valid")
	default:
		g.metrics.RecordVerification(ctx, "absent")
	}
}

// failureKind names a token failure for internal logs and metrics only.
func failureKind(err error) string {
	switch {
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrTokenBadSignature):
		return "bad_signature"
	default:
		return "malformed"
	}
}
