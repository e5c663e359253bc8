package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/jonwraymond/tokengate/observe"
)

// Fixed client-facing messages. They never say which role was missing or why
// a token was rejected.
const (
	MessageUnauthorized = "Full authentication is required to access this resource"
	MessageForbidden    = "You do not have permission to access this resource"

	// MessageInvalidCredentials is the single login failure message, used
	// whether or not the username exists.
	MessageInvalidCredentials = "Invalid username or password"
)

// ErrorResponse is the uniform error body for failed requests.
type ErrorResponse struct {
	Timestamp time.Time `json:"timestamp"`
	Status    int       `json:"status"`
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Path      string    `json:"path"`
}

// ResponderOption configures a Responder.
type ResponderOption func(*Responder)

// WithResponderClock overrides the clock used for error timestamps.
func WithResponderClock(now func() time.Time) ResponderOption {
	return func(r *Responder) {
		r.now = now
	}
}

// WithResponderLogger sets the logger used for denial lines.
func WithResponderLogger(logger observe.Logger) ResponderOption {
	return func(r *Responder) {
		r.logger = logger
	}
}

// WithResponderMetrics sets the metrics sink for authorization decisions.
func WithResponderMetrics(metrics observe.AuthMetrics) ResponderOption {
	return func(r *Responder) {
		r.metrics = metrics
	}
}

// Responder renders and writes ErrorResponse bodies.
type Responder struct {
	now     func() time.Time
	logger  observe.Logger
	metrics observe.AuthMetrics
}

// NewResponder creates a responder.
func NewResponder(opts ...ResponderOption) *Responder {
	r := &Responder{
		now:     time.Now,
		logger:  observe.NopLogger(),
		metrics: observe.NopAuthMetrics(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render builds the error body for a deny decision on path.
func (rs *Responder) Render(decision Decision, path string) ErrorResponse {
	switch decision {
	case DenyUnauthorized:
		return rs.RenderStatus(http.StatusUnauthorized, MessageUnauthorized, path)
	default:
		return rs.RenderStatus(http.StatusForbidden, MessageForbidden, path)
	}
}

// RenderStatus builds an error body for an arbitrary status.
func (rs *Responder) RenderStatus(status int, message, path string) ErrorResponse {
	return ErrorResponse{
		Timestamp: rs.now().UTC(),
		Status:    status,
		Error:     http.StatusText(status),
		Message:   message,
		Path:      path,
	}
}

// Write renders the decision for r and writes it to w.
func (rs *Responder) Write(w http.ResponseWriter, r *http.Request, decision Decision) {
	if decision == DenyForbidden {
		rs.logger.Warn(r.Context(), "access denied",
			observe.Field{Key: "method", Value: r.Method},
			observe.Field{Key: "path", Value: r.URL.Path},
			observe.Field{Key: "principal", Value: PrincipalFromContext(r.Context())},
		)
	}
	rs.WriteBody(w, rs.Render(decision, r.URL.Path))
}

// WriteStatus writes an error body with the given status and message.
func (rs *Responder) WriteStatus(w http.ResponseWriter, r *http.Request, status int, message string) {
	rs.WriteBody(w, rs.RenderStatus(status, message, r.URL.Path))
}

// WriteBody serializes body as JSON with its status code.
func (rs *Responder) WriteBody(w http.ResponseWriter, body ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if body.Status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	w.WriteHeader(body.Status)
	_ = json.NewEncoder(w).Encode(body)
}

// Record counts an authorization decision for route.
func (rs *Responder) Record(ctx context.Context, route string, decision Decision) {
	rs.metrics.RecordDecision(ctx, route, decision.String())
}
