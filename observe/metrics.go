package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// AuthMetrics records authentication and authorization outcomes.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must return quickly.
// - Errors: implementations must not panic.
type AuthMetrics interface {
	// RecordDecision counts one access decision for route
	// ("allow", "unauthorized", "forbidden").
	RecordDecision(ctx context.Context, route, decision string)

	// RecordVerification counts one bearer-header inspection by outcome
	// ("valid", "absent", "expired", "bad_signature", "malformed").
	RecordVerification(ctx context.Context, outcome string)

	// RecordLogin counts one login attempt and its duration.
	RecordLogin(ctx context.Context, outcome string, duration time.Duration)
}

type authMetrics struct {
	decisions     metric.Int64Counter
	verifications metric.Int64Counter
	logins        metric.Int64Counter
	loginDuration metric.Float64Histogram
}

// NewAuthMetrics creates the auth instruments on meter.
func NewAuthMetrics(meter metric.Meter) (AuthMetrics, error) {
	decisions, err := meter.Int64Counter(
		"auth.decisions",
		metric.WithDescription("Access decisions by route and outcome"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		return nil, err
	}

	verifications, err := meter.Int64Counter(
		"auth.verifications",
		metric.WithDescription("Bearer token inspections by outcome"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return nil, err
	}

	logins, err := meter.Int64Counter(
		"auth.logins",
		metric.WithDescription("Login attempts by outcome"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	loginDuration, err := meter.Float64Histogram(
		"auth.login.duration_ms",
		metric.WithDescription("Login duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &authMetrics{
		decisions:     decisions,
		verifications: verifications,
		logins:        logins,
		loginDuration: loginDuration,
	}, nil
}

func (m *authMetrics) RecordDecision(ctx context.Context, route, decision string) {
	m.decisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("http.route", route),
		attribute.String("auth.decision", decision),
	))
}

func (m *authMetrics) RecordVerification(ctx context.Context, outcome string) {
	m.verifications.Add(ctx, 1, metric.WithAttributes(attribute.String("auth.outcome", outcome)))
}

func (m *authMetrics) RecordLogin(ctx context.Context, outcome string, duration time.Duration) {
	opt := metric.WithAttributes(attribute.String("auth.outcome", outcome))
	m.logins.Add(ctx, 1, opt)
	m.loginDuration.Record(ctx, float64(duration.Milliseconds()), opt)
}

// NopAuthMetrics returns an AuthMetrics that records nothing.
func NopAuthMetrics() AuthMetrics {
	return noopAuthMetrics{}
}

type noopAuthMetrics struct{}

func (noopAuthMetrics) RecordDecision(context.Context, string, string)     {}
func (noopAuthMetrics) RecordVerification(context.Context, string)         {}
func (noopAuthMetrics) RecordLogin(context.Context, string, time.Duration) {}
