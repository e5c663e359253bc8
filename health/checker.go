package health

import (
	"context"
	"time"
)

// Status represents the health status of a component.
type Status int

const (
	// StatusHealthy indicates the component is functioning normally.
	StatusHealthy Status = iota
	// StatusDegraded indicates the component is functioning but with issues.
	StatusDegraded
	// StatusUnhealthy indicates the component is not functioning properly.
	StatusUnhealthy
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// Result contains the outcome of a health check.
type Result struct {
	Status    Status
	Message   string
	Details   map[string]any
	Duration  time.Duration
	Timestamp time.Time
	Error     error
}

// Healthy creates a healthy result.
func Healthy(message string) Result {
	return Result{Status: StatusHealthy, Message: message, Timestamp: time.Now()}
}

// Degraded creates a degraded result.
func Degraded(message string) Result {
	return Result{Status: StatusDegraded, Message: message, Timestamp: time.Now()}
}

// Unhealthy creates an unhealthy result.
func Unhealthy(message string, err error) Result {
	return Result{Status: StatusUnhealthy, Message: message, Error: err, Timestamp: time.Now()}
}

// WithDetails adds details to a result.
func (r Result) WithDetails(details map[string]any) Result {
	r.Details = details
	return r
}

// Checker is the interface for health checks.
type Checker interface {
	// Name returns the name of this checker.
	Name() string

	// Check performs the health check and returns the result.
	Check(ctx context.Context) Result
}

// CheckerFunc is an adapter to allow ordinary functions to be used as Checkers.
type CheckerFunc struct {
	name string
	fn   func(context.Context) Result
}

// NewCheckerFunc creates a new CheckerFunc.
func NewCheckerFunc(name string, fn func(context.Context) Result) *CheckerFunc {
	return &CheckerFunc{name: name, fn: fn}
}

// Name returns the name of this checker.
func (f *CheckerFunc) Name() string {
	return f.name
}

// Check performs the health check.
func (f *CheckerFunc) Check(ctx context.Context) Result {
	return f.fn(ctx)
}

// Pinger is a dependency that can report whether it is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingChecker reports a Pinger as unhealthy when Ping fails and degraded
// when Ping is slower than SlowAfter.
type PingChecker struct {
	name      string
	target    Pinger
	SlowAfter time.Duration
}

// NewPingChecker creates a checker for target. SlowAfter defaults to one second.
func NewPingChecker(name string, target Pinger) *PingChecker {
	return &PingChecker{name: name, target: target, SlowAfter: time.Second}
}

// Name returns the name of this checker.
func (p *PingChecker) Name() string {
	return p.name
}

// Check pings the target.
func (p *PingChecker) Check(ctx context.Context) Result {
	start := time.Now()
	if err := p.target.Ping(ctx); err != nil {
		return Unhealthy(p.name+" unreachable", err)
	}
	elapsed := time.Since(start)
	details := map[string]any{"latency_ms": elapsed.Milliseconds()}
	if p.SlowAfter > 0 && elapsed > p.SlowAfter {
		return Degraded(p.name + " slow").WithDetails(details)
	}
	return Healthy(p.name + " reachable").WithDetails(details)
}
