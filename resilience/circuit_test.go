package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var errStore = errors.New("store down")

func fail(context.Context) error    { return errStore }
func succeed(context.Context) error { return nil }

func TestState_String(t *testing.T) {
	tests := map[State]string{
		StateClosed:   "closed",
		StateOpen:     "open",
		StateHalfOpen: "half-open",
		State(42):     "unknown",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", s, got, want)
		}
	}
}

func TestCircuitBreaker_Defaults(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{})
	if cb.config.MaxFailures != 5 || cb.config.ResetTimeout != 30*time.Second || cb.config.HalfOpenMaxRequests != 1 {
		t.Errorf("unexpected defaults: %+v", cb.config)
	}
	if cb.State() != StateClosed {
		t.Errorf("initial state = %v, want closed", cb.State())
	}
}

func TestCircuitBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 3})
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	_ = cb.Execute(ctx, fail)
	_ = cb.Execute(ctx, succeed) // resets the streak
	_ = cb.Execute(ctx, fail)
	_ = cb.Execute(ctx, fail)
	if cb.State() != StateClosed {
		t.Fatalf("state = %v, want closed after broken streak", cb.State())
	}

	if err := cb.Execute(ctx, fail); !errors.Is(err, errStore) {
		t.Fatalf("err = %v, want operation error", err)
	}
	if cb.State() != StateOpen {
		t.Fatalf("state = %v, want open", cb.State())
	}

	called := false
	err := cb.Execute(ctx, func(context.Context) error { called = true; return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("err = %v, want ErrCircuitOpen", err)
	}
	if called {
		t.Error("operation must not run while open")
	}
}

func TestCircuitBreaker_HalfOpenProbe(t *testing.T) {
	clock := newFakeClock()
	var transitions []string
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures:  1,
		ResetTimeout: time.Minute,
		Now:          clock.Now,
		OnStateChange: func(from, to State) {
			transitions = append(transitions, from.String()+">"+to.String())
		},
	})
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	clock.Advance(59 * time.Second)
	if cb.State() != StateOpen {
		t.Fatalf("state = %v, want open before reset timeout", cb.State())
	}

	clock.Advance(time.Second)
	if cb.State() != StateHalfOpen {
		t.Fatalf("state = %v, want half-open", cb.State())
	}

	// Failed probe reopens.
	_ = cb.Execute(ctx, fail)
	if cb.State() != StateOpen {
		t.Fatalf("state = %v, want open after failed probe", cb.State())
	}

	clock.Advance(time.Minute)
	if err := cb.Execute(ctx, succeed); err != nil {
		t.Fatalf("probe error: %v", err)
	}
	if cb.State() != StateClosed {
		t.Fatalf("state = %v, want closed after successful probe", cb.State())
	}

	want := []string{"closed>open", "open>half-open", "half-open>open", "open>half-open", "half-open>closed"}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition %d = %s, want %s", i, transitions[i], want[i])
		}
	}
}

func TestCircuitBreaker_HalfOpenLimitsProbes(t *testing.T) {
	clock := newFakeClock()
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1, ResetTimeout: time.Second, Now: clock.Now})
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	clock.Advance(time.Second)

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = cb.Execute(ctx, func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	if err := cb.Execute(ctx, succeed); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("second probe err = %v, want ErrCircuitOpen", err)
	}
	close(release)
}

func TestCircuitBreaker_IsFailureFilter(t *testing.T) {
	notFound := errors.New("not found")
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures: 1,
		IsFailure:   func(err error) bool { return err != nil && !errors.Is(err, notFound) },
	})

	for range 5 {
		_ = cb.Execute(context.Background(), func(context.Context) error { return notFound })
	}
	if cb.State() != StateClosed {
		t.Errorf("state = %v, filtered errors must not open the circuit", cb.State())
	}
}

func TestCircuitBreaker_ResetAndSnapshot(t *testing.T) {
	clock := newFakeClock()
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 2, Now: clock.Now})
	_ = cb.Execute(context.Background(), fail)

	snap := cb.Snapshot()
	if snap.State != StateClosed || snap.Failures != 1 {
		t.Errorf("snapshot = %+v", snap)
	}

	_ = cb.Execute(context.Background(), fail)
	if got := cb.Snapshot(); got.State != StateOpen || !got.OpenedAt.Equal(clock.Now()) {
		t.Errorf("snapshot = %+v", got)
	}

	cb.Reset()
	if got := cb.Snapshot(); got.State != StateClosed || got.Failures != 0 {
		t.Errorf("after reset snapshot = %+v", got)
	}
}
