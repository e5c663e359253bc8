package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// BackoffStrategy defines how delays grow between attempts.
type BackoffStrategy int

const (
	// BackoffExponential multiplies the delay by Multiplier each attempt.
	BackoffExponential BackoffStrategy = iota
	// BackoffLinear grows the delay by InitialDelay each attempt.
	BackoffLinear
	// BackoffConstant waits InitialDelay before every attempt.
	BackoffConstant
)

// RetryConfig configures Retry.
type RetryConfig struct {
	// MaxAttempts counts the first call. Default: 3
	MaxAttempts int

	// InitialDelay is the wait before the second attempt.
	// Default: 50ms
	InitialDelay time.Duration

	// MaxDelay caps a single wait. Default: 1 second
	MaxDelay time.Duration

	// Multiplier is the exponential growth factor. Default: 2.0
	Multiplier float64

	// Strategy is the backoff strategy. Default: BackoffExponential
	Strategy BackoffStrategy

	// Jitter adds up to 25% to each wait.
	Jitter bool

	// RetryIf decides whether err is worth another attempt.
	// Default: Retryable.
	RetryIf func(err error) bool

	// OnRetry is called before each wait.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// Retry re-runs an operation that failed transiently, such as a user store
// lookup that hit a dropped connection.
//
// Contract:
// - Concurrency: safe for concurrent use; Retry holds no per-call state.
// - Context: waits end early when ctx is done, returning ctx.Err().
// - Errors: the last attempt's error is returned unchanged.
type Retry struct {
	config RetryConfig
}

// NewRetry creates a retry handler.
func NewRetry(config RetryConfig) *Retry {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = 50 * time.Millisecond
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = time.Second
	}
	if config.Multiplier <= 0 {
		config.Multiplier = 2.0
	}
	if config.RetryIf == nil {
		config.RetryIf = Retryable
	}
	return &Retry{config: config}
}

// Retryable reports whether err may succeed on another attempt: any error
// other than a guard rejection or a context error.
func Retryable(err error) bool {
	return err != nil && !IsRejection(err) && !isContextErr(err)
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// Execute runs op until it succeeds, RetryIf refuses, or attempts run out.
func (r *Retry) Execute(ctx context.Context, op func(context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !r.config.RetryIf(err) || attempt == r.config.MaxAttempts {
			break
		}

		delay := r.delay(attempt)
		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return lastErr
}

func (r *Retry) delay(attempt int) time.Duration {
	var d time.Duration
	switch r.config.Strategy {
	case BackoffConstant:
		d = r.config.InitialDelay
	case BackoffLinear:
		d = r.config.InitialDelay * time.Duration(attempt)
	default:
		d = time.Duration(float64(r.config.InitialDelay) * math.Pow(r.config.Multiplier, float64(attempt-1)))
	}

	if d > r.config.MaxDelay {
		d = r.config.MaxDelay
	}
	if r.config.Jitter && d >= 4 {
		// #nosec G404 -- jitter is non-cryptographic timing variance.
		d += time.Duration(rand.Int64N(int64(d / 4)))
	}
	return d
}

// Config returns the retry configuration with defaults applied.
func (r *Retry) Config() RetryConfig {
	return r.config
}
