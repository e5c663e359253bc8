package resilience

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// RateLimiterConfig configures the rate limiter.
type RateLimiterConfig struct {
	// Rate is the number of operations allowed per second.
	// Default: 100
	Rate float64

	// Burst is the maximum burst size.
	// Default: 10
	Burst int

	// WaitOnLimit waits for a token instead of returning an error.
	WaitOnLimit bool

	// MaxWait is the maximum time to wait for a token.
	// Default: 1 second
	MaxWait time.Duration

	// Now is the clock. Default: time.Now
	Now func() time.Time
}

func (c RateLimiterConfig) withDefaults() RateLimiterConfig {
	if c.Rate <= 0 {
		c.Rate = 100
	}
	if c.Burst <= 0 {
		c.Burst = 10
	}
	if c.MaxWait <= 0 {
		c.MaxWait = time.Second
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// bucket is a token bucket. Callers hold the owning limiter's lock.
type bucket struct {
	tokens      float64
	lastRefresh time.Time
}

func (b *bucket) refill(now time.Time, cfg RateLimiterConfig) {
	elapsed := now.Sub(b.lastRefresh)
	if elapsed > 0 {
		b.tokens += elapsed.Seconds() * cfg.Rate
		b.lastRefresh = now
	}
	if b.tokens > float64(cfg.Burst) {
		b.tokens = float64(cfg.Burst)
	}
}

func (b *bucket) take(now time.Time, cfg RateLimiterConfig, n int) bool {
	b.refill(now, cfg)
	if b.tokens >= float64(n) {
		b.tokens -= float64(n)
		return true
	}
	return false
}

// RateLimiter implements a token bucket rate limiter.
type RateLimiter struct {
	config RateLimiterConfig

	mu     sync.Mutex
	bucket bucket
}

// NewRateLimiter creates a new rate limiter that starts full.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	config = config.withDefaults()
	return &RateLimiter{
		config: config,
		bucket: bucket{tokens: float64(config.Burst), lastRefresh: config.Now()},
	}
}

// Allow reports whether one operation may proceed now, consuming a token if so.
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.bucket.take(rl.config.Now(), rl.config, 1)
}

// Wait blocks until a token is available, MaxWait elapses or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rl.Allow() {
		return nil
	}

	rl.mu.Lock()
	wait := time.Duration((1 - rl.bucket.tokens) / rl.config.Rate * float64(time.Second))
	rl.mu.Unlock()
	wait = min(wait, rl.config.MaxWait)

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		if rl.Allow() {
			return nil
		}
		return ErrRateLimitExceeded
	}
}

// Execute runs the operation if allowed by rate limit.
func (rl *RateLimiter) Execute(ctx context.Context, op func(context.Context) error) error {
	if rl.config.WaitOnLimit {
		if err := rl.Wait(ctx); err != nil {
			return err
		}
	} else if !rl.Allow() {
		return ErrRateLimitExceeded
	}

	return op(ctx)
}

// Tokens returns the current number of available tokens.
func (rl *RateLimiter) Tokens() float64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.bucket.refill(rl.config.Now(), rl.config)
	return rl.bucket.tokens
}

// KeyedRateLimiter keeps one token bucket per key, such as a client address.
// At most maxKeys buckets are tracked; a new key evicts the least recently
// seen one.
type KeyedRateLimiter struct {
	config  RateLimiterConfig
	maxKeys int

	mu      sync.Mutex
	buckets map[string]*list.Element
	order   *list.List // front is most recently seen
}

type keyedBucket struct {
	key    string
	bucket bucket
}

// NewKeyedRateLimiter creates a per-key limiter. maxKeys defaults to 10000.
func NewKeyedRateLimiter(config RateLimiterConfig, maxKeys int) *KeyedRateLimiter {
	if maxKeys <= 0 {
		maxKeys = 10000
	}
	return &KeyedRateLimiter{
		config:  config.withDefaults(),
		maxKeys: maxKeys,
		buckets: make(map[string]*list.Element),
		order:   list.New(),
	}
}

// Allow reports whether key may perform one more operation now.
func (k *KeyedRateLimiter) Allow(key string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	now := k.config.Now()
	if el, ok := k.buckets[key]; ok {
		k.order.MoveToFront(el)
		return el.Value.(*keyedBucket).bucket.take(now, k.config, 1)
	}

	if k.order.Len() >= k.maxKeys {
		oldest := k.order.Back()
		k.order.Remove(oldest)
		delete(k.buckets, oldest.Value.(*keyedBucket).key)
	}

	kb := &keyedBucket{
		key:    key,
		bucket: bucket{tokens: float64(k.config.Burst), lastRefresh: now},
	}
	k.buckets[key] = k.order.PushFront(kb)
	return kb.bucket.take(now, k.config, 1)
}

// Len returns the number of tracked keys.
func (k *KeyedRateLimiter) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.order.Len()
}
