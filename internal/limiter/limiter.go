// Package limiter throttles login failures and reset-code requests with
// Redis fixed-window counters.
package limiter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrRateLimited indicates the caller exhausted its attempt budget.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps Redis failures.
	ErrRedisUnavailable = errors.New("redis unavailable")
)

// Config holds limiter tuning parameters. A zero max disables that limit.
type Config struct {
	MaxLoginFailures int
	LoginWindow      time.Duration
	MaxResetRequests int
	ResetWindow      time.Duration
}

// Limiter enforces per-identifier budgets.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a Limiter backed by the given Redis client.
func New(client redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{redis: client, config: cfg}
}

// CheckLogin fails when the identifier already reached the failure budget.
func (l *Limiter) CheckLogin(ctx context.Context, identifier string) error {
	if l.config.MaxLoginFailures <= 0 {
		return nil
	}
	count, err := l.redis.Get(ctx, loginKey(identifier)).Int64()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count >= int64(l.config.MaxLoginFailures) {
		return ErrRateLimited
	}
	return nil
}

// RecordLoginFailure counts a failed password check.
func (l *Limiter) RecordLoginFailure(ctx context.Context, identifier string) error {
	if l.config.MaxLoginFailures <= 0 {
		return nil
	}
	_, err := l.incrementWithTTL(ctx, loginKey(identifier), l.config.LoginWindow)
	return err
}

// ResetLogin clears the failure counter after a successful login.
func (l *Limiter) ResetLogin(ctx context.Context, identifier string) error {
	if err := l.redis.Del(ctx, loginKey(identifier)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// AllowReset counts a reset-code request and fails once the budget is exceeded.
func (l *Limiter) AllowReset(ctx context.Context, identifier string) error {
	if l.config.MaxResetRequests <= 0 {
		return nil
	}
	count, err := l.incrementWithTTL(ctx, resetKey(identifier), l.config.ResetWindow)
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxResetRequests) {
		return ErrRateLimited
	}
	return nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	// The window starts at the first hit. EXPIRE NX runs with every INCR in
	// one MULTI so a key can never outlive its window without a TTL.
	var incr *redis.IntCmd
	_, err := l.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return incr.Val(), nil
}

func loginKey(identifier string) string {
	return "pmws:limit:login:" + normalize(identifier)
}

func resetKey(identifier string) string {
	return "pmws:limit:reset:" + normalize(identifier)
}

func normalize(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}
