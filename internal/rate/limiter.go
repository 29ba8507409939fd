package rate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	loginUserPrefix = "login:fail:u:"
	loginIPPrefix   = "login:fail:ip:"
)

// Config holds login throttle tuning parameters. MaxAttempts <= 0 disables
// the limiter.
type Config struct {
	MaxAttempts  int
	Window       time.Duration
	ThrottleByIP bool
}

// Limiter counts failed logins per email and optionally per client IP using
// fixed-window Redis counters.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	if cfg.Window <= 0 {
		cfg.Window = 15 * time.Minute
	}
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

// Enabled reports whether attempts are being counted.
func (l *Limiter) Enabled() bool {
	return l != nil && l.config.MaxAttempts > 0
}

// Check returns ErrRateLimited once either counter has reached the budget.
func (l *Limiter) Check(ctx context.Context, email, ip string) error {
	if !l.Enabled() {
		return nil
	}
	for _, key := range l.keys(email, ip) {
		if err := l.checkCounter(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// Fail records a failed attempt. It returns ErrRateLimited when this attempt
// exhausted the budget.
func (l *Limiter) Fail(ctx context.Context, email, ip string) error {
	if !l.Enabled() {
		return nil
	}
	limited := false
	for _, key := range l.keys(email, ip) {
		count, err := l.incrementWithTTL(ctx, key)
		if err != nil {
			return err
		}
		if count >= int64(l.config.MaxAttempts) {
			limited = true
		}
	}
	if limited {
		return ErrRateLimited
	}
	return nil
}

// Reset clears the counters after a successful login.
func (l *Limiter) Reset(ctx context.Context, email, ip string) error {
	if !l.Enabled() {
		return nil
	}
	if err := l.redis.Del(ctx, l.keys(email, ip)...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Attempts returns the current failure count for email. Missing keys read as zero.
func (l *Limiter) Attempts(ctx context.Context, email string) (int, error) {
	count, err := l.redis.Get(ctx, loginUserKey(email)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

func (l *Limiter) keys(email, ip string) []string {
	keys := []string{loginUserKey(email)}
	if l.config.ThrottleByIP && ip != "" {
		keys = append(keys, loginIPPrefix+ip)
	}
	return keys
}

func (l *Limiter) checkCounter(ctx context.Context, key string) error {
	count, err := l.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count >= int64(l.config.MaxAttempts) {
		return ErrRateLimited
	}
	return nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed window: the TTL is set on the first hit only.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.config.Window).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}
	return count, nil
}

func loginUserKey(email string) string {
	return loginUserPrefix + strings.ToLower(strings.TrimSpace(email))
}
