package session

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps every backend failure returned by the store.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrNotFound is returned by Get when no live payload exists for a token.
var ErrNotFound = errors.New("session not found")

// ErrEmptyToken is returned when a write targets an empty token.
var ErrEmptyToken = errors.New("session: empty token")

// DefaultPrefix namespaces session keys in a shared Redis.
const DefaultPrefix = "session:"

// DefaultTTL applies to payloads written without an expiry.
const DefaultTTL = 15 * 24 * time.Hour

// TouchResult is the outcome of [Store.Touch].
type TouchResult uint8

const (
	// TouchRefreshed means the key exists and its TTL was reset.
	TouchRefreshed TouchResult = iota + 1
	// TouchExpired means the key was already gone, or the payload expiry has passed.
	TouchExpired
)

func (r TouchResult) String() string {
	switch r {
	case TouchRefreshed:
		return "OK"
	case TouchExpired:
		return "EXPIRED"
	default:
		return "UNKNOWN"
	}
}

// Store is a Redis-backed session record store. All keys are prefix + token
// and every write sets a TTL derived from the payload expiry.
type Store struct {
	redis      redis.UniversalClient
	prefix     string
	defaultTTL time.Duration
	now        func() time.Time
}

// StoreOption customizes a [Store].
type StoreOption func(*Store)

// WithClock overrides the time source used for TTL computation.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore creates a session [Store] backed by the given Redis client. An empty
// prefix selects DefaultPrefix and a non-positive defaultTTL selects DefaultTTL.
func NewStore(client redis.UniversalClient, prefix string, defaultTTL time.Duration, opts ...StoreOption) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	s := &Store{
		redis:      client,
		prefix:     prefix,
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key returns the Redis key for token.
func (s *Store) Key(token string) string {
	return s.prefix + token
}

// Prefix returns the configured key namespace.
func (s *Store) Prefix() string {
	return s.prefix
}

// TTLFor returns the store TTL for p: the time until its expiry rounded up to
// whole seconds, or the default TTL when p carries no expiry. A result <= 0
// means the payload is already expired.
func (s *Store) TTLFor(p *Payload) time.Duration {
	exp, ok := p.Expiry()
	if !ok {
		return s.defaultTTL
	}
	remaining := exp.Sub(s.now())
	if remaining <= 0 {
		return 0
	}
	secs := math.Ceil(remaining.Seconds())
	return time.Duration(secs) * time.Second
}

// Get fetches and decodes the payload for token. A missing key, a corrupt blob
// and a payload whose expiry has passed all return ErrNotFound, and a corrupt
// blob also matches ErrCorrupt. Backend failures are wrapped in
// ErrRedisUnavailable.
//
//	Performance: 1 Redis GET.
func (s *Store) Get(ctx context.Context, token string) (*Payload, error) {
	if token == "" {
		return nil, ErrNotFound
	}

	data, err := s.redis.Get(ctx, s.Key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	p, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	if exp, ok := p.Expiry(); ok && !exp.After(s.now()) {
		return nil, ErrNotFound
	}
	return p, nil
}

// Set encodes p and stores it with TTL from [Store.TTLFor]. A payload that is
// already expired is deleted instead of written.
//
//	Performance: 1 Redis SET (or DEL).
func (s *Store) Set(ctx context.Context, token string, p *Payload) error {
	if token == "" {
		return ErrEmptyToken
	}
	ttl := s.TTLFor(p)
	if ttl <= 0 {
		return s.Destroy(ctx, token)
	}

	data, err := Encode(p)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.Key(token), data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Touch resets the key TTL from p's expiry without rewriting the value.
//
//	Performance: 1 Redis EXPIRE (or DEL).
func (s *Store) Touch(ctx context.Context, token string, p *Payload) (TouchResult, error) {
	ttl := s.TTLFor(p)
	if ttl <= 0 {
		if err := s.Destroy(ctx, token); err != nil {
			return 0, err
		}
		return TouchExpired, nil
	}

	ok, err := s.redis.Expire(ctx, s.Key(token), ttl).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if !ok {
		return TouchExpired, nil
	}
	return TouchRefreshed, nil
}

// Destroy deletes the key for token. Deleting a missing key is not an error.
//
//	Performance: 1 Redis DEL.
func (s *Store) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.redis.Del(ctx, s.Key(token)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Live returns the subset of tokens that still have a key in Redis, in input
// order.
//
//	Performance: 1 pipelined round trip of EXISTS commands.
func (s *Store) Live(ctx context.Context, tokens []string) ([]string, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	cmds := make([]*redis.IntCmd, len(tokens))
	_, err := s.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, token := range tokens {
			cmds[i] = pipe.Exists(ctx, s.Key(token))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	live := make([]string, 0, len(tokens))
	for i, cmd := range cmds {
		if cmd.Val() > 0 {
			live = append(live, tokens[i])
		}
	}
	return live, nil
}

// Ping checks backend reachability.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
