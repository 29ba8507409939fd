package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, cfg Config) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, cfg), mr
}

func TestLimiterBlocksAfterBudget(t *testing.T) {
	l, _ := newTestLimiter(t, Config{MaxAttempts: 3, Window: time.Minute})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := l.Check(ctx, "a@b.c", ""); err != nil {
			t.Fatalf("attempt %d: unexpected check error %v", i, err)
		}
		if err := l.Fail(ctx, "a@b.c", ""); err != nil {
			t.Fatalf("attempt %d: unexpected fail error %v", i, err)
		}
	}
	if err := l.Fail(ctx, "A@B.C ", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited on third failure, got %v", err)
	}
	if err := l.Check(ctx, "a@b.c", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected check to be limited, got %v", err)
	}
	n, err := l.Attempts(ctx, "a@b.c")
	if err != nil || n != 3 {
		t.Fatalf("expected 3 attempts, got %d (%v)", n, err)
	}
}

func TestLimiterWindowExpires(t *testing.T) {
	l, mr := newTestLimiter(t, Config{MaxAttempts: 1, Window: time.Minute})
	ctx := context.Background()

	_ = l.Fail(ctx, "a@b.c", "")
	if err := l.Check(ctx, "a@b.c", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected limited, got %v", err)
	}
	mr.FastForward(61 * time.Second)
	if err := l.Check(ctx, "a@b.c", ""); err != nil {
		t.Fatalf("expected window to reset, got %v", err)
	}
}

func TestLimiterResetAndIP(t *testing.T) {
	l, mr := newTestLimiter(t, Config{MaxAttempts: 2, Window: time.Minute, ThrottleByIP: true})
	ctx := context.Background()

	_ = l.Fail(ctx, "a@b.c", "10.0.0.1")
	if !mr.Exists(loginIPPrefix + "10.0.0.1") {
		t.Fatal("expected ip counter")
	}
	_ = l.Fail(ctx, "other@b.c", "10.0.0.1")
	if err := l.Check(ctx, "third@b.c", "10.0.0.1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ip budget to be exhausted, got %v", err)
	}
	if err := l.Reset(ctx, "third@b.c", "10.0.0.1"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if err := l.Check(ctx, "third@b.c", "10.0.0.1"); err != nil {
		t.Fatalf("expected reset to clear ip counter, got %v", err)
	}
}

func TestLimiterDisabled(t *testing.T) {
	var l *Limiter
	if l.Enabled() {
		t.Fatal("nil limiter must be disabled")
	}
	if err := l.Check(context.Background(), "a", ""); err != nil {
		t.Fatalf("nil limiter check: %v", err)
	}
	l2, mr := newTestLimiter(t, Config{})
	_ = l2.Fail(context.Background(), "a@b.c", "")
	if len(mr.Keys()) != 0 {
		t.Fatalf("disabled limiter wrote keys: %v", mr.Keys())
	}
}

func TestLimiterBackendFailure(t *testing.T) {
	l, mr := newTestLimiter(t, Config{MaxAttempts: 2})
	mr.Close()
	if err := l.Fail(context.Background(), "a@b.c", ""); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
}
