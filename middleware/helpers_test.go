package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Now().UTC().Truncate(time.Millisecond)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// spyStore counts calls and can inject failures in front of a real store.
type spyStore struct {
	next RecordStore

	mu       sync.Mutex
	gets     int
	sets     int
	touches  int
	destroys int
	getErr   error
	setErr   error
}

func (s *spyStore) Get(ctx context.Context, token string) (*session.Payload, error) {
	s.mu.Lock()
	s.gets++
	err := s.getErr
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.next.Get(ctx, token)
}

func (s *spyStore) Set(ctx context.Context, token string, p *session.Payload) error {
	s.mu.Lock()
	s.sets++
	err := s.setErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.next.Set(ctx, token, p)
}

func (s *spyStore) Touch(ctx context.Context, token string, p *session.Payload) (session.TouchResult, error) {
	s.mu.Lock()
	s.touches++
	s.mu.Unlock()
	return s.next.Touch(ctx, token, p)
}

func (s *spyStore) Destroy(ctx context.Context, token string) error {
	s.mu.Lock()
	s.destroys++
	s.mu.Unlock()
	return s.next.Destroy(ctx, token)
}

func (s *spyStore) Sets() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sets
}

func (s *spyStore) Gets() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets
}

type recordingObserver struct {
	mu       sync.Mutex
	events   map[Event]int
	resolves int
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{events: make(map[Event]int)}
}

func (o *recordingObserver) Observe(e Event) {
	o.mu.Lock()
	o.events[e]++
	o.mu.Unlock()
}

func (o *recordingObserver) ObserveResolve(time.Duration) {
	o.mu.Lock()
	o.resolves++
	o.mu.Unlock()
}

func (o *recordingObserver) Count(e Event) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.events[e]
}

type testEnv struct {
	clock *fakeClock
	mr    *miniredis.Miniredis
	store *session.Store
	spy   *spyStore
	obs   *recordingObserver
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	clock := newFakeClock()
	store := session.NewStore(rdb, "session:", 0, session.WithClock(clock.Now))
	return &testEnv{
		clock: clock,
		mr:    mr,
		store: store,
		spy:   &spyStore{next: store},
		obs:   newRecordingObserver(),
	}
}

func (e *testEnv) lifecycle(opts ...Option) *Lifecycle {
	base := []Option{WithClock(e.clock.Now), WithObserver(e.obs)}
	return NewLifecycle(e.spy, time.Hour, append(base, opts...)...)
}

// seed stores a payload whose expiry was issued age ago for a one hour max age.
func (e *testEnv) seed(t *testing.T, token string, age time.Duration, user *session.User) *session.Payload {
	t.Helper()
	p := session.NewWithExpiry(e.clock.Now().Add(time.Hour - age))
	if user != nil {
		p.SetUser(user)
	}
	require.NoError(t, e.store.Set(context.Background(), token, p))
	return p
}

func do(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func bearerRequest(method, path, token string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func testUser(updated time.Time) *session.User {
	return &session.User{
		ID:        "64f0c0ffee",
		Status:    "active",
		FirstName: "Ada",
		Email:     "ada@example.com",
		UpdatedAt: updated,
	}
}
