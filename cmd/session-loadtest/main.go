// Command session-loadtest drives the session lifecycle middleware against
// Redis and reports how many store reads and writes each request costs.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goSession/middleware"
	"github.com/MrEthical07/goSession/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// countingStore counts calls per store operation.
type countingStore struct {
	next    middleware.RecordStore
	gets    atomic.Int64
	sets    atomic.Int64
	touches atomic.Int64
	deletes atomic.Int64
}

func (c *countingStore) Get(ctx context.Context, token string) (*session.Payload, error) {
	c.gets.Add(1)
	return c.next.Get(ctx, token)
}

func (c *countingStore) Set(ctx context.Context, token string, p *session.Payload) error {
	c.sets.Add(1)
	return c.next.Set(ctx, token, p)
}

func (c *countingStore) Touch(ctx context.Context, token string, p *session.Payload) (session.TouchResult, error) {
	c.touches.Add(1)
	return c.next.Touch(ctx, token, p)
}

func (c *countingStore) Destroy(ctx context.Context, token string) error {
	c.deletes.Add(1)
	return c.next.Destroy(ctx, token)
}

func (c *countingStore) reset() {
	c.gets.Store(0)
	c.sets.Store(0)
	c.touches.Store(0)
	c.deletes.Store(0)
}

func main() {
	var (
		sessions    = flag.Int("sessions", 10000, "number of authenticated sessions to seed")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 100000, "requests per phase")
		mutate      = flag.Float64("mutate", 0.1, "fraction of requests that change the session in the mutating phase")
		touch       = flag.Bool("touch", false, "refresh TTL of unmodified sessions")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", session.DefaultPrefix, "session key prefix")
	)
	flag.Parse()

	if *sessions <= 0 || *concurrency <= 0 || *ops <= 0 || *mutate < 0 || *mutate > 1 {
		fmt.Fprintln(os.Stderr, "sessions, concurrency and ops must be > 0 and mutate within [0,1]")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var client redis.UniversalClient
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		defer mr.Close()
		addr = mr.Addr()
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		fmt.Printf("using redis at %s\n", addr)
	}
	client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	defer func() { _ = client.Close() }()

	store := session.NewStore(client, *prefix, session.DefaultTTL)
	counted := &countingStore{next: store}
	lifecycle := middleware.NewLifecycle(counted, middleware.DefaultMaxAge,
		middleware.WithTouchUnmodified(*touch),
	)

	tokens := make([]string, *sessions)
	fmt.Printf("seeding %d sessions...\n", *sessions)
	startSeed := time.Now()
	for i := range tokens {
		tokens[i] = fmt.Sprintf("load-%d", i)
		p := session.NewWithExpiry(time.Now().Add(middleware.DefaultMaxAge))
		p.SetUser(&session.User{
			ID:        fmt.Sprintf("u%d", i),
			Status:    "active",
			FirstName: "Load",
			Email:     fmt.Sprintf("load%d@example.com", i),
			UpdatedAt: time.Now().UTC(),
		})
		if err := store.Set(ctx, tokens[i], p); err != nil {
			fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
			os.Exit(1)
		}
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	readOnly := runPhase(lifecycle, counted, tokens, *ops, *concurrency, 0)
	mutating := runPhase(lifecycle, counted, tokens, *ops, *concurrency, *mutate)

	fmt.Println("---- results ----")
	printStats("read-only", readOnly)
	printStats(fmt.Sprintf("mutate=%.2f", *mutate), mutating)
}

func runPhase(l *middleware.Lifecycle, counted *countingStore, tokens []string, ops, concurrency int, mutate float64) phaseStats {
	counted.reset()

	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	handler := l.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := middleware.FromContext(r.Context())
		if !ok || !sess.Authenticated() {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.Header.Get("X-Mutate") != "" {
			_ = sess.Set("last_seen", time.Now().UnixNano())
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
				req.Header.Set("Authorization", "Bearer "+tokens[r.Intn(len(tokens))])
				if mutate > 0 && r.Float64() < mutate {
					req.Header.Set("X-Mutate", "1")
				}
				rec := httptest.NewRecorder()

				t0 := time.Now()
				handler.ServeHTTP(rec, req)
				d := time.Since(t0)
				if rec.Code != http.StatusNoContent {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()

	s := computeStats(time.Since(start), latencies, failures)
	s.gets = counted.gets.Load()
	s.sets = counted.sets.Load()
	s.touches = counted.touches.Load()
	return s
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	gets     int64
	sets     int64
	touches  int64
	p50      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	var setsPerReq float64
	if s.ops > 0 {
		setsPerReq = float64(s.sets) / float64(s.ops)
	}
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f GET=%d SET=%d TOUCH=%d set/req=%.3f p50=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.gets,
		s.sets,
		s.touches,
		setsPerReq,
		s.p50.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
