package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/MrEthical07/goSession/internal"
	"github.com/MrEthical07/goSession/internal/respond"
	"github.com/MrEthical07/goSession/session"
	"github.com/rs/zerolog"
)

const (
	// DefaultMaxAge is the session lifetime granted at mint and at each renewal.
	DefaultMaxAge = 15 * 24 * time.Hour
	// DefaultRenewThrottle is the minimum age of an expiry before sliding renewal rewrites it.
	DefaultRenewThrottle = 5 * time.Second
)

// Lifecycle resolves, renews and conditionally persists the session of every
// request it wraps.
type Lifecycle struct {
	store           RecordStore
	maxAge          time.Duration
	renewThrottle   time.Duration
	touchUnmodified bool
	logger          zerolog.Logger
	observer        Observer
	now             func() time.Time
	newToken        func() (string, error)
}

// Option customizes a [Lifecycle].
type Option func(*Lifecycle)

// WithRenewThrottle overrides DefaultRenewThrottle.
func WithRenewThrottle(d time.Duration) Option {
	return func(l *Lifecycle) {
		if d >= 0 {
			l.renewThrottle = d
		}
	}
}

// WithLogger sets the fallback logger used when the request carries none.
func WithLogger(logger zerolog.Logger) Option {
	return func(l *Lifecycle) { l.logger = logger }
}

// WithObserver reports lifecycle events to o.
func WithObserver(o Observer) Option {
	return func(l *Lifecycle) {
		if o != nil {
			l.observer = o
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Lifecycle) {
		if now != nil {
			l.now = now
		}
	}
}

// WithTokenSource overrides the token generator.
func WithTokenSource(gen func() (string, error)) Option {
	return func(l *Lifecycle) {
		if gen != nil {
			l.newToken = gen
		}
	}
}

// WithTouchUnmodified makes finalize refresh the store TTL of stored sessions
// whose content did not change.
func WithTouchUnmodified(enabled bool) Option {
	return func(l *Lifecycle) { l.touchUnmodified = enabled }
}

// NewLifecycle builds the lifecycle middleware over store. A non-positive
// maxAge selects DefaultMaxAge.
func NewLifecycle(store RecordStore, maxAge time.Duration, opts ...Option) *Lifecycle {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	l := &Lifecycle{
		store:         store,
		maxAge:        maxAge,
		renewThrottle: DefaultRenewThrottle,
		logger:        zerolog.Nop(),
		observer:      nopObserver{},
		now:           time.Now,
		newToken:      internal.NewSessionToken,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Handler wraps next. A request that already carries a session passes through
// untouched; otherwise the session is resolved before next runs and finalized
// right before the response header is written.
func (l *Lifecycle) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := FromContext(r.Context()); ok {
			next.ServeHTTP(w, r)
			return
		}

		sess, err := l.Resolve(r.Context(), r)
		if err != nil {
			loggerFor(r.Context(), &l.logger).Error().Err(err).Msg("session: cannot mint token")
			respond.Error(w, http.StatusInternalServerError)
			return
		}

		ctx := WithSession(r.Context(), sess)
		fw := newFinalizingWriter(w, func() { l.Finalize(ctx, sess) })
		next.ServeHTTP(fw, r.WithContext(ctx))
		fw.finish()
		l.checkLateWrites(ctx, sess)
	})
}

// Resolve maps the request's bearer token to a session, minting a new one when
// the token is absent, unknown, or the lookup fails. The only error is token
// generation failure.
func (l *Lifecycle) Resolve(ctx context.Context, r *http.Request) (*Session, error) {
	start := l.now()
	defer func() { l.observer.ObserveResolve(l.now().Sub(start)) }()
	log := loggerFor(ctx, &l.logger)

	var (
		token   string
		payload *session.Payload
	)
	if t, ok := bearerToken(r.Header.Get("Authorization")); ok {
		p, err := l.store.Get(ctx, t)
		switch {
		case err == nil:
			token, payload = t, p
		case errors.Is(err, session.ErrNotFound):
			l.observer.Observe(EventLookupMiss)
			log.Debug().Str("session", internal.Fingerprint(t)).Err(err).Msg("session: lookup miss")
		default:
			l.observer.Observe(EventLookupError)
			log.Warn().Str("session", internal.Fingerprint(t)).Err(err).Msg("session: lookup failed, minting new session")
		}
	}

	if payload == nil {
		return l.mint(start)
	}

	sess := &Session{id: token, payload: payload, store: l.store}
	// Snapshot before renewal so a renewed expiry is written back at finalize.
	digest, err := session.Hash(payload)
	if err != nil {
		return nil, err
	}
	sess.originalHash = digest
	sess.renewed = l.renew(payload, start)
	if sess.renewed {
		l.observer.Observe(EventRenewed)
	}
	l.observer.Observe(EventResolved)
	return sess, nil
}

func (l *Lifecycle) mint(now time.Time) (*Session, error) {
	token, err := l.newToken()
	if err != nil {
		return nil, err
	}
	payload := session.NewWithExpiry(now.Add(l.maxAge))
	digest, err := session.Hash(payload)
	if err != nil {
		return nil, err
	}
	l.observer.Observe(EventMinted)
	return &Session{
		id:           token,
		payload:      payload,
		store:        l.store,
		originalHash: digest,
		minted:       true,
	}, nil
}

// renew applies sliding renewal: an expiry issued more than renewThrottle ago
// (or a missing one) is pushed to now + maxAge.
func (l *Lifecycle) renew(p *session.Payload, now time.Time) bool {
	exp, ok := p.Expiry()
	if ok {
		issued := exp.Add(-l.maxAge)
		if now.Sub(issued) <= l.renewThrottle {
			return false
		}
	}
	p.SetExpiry(now.Add(l.maxAge))
	return true
}

// Finalize persists sess when its content hash differs from the snapshot taken
// at resolve. Destroyed and detached sessions are never written, and a request
// whose context is already cancelled persists nothing. Failures are logged and
// reported to the observer, never returned. Finalize runs at most once.
func (l *Lifecycle) Finalize(ctx context.Context, sess *Session) {
	if sess == nil || sess.detached || !sess.finalized.CompareAndSwap(false, true) {
		return
	}
	log := loggerFor(ctx, &l.logger)

	if sess.Destroyed() {
		l.observer.Observe(EventDestroyed)
		return
	}
	if err := ctx.Err(); err != nil {
		l.observer.Observe(EventPersistSkipped)
		log.Debug().Str("session", sess.Fingerprint()).Err(err).Msg("session: request aborted before finalize")
		return
	}

	current, err := session.Hash(sess.payload)
	if err != nil {
		l.observer.Observe(EventPersistFailed)
		log.Error().Str("session", sess.Fingerprint()).Err(err).Msg("session: payload not serializable")
		return
	}
	sess.finalHash = current

	if current == sess.originalHash {
		l.observer.Observe(EventPersistSkipped)
		if l.touchUnmodified && !sess.minted {
			l.touch(ctx, sess, log)
		}
		return
	}

	if err := l.store.Set(ctx, sess.id, sess.payload); err != nil {
		l.observer.Observe(EventPersistFailed)
		log.Error().Str("session", sess.Fingerprint()).Err(err).Msg("session: persist failed")
		return
	}
	sess.originalHash = current
	l.observer.Observe(EventPersisted)
}

// checkLateWrites reports payload changes made after Finalize ran. They are
// never persisted.
func (l *Lifecycle) checkLateWrites(ctx context.Context, sess *Session) {
	if sess.finalHash.IsZero() || sess.Destroyed() {
		return
	}
	current, err := session.Hash(sess.payload)
	if err != nil || current == sess.finalHash {
		return
	}
	loggerFor(ctx, &l.logger).Debug().
		Str("session", sess.Fingerprint()).
		Str("digest", current.String()).
		Msg("session: payload changed after the response was committed; change not persisted")
}

func (l *Lifecycle) touch(ctx context.Context, sess *Session, log *zerolog.Logger) {
	res, err := l.store.Touch(ctx, sess.id, sess.payload)
	if err != nil {
		log.Warn().Str("session", sess.Fingerprint()).Err(err).Msg("session: touch failed")
		return
	}
	if res == session.TouchExpired {
		log.Debug().Str("session", sess.Fingerprint()).Msg("session: touched key already expired")
		return
	}
	l.observer.Observe(EventTouched)
}
