package middleware

import (
	"net/http"
	"strings"

	"github.com/MrEthical07/goSession/internal"
	"github.com/MrEthical07/goSession/internal/respond"
	"github.com/rs/zerolog"
)

// DefaultExpiredHeader is set on every gate rejection.
const DefaultExpiredHeader = "SESSION_EXPIRED"

// DefaultDirectBearerPrefix is the route prefix served by the direct-bearer path.
const DefaultDirectBearerPrefix = "/v1/app"

// Policy selects how the [Gate] authenticates a request.
type Policy uint8

const (
	// PolicySession requires the lifecycle session to carry a user.
	PolicySession Policy = iota
	// PolicySessionOrBearer additionally accepts a bearer token resolved
	// directly against the store, without renewal or write-back.
	PolicySessionOrBearer
)

// Gate is the per-route authentication guard.
type Gate struct {
	store         RecordStore
	directPrefix  string
	expiredHeader string
	logger        zerolog.Logger
	observer      Observer
}

// GateOption customizes a [Gate].
type GateOption func(*Gate)

// WithDirectBearerPrefix sets the route prefix on which [Gate.Require] accepts
// direct bearer tokens. An empty prefix disables the direct path for Require.
func WithDirectBearerPrefix(prefix string) GateOption {
	return func(g *Gate) { g.directPrefix = prefix }
}

// WithExpiredHeader overrides DefaultExpiredHeader.
func WithExpiredHeader(name string) GateOption {
	return func(g *Gate) {
		if name != "" {
			g.expiredHeader = name
		}
	}
}

// WithGateLogger sets the fallback logger.
func WithGateLogger(logger zerolog.Logger) GateOption {
	return func(g *Gate) { g.logger = logger }
}

// WithGateObserver reports gate events to o.
func WithGateObserver(o Observer) GateOption {
	return func(g *Gate) {
		if o != nil {
			g.observer = o
		}
	}
}

// NewGate builds a gate. store serves the direct-bearer path and may be nil
// when only PolicySession is used.
func NewGate(store RecordStore, opts ...GateOption) *Gate {
	g := &Gate{
		store:         store,
		directPrefix:  DefaultDirectBearerPrefix,
		expiredHeader: DefaultExpiredHeader,
		logger:        zerolog.Nop(),
		observer:      nopObserver{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Guard returns middleware enforcing policy on every request.
func (g *Gate) Guard(policy Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			g.serve(w, r, next, policy)
		})
	}
}

// RequireSession is Guard(PolicySession).
func (g *Gate) RequireSession() func(http.Handler) http.Handler {
	return g.Guard(PolicySession)
}

// RequireSessionOrBearer is Guard(PolicySessionOrBearer).
func (g *Gate) RequireSessionOrBearer() func(http.Handler) http.Handler {
	return g.Guard(PolicySessionOrBearer)
}

// Require picks the policy per request: PolicySessionOrBearer under the
// direct-bearer prefix, PolicySession elsewhere.
func (g *Gate) Require() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			g.serve(w, r, next, g.PolicyFor(r.URL.Path))
		})
	}
}

// PolicyFor returns the policy Require applies to path.
func (g *Gate) PolicyFor(path string) Policy {
	if g.directPrefix != "" && strings.HasPrefix(path, g.directPrefix) {
		return PolicySessionOrBearer
	}
	return PolicySession
}

func (g *Gate) serve(w http.ResponseWriter, r *http.Request, next http.Handler, policy Policy) {
	if sess, ok := FromContext(r.Context()); ok && sess.Authenticated() {
		next.ServeHTTP(w, r)
		return
	}
	if policy != PolicySessionOrBearer || g.store == nil {
		g.reject(w, r, "no authenticated session")
		return
	}

	token, ok := bearerToken(r.Header.Get("Authorization"))
	if !ok {
		g.reject(w, r, "missing bearer token")
		return
	}
	payload, err := g.store.Get(r.Context(), token)
	if err != nil {
		loggerFor(r.Context(), &g.logger).Debug().
			Str("session", internal.Fingerprint(token)).Err(err).Msg("session: direct lookup failed")
		g.reject(w, r, "bearer token not found")
		return
	}
	if !payload.Authenticated() {
		g.reject(w, r, "bearer session has no user")
		return
	}

	g.observer.Observe(EventDirectBearer)
	ctx := WithSession(r.Context(), NewDetached(token, payload, g.store))
	next.ServeHTTP(w, r.WithContext(ctx))
}

func (g *Gate) reject(w http.ResponseWriter, r *http.Request, reason string) {
	g.observer.Observe(EventGateRejected)
	loggerFor(r.Context(), &g.logger).Debug().Str("path", r.URL.Path).Str("reason", reason).Msg("session: rejected")
	respond.SetRaw(w.Header(), g.expiredHeader, SignalValue)
	respond.Error(w, http.StatusUnauthorized)
}
