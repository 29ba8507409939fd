package middleware

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/internal/respond"
	"github.com/stretchr/testify/require"
)

func okHandler(out **Session) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if out != nil {
			*out, _ = FromContext(r.Context())
		}
		w.WriteHeader(http.StatusOK)
	})
}

func requireRejected(t *testing.T, code int, header http.Header, body []byte) {
	t.Helper()
	require.Equal(t, http.StatusUnauthorized, code)
	require.Equal(t, []string{"YES"}, header[DefaultExpiredHeader])

	var env respond.Envelope
	require.NoError(t, json.Unmarshal(body, &env))
	require.Equal(t, respond.StatusError, env.Status)
	require.Equal(t, "UNAUTHORIZED", env.ErrorCode)
	require.Equal(t, "Not authorized", env.Error)
}

func TestGateDefaultPathAcceptsAuthenticatedSession(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "tok", 0, testUser(env.clock.Now()))
	gate := NewGate(env.spy, WithGateObserver(env.obs))

	h := env.lifecycle().Handler(gate.RequireSession()(okHandler(nil)))
	rec := do(h, bearerRequest(http.MethodGet, "/v1/me", "tok"))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, rec.Header()[DefaultExpiredHeader])
}

func TestGateDefaultPathRejectsAnonymousSession(t *testing.T) {
	env := newTestEnv(t)
	gate := NewGate(env.spy, WithGateObserver(env.obs))
	called := false
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true })

	rec := do(env.lifecycle().Handler(gate.RequireSession()(next)), bearerRequest(http.MethodGet, "/v1/me", ""))
	requireRejected(t, rec.Code, rec.Header(), rec.Body.Bytes())
	require.False(t, called)
	require.Equal(t, 1, env.obs.Count(EventGateRejected))
}

func TestGateDefaultPathIgnoresBearerWithoutLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "tok", 0, testUser(env.clock.Now()))
	gate := NewGate(env.spy)

	rec := do(gate.RequireSession()(okHandler(nil)), bearerRequest(http.MethodGet, "/v1/me", "tok"))
	requireRejected(t, rec.Code, rec.Header(), rec.Body.Bytes())
	require.Zero(t, env.spy.Gets())
}

func TestGateDirectBearerResolvesFromStore(t *testing.T) {
	env := newTestEnv(t)
	stored := env.seed(t, "tok", time.Minute, testUser(env.clock.Now()))
	gate := NewGate(env.spy, WithGateObserver(env.obs))
	var got *Session

	rec := do(gate.RequireSessionOrBearer()(okHandler(&got)), bearerRequest(http.MethodGet, "/v1/app/me", "tok"))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got)
	require.True(t, got.Detached())
	require.Equal(t, "ada@example.com", got.User().Email)

	exp, _ := got.Payload().Expiry()
	storedExp, _ := stored.Expiry()
	require.Equal(t, storedExp, exp, "direct path does not renew")
	require.Zero(t, env.spy.Sets())
	require.Equal(t, 1, env.obs.Count(EventDirectBearer))
}

func TestGateDirectBearerRejectsPayloadWithoutUser(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "anon", 0, nil)
	gate := NewGate(env.spy)

	rec := do(gate.RequireSessionOrBearer()(okHandler(nil)), bearerRequest(http.MethodGet, "/v1/app/me", "anon"))
	requireRejected(t, rec.Code, rec.Header(), rec.Body.Bytes())
}

func TestGateDirectBearerRejectsUnknownOrMissingToken(t *testing.T) {
	env := newTestEnv(t)
	gate := NewGate(env.spy)

	rec := do(gate.RequireSessionOrBearer()(okHandler(nil)), bearerRequest(http.MethodGet, "/v1/app/me", "nope"))
	requireRejected(t, rec.Code, rec.Header(), rec.Body.Bytes())

	rec = do(gate.RequireSessionOrBearer()(okHandler(nil)), bearerRequest(http.MethodGet, "/v1/app/me", ""))
	requireRejected(t, rec.Code, rec.Header(), rec.Body.Bytes())
}

func TestGateRequireSelectsPolicyByPrefix(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "tok", 0, testUser(env.clock.Now()))
	gate := NewGate(env.spy, WithDirectBearerPrefix("/v1/app"))

	require.Equal(t, PolicySessionOrBearer, gate.PolicyFor("/v1/app/orders"))
	require.Equal(t, PolicySession, gate.PolicyFor("/v1/me"))

	rec := do(gate.Require()(okHandler(nil)), bearerRequest(http.MethodGet, "/v1/app/orders", "tok"))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(gate.Require()(okHandler(nil)), bearerRequest(http.MethodGet, "/v1/orders", "tok"))
	requireRejected(t, rec.Code, rec.Header(), rec.Body.Bytes())
}

func TestGateCustomExpiredHeader(t *testing.T) {
	gate := NewGate(nil, WithExpiredHeader("X-Session-Expired"))
	rec := do(gate.RequireSession()(okHandler(nil)), bearerRequest(http.MethodGet, "/", ""))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, []string{"YES"}, rec.Header()["X-Session-Expired"])
}
