package goSession

import (
	"context"
	"net/http"
	"time"

	"github.com/MrEthical07/goSession/account"
	"github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/internal/rate"
	"github.com/MrEthical07/goSession/middleware"
	"github.com/MrEthical07/goSession/password"
	"github.com/MrEthical07/goSession/session"
	"github.com/rs/zerolog"
)

// Engine owns the session store, the HTTP middleware and the account
// operations built on them. It is safe for concurrent use after Build.
type Engine struct {
	config    Config
	store     *session.Store
	lifecycle *middleware.Lifecycle
	renew     *middleware.RenewSignal
	gate      *middleware.Gate
	limiter   *rate.Limiter
	directory account.Directory
	hasher    *password.Hasher
	audit     *audit.Dispatcher
	metrics   *Metrics
	logger    zerolog.Logger
	clock     func() time.Time
	flows     flows.Service
}

// Close flushes pending audit events. It does not close the Redis client or
// the user directory.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// Config returns a copy of the active configuration.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

// Ping checks the record store backend.
func (e *Engine) Ping(ctx context.Context) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}
	return e.store.Ping(ctx)
}

// AuditDropped returns the number of audit events discarded under backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the in-process counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

/*
====================================
HTTP MIDDLEWARE
====================================
*/

// Middleware resolves or mints the request session and persists it, if
// changed, right before the response header is written.
func (e *Engine) Middleware() func(http.Handler) http.Handler {
	return e.lifecycle.Handler
}

// RenewSignal sets the renew header when the client's copy of the user is
// older than the session's. Mount it after Middleware.
func (e *Engine) RenewSignal() func(http.Handler) http.Handler {
	return e.renew.Handler
}

// ClearRenewSignal removes the renew header from w, for handlers that return
// a fresh user.
func (e *Engine) ClearRenewSignal(w http.ResponseWriter) {
	e.renew.Clear(w)
}

// RequireUser rejects requests whose session carries no user.
func (e *Engine) RequireUser() func(http.Handler) http.Handler {
	return e.gate.RequireSession()
}

// RequireUserOrBearer additionally accepts a bearer token resolved directly
// against the store. Sessions attached this way are never renewed or persisted.
func (e *Engine) RequireUserOrBearer() func(http.Handler) http.Handler {
	return e.gate.RequireSessionOrBearer()
}

// Require selects RequireUserOrBearer for paths under the direct-bearer prefix
// and RequireUser otherwise.
func (e *Engine) Require() func(http.Handler) http.Handler {
	return e.gate.Require()
}

// DirectBearerPrefix returns the configured direct-bearer route prefix.
func (e *Engine) DirectBearerPrefix() string {
	return e.config.Gate.DirectBearerPrefix
}
