package flows

import (
	"context"

	"github.com/MrEthical07/goSession/session"
)

// SessionHandle is the request-scoped session the flows mutate. The lifecycle
// middleware's session satisfies it.
type SessionHandle interface {
	ID() string
	User() *session.User
	SetUser(*session.User)
	Destroy(ctx context.Context) error
}

// Hooks carries the observability callbacks shared by every flow. Any nil
// field becomes a no-op.
type Hooks struct {
	MetricInc func(int)
	// EmitAudit receives the raw session token; the Engine fingerprints it
	// before it reaches a sink.
	EmitAudit func(ctx context.Context, event string, success bool, userID, sessionToken string, err error, metadata func() map[string]string)
	Warn      func(msg string, err error)
}

func (h Hooks) withDefaults() Hooks {
	if h.MetricInc == nil {
		h.MetricInc = func(int) {}
	}
	if h.EmitAudit == nil {
		h.EmitAudit = func(context.Context, string, bool, string, string, error, func() map[string]string) {}
	}
	if h.Warn == nil {
		h.Warn = func(string, error) {}
	}
	return h
}

// Errors carries host-level sentinel errors returned by the flows.
type Errors struct {
	EngineNotReady            error
	BadRequest                error
	Unauthorized              error
	InvalidCredentials        error
	UserNotFound              error
	AccountExists             error
	LoginRateLimited          error
	SessionInvalidationFailed error
}

// Deps groups flow dependency sets. The root engine builds this once and
// delegates request methods to the matching flow implementation.
type Deps struct {
	Login  LoginDeps
	Logout LogoutDeps
	Renew  RenewDeps
	SignUp SignUpDeps
	Revoke RevokeDeps
}

func tokenOf(sess SessionHandle) string {
	if sess == nil {
		return ""
	}
	return sess.ID()
}
