package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/goSession/account"
)

type LogoutMetrics struct {
	Logout int
}

type LogoutEvents struct {
	Logout string
}

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	Directory account.Directory

	Hooks   Hooks
	Metrics LogoutMetrics
	Events  LogoutEvents
	Errors  Errors
}

// RunLogout detaches the current token from its user and destroys the session.
// The session is destroyed even when the user no longer exists. Anonymous
// sessions are simply destroyed.
func RunLogout(ctx context.Context, sess SessionHandle, deps LogoutDeps) error {
	hooks := deps.Hooks.withDefaults()
	if sess == nil || deps.Directory == nil {
		return deps.Errors.EngineNotReady
	}

	token := sess.ID()
	var userID string
	var result error
	if u := sess.User(); u != nil {
		userID = u.ID
		if err := deps.Directory.RemoveSession(ctx, userID, token); err != nil {
			if errors.Is(err, account.ErrNotFound) {
				result = deps.Errors.UserNotFound
			} else {
				hooks.Warn("goSession: logout session list update failed", err)
			}
		}
	}

	if err := sess.Destroy(ctx); err != nil {
		hooks.Warn("goSession: logout store destroy failed", err)
	}

	hooks.MetricInc(deps.Metrics.Logout)
	hooks.EmitAudit(ctx, deps.Events.Logout, result == nil, userID, token, result, nil)
	return result
}
