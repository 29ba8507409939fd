package flows

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/goSession/account"
	"github.com/MrEthical07/goSession/session"
)

type RenewMetrics struct {
	UserRenewed int
}

type RenewEvents struct {
	UserRenewed string
}

// RenewDeps captures renew-user dependencies.
type RenewDeps struct {
	Directory account.Directory

	Hooks   Hooks
	Metrics RenewMetrics
	Events  RenewEvents
	Errors  Errors
}

// RunRenewUser refreshes the session's user projection from the directory.
func RunRenewUser(ctx context.Context, sess SessionHandle, deps RenewDeps) (*session.User, error) {
	hooks := deps.Hooks.withDefaults()
	if sess == nil || deps.Directory == nil {
		return nil, deps.Errors.EngineNotReady
	}

	current := sess.User()
	if current == nil || current.ID == "" {
		return nil, deps.Errors.Unauthorized
	}

	rec, err := deps.Directory.FindByID(ctx, current.ID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			hooks.EmitAudit(ctx, deps.Events.UserRenewed, false, current.ID, sess.ID(), deps.Errors.UserNotFound, nil)
			return nil, deps.Errors.UserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	projection := account.Project(rec)
	sess.SetUser(projection)

	hooks.MetricInc(deps.Metrics.UserRenewed)
	hooks.EmitAudit(ctx, deps.Events.UserRenewed, true, rec.ID, sess.ID(), nil, nil)
	return projection, nil
}
