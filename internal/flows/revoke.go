package flows

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/MrEthical07/goSession/account"
)

type RevokeMetrics struct {
	SessionsRevoked int
}

type RevokeEvents struct {
	SessionsRevoked string
}

// RevokeDeps captures session revocation dependencies.
type RevokeDeps struct {
	Directory    account.Directory
	DestroyToken func(ctx context.Context, token string) error

	Hooks   Hooks
	Metrics RevokeMetrics
	Events  RevokeEvents
	Errors  Errors
}

// RunRevokeUserSessions destroys every session listed on the user record and
// then rewrites the list with whatever could not be destroyed. When current
// belongs to the user it is destroyed through its handle so the in-flight
// request does not persist it again. The store and the record are reconciled
// best-effort; there is no transaction spanning both.
func RunRevokeUserSessions(ctx context.Context, userID string, current SessionHandle, deps RevokeDeps) (int, error) {
	hooks := deps.Hooks.withDefaults()
	if deps.Directory == nil || deps.DestroyToken == nil {
		return 0, deps.Errors.EngineNotReady
	}
	if userID == "" {
		return 0, deps.Errors.BadRequest
	}

	rec, err := deps.Directory.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return 0, deps.Errors.UserNotFound
		}
		return 0, fmt.Errorf("find user: %w", err)
	}

	currentToken := tokenOf(current)
	ownsCurrent := current != nil && current.User() != nil && current.User().ID == userID

	revoked := 0
	var remaining []string
	for _, token := range rec.Sessions {
		var derr error
		if token == currentToken && current != nil {
			derr = current.Destroy(ctx)
			ownsCurrent = false
		} else {
			derr = deps.DestroyToken(ctx, token)
		}
		if derr != nil {
			hooks.Warn("goSession: session revoke failed", derr)
			remaining = append(remaining, token)
			continue
		}
		revoked++
	}
	if ownsCurrent {
		if err := current.Destroy(ctx); err != nil {
			hooks.Warn("goSession: session revoke failed", err)
		} else {
			revoked++
		}
	}

	var result error
	if err := deps.Directory.ReplaceSessions(ctx, userID, remaining); err != nil {
		hooks.Warn("goSession: session list reset failed", err)
		result = deps.Errors.SessionInvalidationFailed
	}
	if len(remaining) > 0 {
		result = deps.Errors.SessionInvalidationFailed
	}

	hooks.MetricInc(deps.Metrics.SessionsRevoked)
	hooks.EmitAudit(ctx, deps.Events.SessionsRevoked, result == nil, userID, currentToken, result, func() map[string]string {
		return map[string]string{"revoked": strconv.Itoa(revoked)}
	})
	return revoked, result
}
