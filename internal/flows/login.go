package flows

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/MrEthical07/goSession/account"
	"github.com/MrEthical07/goSession/session"
)

// LoginResult is the flow-local login response shape.
type LoginResult struct {
	User  *session.User
	Token string
}

// LoginMetrics carries metric IDs needed by the login flow.
type LoginMetrics struct {
	LoginSuccess     int
	LoginFailure     int
	LoginRateLimited int
}

// LoginEvents carries audit event names used by the login flow.
type LoginEvents struct {
	LoginSuccess     string
	LoginFailure     string
	LoginRateLimited string
}

// LoginDeps captures login dependencies.
type LoginDeps struct {
	Directory account.Directory

	VerifyPassword       func(password, hash string) (bool, error)
	PasswordNeedsUpgrade func(hash string) bool
	HashPassword         func(password string) (string, error)

	// LiveSessions filters tokens down to those still present in the store.
	LiveSessions func(ctx context.Context, tokens []string) ([]string, error)

	CheckLoginRate func(ctx context.Context, email, ip string) error
	FailLoginRate  func(ctx context.Context, email, ip string) error
	ResetLoginRate func(ctx context.Context, email, ip string) error
	ClientIP       func(ctx context.Context) string

	Hooks   Hooks
	Metrics LoginMetrics
	Events  LoginEvents
	Errors  Errors
}

// RunLogin authenticates email/password, reconciles the user's session list
// with the store and attaches the user projection to sess.
func RunLogin(ctx context.Context, sess SessionHandle, email, password string, deps LoginDeps) (*LoginResult, error) {
	hooks := deps.Hooks.withDefaults()
	if sess == nil || deps.Directory == nil || deps.VerifyPassword == nil || deps.LiveSessions == nil {
		return nil, deps.Errors.EngineNotReady
	}
	if deps.ClientIP == nil {
		deps.ClientIP = func(context.Context) string { return "" }
	}

	token := sess.ID()
	email = strings.TrimSpace(email)
	fail := func(userID, reason string, err error) {
		hooks.MetricInc(deps.Metrics.LoginFailure)
		hooks.EmitAudit(ctx, deps.Events.LoginFailure, false, userID, token, err, func() map[string]string {
			return map[string]string{"identifier": email, "reason": reason}
		})
	}

	if email == "" || password == "" {
		fail("", "missing_fields", deps.Errors.BadRequest)
		return nil, deps.Errors.BadRequest
	}

	ip := deps.ClientIP(ctx)
	if deps.CheckLoginRate != nil {
		if err := deps.CheckLoginRate(ctx, email, ip); err != nil {
			return nil, rateLimited(ctx, token, email, "", deps, hooks)
		}
	}

	recordFailure := func(userID, reason string, err error) error {
		if deps.FailLoginRate != nil {
			if rerr := deps.FailLoginRate(ctx, email, ip); rerr != nil {
				return rateLimited(ctx, token, email, userID, deps, hooks)
			}
		}
		fail(userID, reason, err)
		return err
	}

	user, err := deps.Directory.FindActiveByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return nil, recordFailure("", "user_not_found", deps.Errors.UserNotFound)
		}
		fail("", "directory_error", err)
		return nil, fmt.Errorf("find user: %w", err)
	}

	ok, err := deps.VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		return nil, recordFailure(user.ID, "password_mismatch", deps.Errors.InvalidCredentials)
	}

	if deps.ResetLoginRate != nil {
		if err := deps.ResetLoginRate(ctx, email, ip); err != nil {
			hooks.Warn("goSession: login throttle reset failed", err)
		}
	}

	if deps.PasswordNeedsUpgrade != nil && deps.HashPassword != nil && deps.PasswordNeedsUpgrade(user.PasswordHash) {
		if upgraded, err := deps.HashPassword(password); err == nil {
			if err := deps.Directory.SetPasswordHash(ctx, user.ID, upgraded); err != nil {
				hooks.Warn("goSession: password hash upgrade update failed", err)
			}
		} else {
			hooks.Warn("goSession: password hash upgrade generation failed", err)
		}
	}
	password = ""

	// Without a liveness answer the stored list is only appended to.
	var listErr error
	sessions := user.Sessions
	if live, err := deps.LiveSessions(ctx, user.Sessions); err == nil {
		sessions = live
		if !slices.Contains(sessions, token) {
			sessions = append(slices.Clone(sessions), token)
		}
		listErr = deps.Directory.ReplaceSessions(ctx, user.ID, sessions)
	} else {
		hooks.Warn("goSession: session list pruning skipped", err)
		if !slices.Contains(sessions, token) {
			sessions = append(slices.Clone(sessions), token)
		}
		listErr = deps.Directory.AddSession(ctx, user.ID, token)
	}
	if listErr != nil {
		fail(user.ID, "session_list_update", listErr)
		return nil, fmt.Errorf("update session list: %w", listErr)
	}

	projection := account.Project(user)
	sess.SetUser(projection)

	hooks.MetricInc(deps.Metrics.LoginSuccess)
	hooks.EmitAudit(ctx, deps.Events.LoginSuccess, true, user.ID, token, nil, func() map[string]string {
		return map[string]string{"live_sessions": fmt.Sprint(len(sessions))}
	})
	return &LoginResult{User: projection, Token: token}, nil
}

func rateLimited(ctx context.Context, token, email, userID string, deps LoginDeps, hooks Hooks) error {
	hooks.MetricInc(deps.Metrics.LoginRateLimited)
	hooks.EmitAudit(ctx, deps.Events.LoginRateLimited, false, userID, token, deps.Errors.LoginRateLimited, func() map[string]string {
		return map[string]string{"identifier": email}
	})
	return deps.Errors.LoginRateLimited
}
