package goSession

import (
	"context"
	"errors"

	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/password"
)

func (e *Engine) initFlows() {
	hooks := flows.Hooks{
		MetricInc: func(id int) { e.metricInc(MetricID(id)) },
		EmitAudit: e.emitAudit,
		Warn: func(msg string, err error) {
			e.logger.Warn().Err(err).Msg(msg)
		},
	}
	errs := flows.Errors{
		EngineNotReady:            ErrEngineNotReady,
		BadRequest:                ErrBadRequest,
		Unauthorized:              ErrUnauthorized,
		InvalidCredentials:        ErrInvalidCredentials,
		UserNotFound:              ErrUserNotFound,
		AccountExists:             ErrAccountExists,
		LoginRateLimited:          ErrLoginRateLimited,
		SessionInvalidationFailed: ErrSessionInvalidationFailed,
	}

	login := flows.LoginDeps{
		Directory:      e.directory,
		VerifyPassword: e.hasher.Verify,
		HashPassword:   e.hasher.Hash,
		LiveSessions:   e.store.Live,
		CheckLoginRate: e.limiter.Check,
		FailLoginRate:  e.limiter.Fail,
		ResetLoginRate: e.limiter.Reset,
		ClientIP:       clientIPFromContext,
		Hooks:          hooks,
		Metrics: flows.LoginMetrics{
			LoginSuccess:     int(MetricLoginSuccess),
			LoginFailure:     int(MetricLoginFailure),
			LoginRateLimited: int(MetricLoginRateLimited),
		},
		Events: flows.LoginEvents{
			LoginSuccess:     auditEventLoginSuccess,
			LoginFailure:     auditEventLoginFailure,
			LoginRateLimited: auditEventLoginRateLimited,
		},
		Errors: errs,
	}
	if e.config.Password.UpgradeOnLogin {
		login.PasswordNeedsUpgrade = e.hasher.NeedsUpgrade
	}

	e.flows = flows.New(flows.Deps{
		Login: login,
		Logout: flows.LogoutDeps{
			Directory: e.directory,
			Hooks:     hooks,
			Metrics:   flows.LogoutMetrics{Logout: int(MetricLogout)},
			Events:    flows.LogoutEvents{Logout: auditEventLogout},
			Errors:    errs,
		},
		Renew: flows.RenewDeps{
			Directory: e.directory,
			Hooks:     hooks,
			Metrics:   flows.RenewMetrics{UserRenewed: int(MetricUserRenewed)},
			Events:    flows.RenewEvents{UserRenewed: auditEventRenewUser},
			Errors:    errs,
		},
		SignUp: flows.SignUpDeps{
			Directory:    e.directory,
			HashPassword: e.hasher.Hash,
			InvalidPassword: func(err error) bool {
				return errors.Is(err, password.ErrTooShort) || errors.Is(err, password.ErrTooLong)
			},
			Hooks: hooks,
			Metrics: flows.SignUpMetrics{
				SignUpSuccess:   int(MetricSignUpSuccess),
				SignUpDuplicate: int(MetricSignUpDuplicate),
			},
			Events: flows.SignUpEvents{
				SignUpSuccess: auditEventSignUpSuccess,
				SignUpFailure: auditEventSignUpFailure,
			},
			Errors: errs,
		},
		Revoke: flows.RevokeDeps{
			Directory:    e.directory,
			DestroyToken: e.store.Destroy,
			Hooks:        hooks,
			Metrics:      flows.RevokeMetrics{SessionsRevoked: int(MetricSessionsRevoked)},
			Events:       flows.RevokeEvents{SessionsRevoked: auditEventSessionsRevoked},
			Errors:       errs,
		},
	})
}

// Login verifies email and password, records the session token on the user
// and attaches the user projection to sess. The record is persisted by the
// lifecycle middleware when the response is written.
func (e *Engine) Login(ctx context.Context, sess *Session, email, password string) (*LoginResult, error) {
	if e == nil || !e.flows.Initialized() {
		return nil, ErrEngineNotReady
	}
	if sess == nil {
		return nil, ErrNoSession
	}
	res, err := e.flows.Login(ctx, sess, email, password)
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: res.User, Token: res.Token}, nil
}

// Logout removes the session token from its user and destroys the session.
// The session is destroyed even when an error is returned.
func (e *Engine) Logout(ctx context.Context, sess *Session) error {
	if e == nil || !e.flows.Initialized() {
		return ErrEngineNotReady
	}
	if sess == nil {
		return ErrNoSession
	}
	return e.flows.Logout(ctx, sess)
}

// RenewUser replaces the session's user projection with the current directory
// record and returns it.
func (e *Engine) RenewUser(ctx context.Context, sess *Session) (*User, error) {
	if e == nil || !e.flows.Initialized() {
		return nil, ErrEngineNotReady
	}
	if sess == nil {
		return nil, ErrNoSession
	}
	return e.flows.RenewUser(ctx, sess)
}

// SignUp registers a user. It does not log the user in.
func (e *Engine) SignUp(ctx context.Context, in SignUpInput) (*PublicUser, error) {
	if e == nil || !e.flows.Initialized() {
		return nil, ErrEngineNotReady
	}
	return e.flows.SignUp(ctx, in)
}

// RevokeUserSessions destroys every session recorded for userID and returns
// how many were destroyed. current may be nil; when it belongs to userID it is
// destroyed through its handle so the request does not write it back.
func (e *Engine) RevokeUserSessions(ctx context.Context, userID string, current *Session) (int, error) {
	if e == nil || !e.flows.Initialized() {
		return 0, ErrEngineNotReady
	}
	var handle flows.SessionHandle
	if current != nil {
		handle = current
	}
	return e.flows.RevokeUserSessions(ctx, userID, handle)
}
