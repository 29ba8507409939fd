package goSession

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goSession/internal"
	"github.com/MrEthical07/goSession/internal/audit"
)

const (
	auditEventLoginSuccess     = "login_success"
	auditEventLoginFailure     = "login_failure"
	auditEventLoginRateLimited = "login_rate_limited"
	auditEventLogout           = "logout"
	auditEventRenewUser        = "renew_user"
	auditEventSignUpSuccess    = "signup_success"
	auditEventSignUpFailure    = "signup_failure"
	auditEventSessionsRevoked  = "sessions_revoked"
)

// AuditErrorCode is the stable error label written to audit events.
type AuditErrorCode string

const (
	auditErrUnauthorized        AuditErrorCode = "unauthorized"
	auditErrInvalidCredentials  AuditErrorCode = "invalid_credentials"
	auditErrRateLimited         AuditErrorCode = "rate_limited"
	auditErrUserNotFound        AuditErrorCode = "user_not_found"
	auditErrBadRequest          AuditErrorCode = "bad_request"
	auditErrDuplicate           AuditErrorCode = "duplicate"
	auditErrSessionInvalidation AuditErrorCode = "session_invalidation_failed"
	auditErrInternal            AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	sessionToken string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := audit.Event{
		ID:        internal.NewRequestID(),
		Timestamp: e.now().UTC(),
		EventType: eventType,
		UserID:    userID,
		SessionID: internal.Fingerprint(sessionToken),
		RequestID: requestIDFromContext(ctx),
		IP:        clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if err != nil {
		event.Status = StatusCode(err)
		event.Error = string(auditErrorCode(err))
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnauthorized):
		return auditErrUnauthorized
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrLoginRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrUserNotFound):
		return auditErrUserNotFound
	case errors.Is(err, ErrBadRequest):
		return auditErrBadRequest
	case errors.Is(err, ErrAccountExists):
		return auditErrDuplicate
	case errors.Is(err, ErrSessionInvalidationFailed):
		return auditErrSessionInvalidation
	default:
		return auditErrInternal
	}
}

func (e *Engine) now() time.Time {
	if e.clock != nil {
		return e.clock()
	}
	return time.Now()
}
