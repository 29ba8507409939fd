package flows

import (
	"context"

	"github.com/MrEthical07/goSession/account"
	"github.com/MrEthical07/goSession/session"
)

// Service is the centralized flow runner built once by the root engine.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Login.Directory != nil
}

func (s Service) Login(ctx context.Context, sess SessionHandle, email, password string) (*LoginResult, error) {
	return RunLogin(ctx, sess, email, password, s.deps.Login)
}

func (s Service) Logout(ctx context.Context, sess SessionHandle) error {
	return RunLogout(ctx, sess, s.deps.Logout)
}

func (s Service) RenewUser(ctx context.Context, sess SessionHandle) (*session.User, error) {
	return RunRenewUser(ctx, sess, s.deps.Renew)
}

func (s Service) SignUp(ctx context.Context, in SignUpInput) (*account.Public, error) {
	return RunSignUp(ctx, in, s.deps.SignUp)
}

func (s Service) RevokeUserSessions(ctx context.Context, userID string, current SessionHandle) (int, error) {
	return RunRevokeUserSessions(ctx, userID, current, s.deps.Revoke)
}
