package flows

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MrEthical07/goSession/account"
)

// SignUpInput is the registration request.
type SignUpInput struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type SignUpMetrics struct {
	SignUpSuccess   int
	SignUpDuplicate int
}

type SignUpEvents struct {
	SignUpSuccess string
	SignUpFailure string
}

// SignUpDeps captures sign-up dependencies.
type SignUpDeps struct {
	Directory    account.Directory
	HashPassword func(password string) (string, error)
	// InvalidPassword reports whether a HashPassword error is a policy
	// rejection rather than an internal failure.
	InvalidPassword func(error) bool

	Hooks   Hooks
	Metrics SignUpMetrics
	Events  SignUpEvents
	Errors  Errors
}

// RunSignUp registers a user and returns the record without secrets.
func RunSignUp(ctx context.Context, in SignUpInput, deps SignUpDeps) (*account.Public, error) {
	hooks := deps.Hooks.withDefaults()
	if deps.Directory == nil || deps.HashPassword == nil {
		return nil, deps.Errors.EngineNotReady
	}
	if deps.InvalidPassword == nil {
		deps.InvalidPassword = func(error) bool { return false }
	}

	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = account.NormalizeEmail(in.Email)
	fail := func(reason string, err error) {
		hooks.EmitAudit(ctx, deps.Events.SignUpFailure, false, "", "", err, func() map[string]string {
			return map[string]string{"identifier": in.Email, "reason": reason}
		})
	}

	if in.FirstName == "" || in.Email == "" || in.Password == "" {
		fail("missing_fields", deps.Errors.BadRequest)
		return nil, deps.Errors.BadRequest
	}

	taken, err := deps.Directory.EmailTaken(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if taken {
		hooks.MetricInc(deps.Metrics.SignUpDuplicate)
		fail("duplicate", deps.Errors.AccountExists)
		return nil, deps.Errors.AccountExists
	}

	hash, err := deps.HashPassword(in.Password)
	in.Password = ""
	if err != nil {
		if deps.InvalidPassword(err) {
			fail("password_policy", err)
			return nil, fmt.Errorf("%w: %v", deps.Errors.BadRequest, err)
		}
		return nil, fmt.Errorf("hash password: %w", err)
	}

	rec, err := deps.Directory.Create(ctx, account.CreateInput{
		Role:         account.RoleUser,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, account.ErrDuplicate) {
			hooks.MetricInc(deps.Metrics.SignUpDuplicate)
			fail("duplicate", deps.Errors.AccountExists)
			return nil, deps.Errors.AccountExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	hooks.MetricInc(deps.Metrics.SignUpSuccess)
	hooks.EmitAudit(ctx, deps.Events.SignUpSuccess, true, rec.ID, "", nil, nil)
	pub := account.Redact(rec)
	return &pub, nil
}
