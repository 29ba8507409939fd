// Package account defines the user record consumed by the session flows and the
// Directory contract a document store must satisfy. Implementations live under
// storage/.
package account

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/goSession/session"
)

var (
	// ErrNotFound is returned when no matching user exists.
	ErrNotFound = errors.New("account: user not found")
	// ErrDuplicate is returned by Create when the email is already taken.
	ErrDuplicate = errors.New("account: email already registered")
)

// Status is the lifecycle state of a user record.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusDeleted  Status = "deleted"
)

// Role distinguishes customer accounts from restaurant admins.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Record is the durable user document.
type Record struct {
	ID           string
	Role         Role
	Status       Status
	FirstName    string
	LastName     string
	Email        string
	Avatar       string
	Thumb        string
	Restaurant   string
	PasswordHash string
	// Sessions lists the tokens currently trusted for this user.
	Sessions  []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateInput carries the fields required to register a user.
type CreateInput struct {
	Role         Role
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
}

// Directory is the user store the session flows depend on.
type Directory interface {
	// FindActiveByEmail matches email case-insensitively among active users.
	FindActiveByEmail(ctx context.Context, email string) (*Record, error)
	FindByID(ctx context.Context, id string) (*Record, error)
	// EmailTaken reports whether a non-deleted user already uses email.
	EmailTaken(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, in CreateInput) (*Record, error)
	// ReplaceSessions overwrites the token list without touching UpdatedAt.
	ReplaceSessions(ctx context.Context, id string, tokens []string) error
	AddSession(ctx context.Context, id, token string) error
	// RemoveSession pulls token from the user's list; ErrNotFound when the user
	// does not exist.
	RemoveSession(ctx context.Context, id, token string) error
	// SetPasswordHash replaces the stored credential hash without touching
	// UpdatedAt, so rehashing never marks client projections stale.
	SetPasswordHash(ctx context.Context, id, hash string) error
}

// NormalizeEmail lowercases and trims an address for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Project returns the redacted projection stored in the session. Credential
// hashes and session lists never leave the directory.
func Project(r *Record) *session.User {
	if r == nil {
		return nil
	}
	u := &session.User{
		ID:        r.ID,
		Status:    string(r.Status),
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
		Avatar:    r.Avatar,
		Thumb:     r.Thumb,
		UpdatedAt: r.UpdatedAt,
	}
	if r.Role == RoleAdmin {
		u.Restaurant = r.Restaurant
	}
	return u
}

// Public is the sign-up response shape: the record without secrets.
type Public struct {
	ID        string    `json:"_id"`
	Role      Role      `json:"role,omitempty"`
	Status    Status    `json:"status"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName,omitempty"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Redact converts r to its Public form.
func Redact(r *Record) Public {
	return Public{
		ID:        r.ID,
		Role:      r.Role,
		Status:    r.Status,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}
