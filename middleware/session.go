package middleware

import (
	"context"
	"sync/atomic"

	"github.com/MrEthical07/goSession/internal"
	"github.com/MrEthical07/goSession/session"
)

// Session is the request-scoped handle handed to downstream handlers. Its
// payload is a private copy fetched for this request; writes become durable
// only if the lifecycle persists them at finalize.
//
// Finalize runs when the handler first writes the response (WriteHeader,
// Write or Flush), so every mutation must happen before that point. Later
// changes are dropped and only logged at debug level.
type Session struct {
	id      string
	payload *session.Payload
	store   RecordStore

	originalHash session.Digest
	finalHash    session.Digest
	minted       bool
	renewed      bool
	// detached sessions come from the direct-bearer gate and are never persisted.
	detached  bool
	destroyed atomic.Bool
	finalized atomic.Bool
}

// NewDetached wraps an already-resolved payload that must not be written back.
func NewDetached(token string, p *session.Payload, store RecordStore) *Session {
	return &Session{id: token, payload: p, store: store, detached: true}
}

// ID returns the session token.
func (s *Session) ID() string { return s.id }

// Fingerprint returns a log-safe tag for the session token.
func (s *Session) Fingerprint() string { return internal.Fingerprint(s.id) }

// Payload returns the mutable payload.
func (s *Session) Payload() *session.Payload { return s.payload }

// User returns a copy of the attached user projection, or nil.
func (s *Session) User() *session.User { return s.payload.User() }

// SetUser attaches or replaces the user projection.
func (s *Session) SetUser(u *session.User) { s.payload.SetUser(u) }

// Authenticated reports whether a user projection is attached.
func (s *Session) Authenticated() bool { return s.payload.Authenticated() }

// Get reads an extension value.
func (s *Session) Get(key string) (any, bool) { return s.payload.Get(key) }

// Set writes an extension value.
func (s *Session) Set(key string, v any) error { return s.payload.Set(key, v) }

// Delete removes an extension value.
func (s *Session) Delete(key string) { s.payload.Delete(key) }

// Minted reports whether the token was generated during this request.
func (s *Session) Minted() bool { return s.minted }

// Renewed reports whether sliding renewal moved the expiry during this request.
func (s *Session) Renewed() bool { return s.renewed }

// Detached reports whether the session was attached by the direct-bearer gate.
func (s *Session) Detached() bool { return s.detached }

// Destroyed reports whether Destroy was called.
func (s *Session) Destroyed() bool { return s.destroyed.Load() }

// Destroy deletes the session from the store and suppresses persistence for
// the rest of this request. The session counts as destroyed even when the
// store delete fails; the error is returned for logging.
func (s *Session) Destroy(ctx context.Context) error {
	s.destroyed.Store(true)
	if s.store == nil || s.id == "" {
		return nil
	}
	return s.store.Destroy(ctx, s.id)
}
