package session

import (
	"errors"
	"time"
)

// Reserved payload keys.
const (
	ExpiryKey = "_expiry"
	UserKey   = "user"
)

// ErrReservedKey is returned when an extension write targets a reserved key.
var ErrReservedKey = errors.New("session: reserved payload key")

// User is the redacted user projection attached to an authenticated session.
type User struct {
	ID         string    `json:"_id"`
	Status     string    `json:"status,omitempty"`
	FirstName  string    `json:"firstName,omitempty"`
	LastName   string    `json:"lastName,omitempty"`
	Email      string    `json:"email,omitempty"`
	Avatar     string    `json:"avatar,omitempty"`
	Thumb      string    `json:"thumb,omitempty"`
	Restaurant string    `json:"restaurant,omitempty"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Clone returns a copy of u, or nil when u is nil.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

// Payload is the state associated with a session token. It always carries an
// expiry once resolved, optionally a [User], and an open extension map whose
// values must be JSON-serializable.
//
// User fields this package does not model, and a stored "user" value that is
// not a valid projection, are carried through unchanged so records written by
// other services survive a rewrite.
//
// A Payload is request-scoped and is not safe for concurrent use.
type Payload struct {
	expiry time.Time
	user   *User
	values map[string]any

	// userExtra holds unknown keys of the stored user object.
	userExtra map[string]any
	// rawUser is the stored "user" value when it did not decode as a User.
	rawUser any
}

// New returns an empty payload with no expiry and no user.
func New() *Payload {
	return &Payload{values: make(map[string]any)}
}

// NewWithExpiry returns an empty payload expiring at exp.
func NewWithExpiry(exp time.Time) *Payload {
	p := New()
	p.SetExpiry(exp)
	return p
}

// Expiry returns the absolute expiry and whether one is set.
func (p *Payload) Expiry() (time.Time, bool) {
	if p == nil || p.expiry.IsZero() {
		return time.Time{}, false
	}
	return p.expiry, true
}

// SetExpiry sets the absolute expiry, truncated to the millisecond precision
// used on the wire.
func (p *Payload) SetExpiry(exp time.Time) {
	p.expiry = exp.UTC().Truncate(time.Millisecond)
}

// User returns a copy of the attached user projection, or nil.
func (p *Payload) User() *User {
	if p == nil {
		return nil
	}
	return p.user.Clone()
}

// SetUser replaces the user projection. A nil user detaches it. Unknown stored
// fields are kept only when u is the same user as before.
func (p *Payload) SetUser(u *User) {
	if u != nil {
		u = u.Clone()
		u.UpdatedAt = u.UpdatedAt.UTC().Truncate(time.Millisecond)
	}
	if u == nil || p.user == nil || p.user.ID != u.ID {
		p.userExtra = nil
	}
	p.rawUser = nil
	p.user = u
}

// Authenticated reports whether a user projection with an id is attached.
func (p *Payload) Authenticated() bool {
	return p != nil && p.user != nil && p.user.ID != ""
}

// Get returns the extension value stored under key.
func (p *Payload) Get(key string) (any, bool) {
	if p == nil {
		return nil, false
	}
	v, ok := p.values[key]
	return v, ok
}

// Set stores an extension value. Values must survive encoding/json.
func (p *Payload) Set(key string, value any) error {
	if key == ExpiryKey || key == UserKey {
		return ErrReservedKey
	}
	if p.values == nil {
		p.values = make(map[string]any)
	}
	p.values[key] = value
	return nil
}

// Delete removes an extension value. Deleting a missing key is a no-op.
func (p *Payload) Delete(key string) {
	delete(p.values, key)
}
