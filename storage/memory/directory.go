// Package memory provides an in-process account.Directory for tests and the
// sessiond dev mode.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/MrEthical07/goSession/account"
	"github.com/google/uuid"
)

// Directory is a mutex-guarded map of user records.
type Directory struct {
	mu    sync.RWMutex
	users map[string]*account.Record
	now   func() time.Time
}

// NewDirectory returns an empty directory.
func NewDirectory() *Directory {
	return &Directory{users: make(map[string]*account.Record), now: time.Now}
}

var _ account.Directory = (*Directory)(nil)

// Put inserts or replaces a record, assigning an id when empty. It returns the
// stored copy.
func (d *Directory) Put(r account.Record) *account.Record {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	stored := clone(&r)
	d.users[r.ID] = stored
	return clone(stored)
}

func (d *Directory) FindActiveByEmail(_ context.Context, email string) (*account.Record, error) {
	email = account.NormalizeEmail(email)
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, r := range d.users {
		if r.Status == account.StatusActive && account.NormalizeEmail(r.Email) == email {
			return clone(r), nil
		}
	}
	return nil, account.ErrNotFound
}

func (d *Directory) FindByID(_ context.Context, id string) (*account.Record, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	r, ok := d.users[id]
	if !ok {
		return nil, account.ErrNotFound
	}
	return clone(r), nil
}

func (d *Directory) EmailTaken(_ context.Context, email string) (bool, error) {
	email = account.NormalizeEmail(email)
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, r := range d.users {
		if r.Status != account.StatusDeleted && account.NormalizeEmail(r.Email) == email {
			return true, nil
		}
	}
	return false, nil
}

func (d *Directory) Create(ctx context.Context, in account.CreateInput) (*account.Record, error) {
	if taken, _ := d.EmailTaken(ctx, in.Email); taken {
		return nil, account.ErrDuplicate
	}
	now := d.now().UTC()
	role := in.Role
	if role == "" {
		role = account.RoleUser
	}
	return d.Put(account.Record{
		Role:         role,
		Status:       account.StatusActive,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		PasswordHash: in.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}), nil
}

func (d *Directory) ReplaceSessions(_ context.Context, id string, tokens []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.users[id]
	if !ok {
		return account.ErrNotFound
	}
	r.Sessions = slices.Clone(tokens)
	return nil
}

func (d *Directory) AddSession(_ context.Context, id, token string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.users[id]
	if !ok {
		return account.ErrNotFound
	}
	if !slices.Contains(r.Sessions, token) {
		r.Sessions = append(r.Sessions, token)
	}
	return nil
}

func (d *Directory) RemoveSession(_ context.Context, id, token string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.users[id]
	if !ok {
		return account.ErrNotFound
	}
	r.Sessions = slices.DeleteFunc(r.Sessions, func(s string) bool { return s == token })
	return nil
}

func (d *Directory) SetPasswordHash(_ context.Context, id, hash string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.users[id]
	if !ok {
		return account.ErrNotFound
	}
	r.PasswordHash = hash
	return nil
}

func clone(r *account.Record) *account.Record {
	c := *r
	c.Sessions = slices.Clone(r.Sessions)
	return &c
}
