package middleware

import (
	"context"

	"github.com/MrEthical07/goSession/session"
)

// RecordStore is the subset of [session.Store] the middleware needs.
type RecordStore interface {
	Get(ctx context.Context, token string) (*session.Payload, error)
	Set(ctx context.Context, token string, p *session.Payload) error
	Touch(ctx context.Context, token string, p *session.Payload) (session.TouchResult, error)
	Destroy(ctx context.Context, token string) error
}

var _ RecordStore = (*session.Store)(nil)
