package mongodb

import (
	"context"
	"time"

	"github.com/MrEthical07/goSession/internal/audit"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const auditWriteTimeout = 5 * time.Second

type auditDoc struct {
	ID        primitive.ObjectID `bson:"_id"`
	EventID   string             `bson:"eventId,omitempty"`
	Type      string             `bson:"type"`
	CreatedAt time.Time          `bson:"createdAt"`
	UserID    string             `bson:"userId,omitempty"`
	Session   string             `bson:"session,omitempty"`
	RequestID string             `bson:"requestId,omitempty"`
	IP        string             `bson:"ip,omitempty"`
	UserAgent string             `bson:"userAgent,omitempty"`
	Success   bool               `bson:"success"`
	Status    int                `bson:"status,omitempty"`
	Error     string             `bson:"error,omitempty"`
	Metadata  map[string]string  `bson:"metadata,omitempty"`
}

func newAuditDoc(e audit.Event) auditDoc {
	at := e.Timestamp
	if at.IsZero() {
		at = time.Now()
	}
	return auditDoc{
		ID:        primitive.NewObjectID(),
		EventID:   e.ID,
		Type:      e.EventType,
		CreatedAt: at.UTC(),
		UserID:    e.UserID,
		Session:   e.SessionID,
		RequestID: e.RequestID,
		IP:        e.IP,
		UserAgent: e.UserAgent,
		Success:   e.Success,
		Status:    e.Status,
		Error:     e.Error,
		Metadata:  e.Metadata,
	}
}

// AuditSink appends audit events to a collection. Write failures are logged
// and dropped.
type AuditSink struct {
	coll   *mongo.Collection
	logger zerolog.Logger
}

func NewAuditSink(coll *mongo.Collection) *AuditSink {
	return &AuditSink{coll: coll, logger: zerolog.Nop()}
}

// WithLogger returns a copy of s that reports write failures to l.
func (s *AuditSink) WithLogger(l zerolog.Logger) *AuditSink {
	cp := *s
	cp.logger = l
	return &cp
}

func (s *AuditSink) Emit(ctx context.Context, e audit.Event) {
	ctx, cancel := context.WithTimeout(ctx, auditWriteTimeout)
	defer cancel()

	if _, err := s.coll.InsertOne(ctx, newAuditDoc(e)); err != nil {
		s.logger.Warn().Err(err).Str("event", e.EventType).Msg("mongodb: audit insert failed")
	}
}
