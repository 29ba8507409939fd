package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goSession/account"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// emailCollation makes email matches case-insensitive.
var emailCollation = &options.Collation{Locale: "en_US", Strength: 2}

type userDoc struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	Role       string             `bson:"role,omitempty"`
	Status     string             `bson:"status"`
	FirstName  string             `bson:"firstName"`
	LastName   string             `bson:"lastName,omitempty"`
	Email      string             `bson:"email"`
	Avatar     string             `bson:"avatar,omitempty"`
	Thumb      string             `bson:"thumb,omitempty"`
	Restaurant primitive.ObjectID `bson:"restaurant,omitempty"`
	Password   string             `bson:"password"`
	Sessions   []string           `bson:"sessions"`
	CreatedAt  time.Time          `bson:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt"`
}

func (d *userDoc) record() *account.Record {
	r := &account.Record{
		ID:           d.ID.Hex(),
		Role:         account.Role(d.Role),
		Status:       account.Status(d.Status),
		FirstName:    d.FirstName,
		LastName:     d.LastName,
		Email:        d.Email,
		Avatar:       d.Avatar,
		Thumb:        d.Thumb,
		PasswordHash: d.Password,
		Sessions:     d.Sessions,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
	if !d.Restaurant.IsZero() {
		r.Restaurant = d.Restaurant.Hex()
	}
	if r.Role == "" {
		r.Role = account.RoleUser
	}
	return r
}

// UserDirectory implements account.Directory over a users collection.
type UserDirectory struct {
	coll *mongo.Collection
	now  func() time.Time
}

var _ account.Directory = (*UserDirectory)(nil)

// NewUserDirectory wraps coll.
func NewUserDirectory(coll *mongo.Collection) *UserDirectory {
	return &UserDirectory{coll: coll, now: time.Now}
}

func (u *UserDirectory) findOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*account.Record, error) {
	var doc userDoc
	if err := u.coll.FindOne(ctx, filter, opts...).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, account.ErrNotFound
		}
		return nil, fmt.Errorf("mongodb: find user: %w", err)
	}
	return doc.record(), nil
}

func (u *UserDirectory) FindActiveByEmail(ctx context.Context, email string) (*account.Record, error) {
	filter := bson.M{"status": string(account.StatusActive), "email": account.NormalizeEmail(email)}
	return u.findOne(ctx, filter, options.FindOne().SetCollation(emailCollation))
}

func (u *UserDirectory) FindByID(ctx context.Context, id string) (*account.Record, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, account.ErrNotFound
	}
	return u.findOne(ctx, bson.M{"_id": oid})
}

func (u *UserDirectory) EmailTaken(ctx context.Context, email string) (bool, error) {
	filter := bson.M{
		"email":  account.NormalizeEmail(email),
		"status": bson.M{"$ne": string(account.StatusDeleted)},
	}
	n, err := u.coll.CountDocuments(ctx, filter, options.Count().SetCollation(emailCollation).SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("mongodb: count users: %w", err)
	}
	return n > 0, nil
}

func (u *UserDirectory) Create(ctx context.Context, in account.CreateInput) (*account.Record, error) {
	now := u.now().UTC().Truncate(time.Millisecond)
	role := in.Role
	if role == "" {
		role = account.RoleUser
	}
	doc := userDoc{
		ID:        primitive.NewObjectID(),
		Role:      string(role),
		Status:    string(account.StatusActive),
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     account.NormalizeEmail(in.Email),
		Password:  in.PasswordHash,
		Sessions:  []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := u.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, account.ErrDuplicate
		}
		return nil, fmt.Errorf("mongodb: insert user: %w", err)
	}
	return doc.record(), nil
}

// updateByID applies update without bumping updatedAt.
func (u *UserDirectory) updateByID(ctx context.Context, id string, update bson.M) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return account.ErrNotFound
	}
	res, err := u.coll.UpdateByID(ctx, oid, update)
	if err != nil {
		return fmt.Errorf("mongodb: update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return account.ErrNotFound
	}
	return nil
}

func (u *UserDirectory) ReplaceSessions(ctx context.Context, id string, tokens []string) error {
	if tokens == nil {
		tokens = []string{}
	}
	return u.updateByID(ctx, id, bson.M{"$set": bson.M{"sessions": tokens}})
}

func (u *UserDirectory) AddSession(ctx context.Context, id, token string) error {
	return u.updateByID(ctx, id, bson.M{"$addToSet": bson.M{"sessions": token}})
}

func (u *UserDirectory) RemoveSession(ctx context.Context, id, token string) error {
	return u.updateByID(ctx, id, bson.M{"$pull": bson.M{"sessions": token}})
}

func (u *UserDirectory) SetPasswordHash(ctx context.Context, id, hash string) error {
	return u.updateByID(ctx, id, bson.M{"$set": bson.M{"password": hash}})
}
