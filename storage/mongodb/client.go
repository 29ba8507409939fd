// Package mongodb stores user records and audit events in MongoDB using the
// official v1 driver.
package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	// UsersCollection holds user documents.
	UsersCollection = "users"
	// AuditCollection holds application log entries.
	AuditCollection = "application_logs"

	connectTimeout = 10 * time.Second
)

// Client owns a driver connection and the selected database.
type Client struct {
	client   *mongo.Client
	database *mongo.Database
}

// Connect dials uri and verifies the primary is reachable.
func Connect(ctx context.Context, uri, database string) (*Client, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongodb: connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb: ping: %w", err)
	}
	return &Client{client: client, database: client.Database(database)}, nil
}

// Users returns a directory over the users collection.
func (c *Client) Users() *UserDirectory {
	return NewUserDirectory(c.database.Collection(UsersCollection))
}

// Audit returns an audit sink over the application log collection.
func (c *Client) Audit() *AuditSink {
	return NewAuditSink(c.database.Collection(AuditCollection))
}

// Ping checks connectivity.
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the driver.
func (c *Client) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	return c.client.Disconnect(ctx)
}
