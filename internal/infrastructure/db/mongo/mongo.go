// Package mongo implements the MongoDB storage backend: the employee
// directory and capped collections for the audit and alert journals.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultTimeout = 10 * time.Second

// Config captures the settings required to establish a MongoDB connection.
type Config struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// Connect establishes a MongoDB client, verifies connectivity with a ping, and
// returns both the client and the selected database.
func Connect(ctx context.Context, cfg Config) (*mongo.Client, *mongo.Database, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetAppName("security-core").
		SetServerSelectionTimeout(timeout)

	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(connectCtx)
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}

	return client, client.Database(cfg.Database), nil
}

// Prepare creates the collections and indexes the backend relies on. The
// journals are capped at the same sizes as their in-memory indexes.
func Prepare(ctx context.Context, db *mongo.Database, auditCap, alertCap int) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := EnsureCappedCollection(ctx, db, AuditCollection, int64(auditCap)); err != nil {
		return err
	}
	if err := EnsureCappedCollection(ctx, db, AlertsCollection, int64(alertCap)); err != nil {
		return err
	}
	return NewPrincipalRepository(db).EnsureIndexes(ctx)
}
