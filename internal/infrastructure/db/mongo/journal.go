package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names of the capped journals.
const (
	AuditCollection  = "login_attempts"
	AlertsCollection = "security_alerts"
)

// errNamespaceExists is returned by createCollection for an existing collection.
const errNamespaceExists = 48

// Journal implements ports.Journal[T] over a capped collection. The server
// enforces retention and insertion order, so Rewrite has nothing to do.
type Journal[T any] struct {
	coll *mongo.Collection
}

func NewJournal[T any](db *mongo.Database, collection string) *Journal[T] {
	return &Journal[T]{coll: db.Collection(collection)}
}

// EnsureCappedCollection creates name as a capped collection holding at most
// maxDocs documents. An existing collection is left untouched.
func EnsureCappedCollection(ctx context.Context, db *mongo.Database, name string, maxDocs int64) error {
	opts := options.CreateCollection().
		SetCapped(true).
		SetMaxDocuments(maxDocs).
		SetSizeInBytes(maxDocs * 2048)

	err := db.CreateCollection(ctx, name, opts)
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == errNamespaceExists {
		return nil
	}
	if err != nil {
		return fmt.Errorf("create capped collection %s: %w", name, err)
	}
	return nil
}

func (j *Journal[T]) Append(ctx context.Context, entry T) error {
	if _, err := j.coll.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("insert into %s: %w", j.coll.Name(), err)
	}
	return nil
}

// Load returns at most limit of the newest documents, oldest first.
func (j *Journal[T]) Load(ctx context.Context, limit int) ([]T, error) {
	opts := options.Find().SetSort(bson.D{{Key: "$natural", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cur, err := j.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", j.coll.Name(), err)
	}
	var newestFirst []T
	if err := cur.All(ctx, &newestFirst); err != nil {
		return nil, fmt.Errorf("decode %s: %w", j.coll.Name(), err)
	}

	out := make([]T, len(newestFirst))
	for i, e := range newestFirst {
		out[len(newestFirst)-1-i] = e
	}
	return out, nil
}

func (j *Journal[T]) Rewrite(context.Context, []T) error { return nil }
