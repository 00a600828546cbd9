// Package mongo implements the resource repository on MongoDB.
//
// All resources live in a single collection. The document shape is
// model.Resource's bson tags plus the ObjectID _id; the hex form of that _id
// is the resource ID the API hands out.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// DefaultCollection is used when no collection name is configured.
const DefaultCollection = "resources"

// Store wraps the resources collection.
type Store struct {
	client *mongo.Client
	c      *mongo.Collection
}

// Connect dials uri, verifies the primary is reachable and makes sure the
// listing indexes exist.
func Connect(ctx context.Context, uri, database, collection string) (*Store, error) {
	if collection == "" {
		collection = DefaultCollection
	}

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(10*time.Second))
	if err != nil {
		return nil, fmt.Errorf("mongo: connecting: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: pinging: %w", err)
	}

	s := newStore(client, client.Database(database).Collection(collection))
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func newStore(client *mongo.Client, c *mongo.Collection) *Store {
	return &Store{client: client, c: c}
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Ping reports whether the primary is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// ensureIndexes creates the compound indexes behind the three list queries.
// CreateMany is a no-op for indexes that already exist with the same keys and options.
func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "isPublished", Value: 1},
				{Key: "category", Value: 1},
				{Key: "createdAt", Value: -1},
				{Key: "_id", Value: -1},
			},
			Options: options.Index().SetName("published_category_created"),
		},
		{
			Keys: bson.D{
				{Key: "isPublished", Value: 1},
				{Key: "featured", Value: 1},
				{Key: "createdAt", Value: -1},
			},
			Options: options.Index().SetName("published_featured_created"),
		},
		{
			Keys:    bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}},
			Options: options.Index().SetName("created"),
		},
	})
	if err != nil {
		return fmt.Errorf("mongo: ensuring indexes: %w", err)
	}
	return nil
}
