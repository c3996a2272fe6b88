package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"argus/pkg/errors"
)

// EnsureIndexes creates a unique identity index on each known partition
// collection. Partitions created later by new routing rules work without
// the index; the upsert filter keeps them duplicate-free either way.
func (r *MessageRepository) EnsureIndexes(ctx context.Context, partitions []string) error {
	model := mongo.IndexModel{
		Keys: bson.D{
			{Key: "source_id", Value: 1},
			{Key: "message_id", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	}

	for _, partition := range partitions {
		if _, err := r.db.Collection(partition).Indexes().CreateOne(ctx, model); err != nil {
			return errors.Wrap(err, errors.ErrStoreUnavailable)
		}
	}

	return nil
}

// EnsureIndexes backs the management API's status-filtered listing.
func (r *DeadLetterRepository) EnsureIndexes(ctx context.Context) error {
	model := mongo.IndexModel{
		Keys: bson.D{
			{Key: "status", Value: 1},
			{Key: "promoted_at", Value: -1},
		},
	}

	if _, err := r.collection.Indexes().CreateOne(ctx, model); err != nil {
		return errors.Wrap(err, errors.ErrStoreUnavailable)
	}

	return nil
}
