package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"argus/internal/constants"
	"argus/internal/logger"
	"argus/pkg/errors"
	"argus/pkg/metrics"
	"argus/pkg/models"
)

// DeadLetterRepository persists promoted envelopes and their operator
// remediation lifecycle. The entry _id is the envelope identity, which makes
// Insert idempotent without a separate unique index.
type DeadLetterRepository struct {
	collection *mongo.Collection
	logger     logger.Logger
}

func NewDeadLetterRepository(db *mongo.Database, log logger.Logger) *DeadLetterRepository {
	return &DeadLetterRepository{
		collection: db.Collection(constants.DeadLetterCollection),
		logger:     log,
	}
}

// Insert quarantines the entry. A duplicate identity means the envelope was
// already promoted by a racing worker and is absorbed as success.
func (r *DeadLetterRepository) Insert(ctx context.Context, entry models.DeadLetterEntry) error {
	start := time.Now()
	_, err := r.collection.InsertOne(ctx, entry)
	metrics.ObserveDatabaseQueryDuration("pipeline", "mongodb", "insert_dead_letter", time.Since(start))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			metrics.IncDatabaseQuery("pipeline", "mongodb", "insert_dead_letter", "duplicate")
			return nil
		}
		metrics.IncDatabaseQuery("pipeline", "mongodb", "insert_dead_letter", "error")
		return errors.Wrap(err, errors.ErrStoreUnavailable)
	}

	metrics.IncDatabaseQuery("pipeline", "mongodb", "insert_dead_letter", "ok")
	return nil
}

// List returns entries newest first, optionally filtered by status.
func (r *DeadLetterRepository) List(ctx context.Context, status string, limit, offset int) ([]models.DeadLetterEntry, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}

	if limit <= 0 {
		limit = constants.DefaultLimit
	}
	if limit > constants.MaxLimit {
		limit = constants.MaxLimit
	}
	if offset < 0 {
		offset = 0
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "promoted_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrStoreUnavailable)
	}
	defer cursor.Close(ctx)

	entries := make([]models.DeadLetterEntry, 0)
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, errors.Wrap(err, errors.ErrStoreUnavailable)
	}

	return entries, nil
}

func (r *DeadLetterRepository) Get(ctx context.Context, id string) (*models.DeadLetterEntry, error) {
	var entry models.DeadLetterEntry
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&entry)
	if err == mongo.ErrNoDocuments {
		return nil, errors.ErrNotFound.WithDetail("message", fmt.Sprintf("dead letter entry %s not found", id))
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrStoreUnavailable)
	}

	return &entry, nil
}

// MarkResolved transitions a pending entry to replayed or discarded. Exactly
// one remediation wins; later attempts report conflict.
func (r *DeadLetterRepository) MarkResolved(ctx context.Context, id, status string) error {
	now := time.Now().UTC()
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.DeadLetterStatusPending},
		bson.M{"$set": bson.M{"status": status, "resolved_at": now}},
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrStoreUnavailable)
	}

	if result.MatchedCount == 0 {
		count, err := r.collection.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
		if err != nil {
			return errors.Wrap(err, errors.ErrStoreUnavailable)
		}
		if count == 0 {
			return errors.ErrNotFound.WithDetail("message", fmt.Sprintf("dead letter entry %s not found", id))
		}
		return errors.ErrConflict.WithDetail("message", fmt.Sprintf("dead letter entry %s already resolved", id))
	}

	r.logger.InfowCtx(ctx, "Dead letter entry resolved",
		"id", id,
		"status", status)

	return nil
}
