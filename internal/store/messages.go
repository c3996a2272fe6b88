package store

import (
	"context"
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

// MessageRepository upserts terminal StoredMessages into per-partition
// MongoDB collections. The collection is the routing decision's target
// partition; documents are keyed by envelope identity so redelivery
// overwrites instead of duplicating.
type MessageRepository struct {
	db     *mongo.Database
	logger logger.Logger
}

func NewMessageRepository(db *mongo.Database, log logger.Logger) *MessageRepository {
	return &MessageRepository{
		db:     db,
		logger: log,
	}
}

func (r *MessageRepository) Upsert(ctx context.Context, msg *models.StoredMessage) error {
	partition := msg.Routing.TargetPartition
	if partition == "" {
		partition = constants.PartitionGeneral
	}

	start := time.Now()
	filter := bson.M{"source_id": msg.SourceID, "message_id": msg.MessageID}
	_, err := r.db.Collection(partition).ReplaceOne(ctx, filter, msg, options.Replace().SetUpsert(true))
	metrics.ObserveDatabaseQueryDuration("pipeline", "mongodb", "upsert_message", time.Since(start))
	if err != nil {
		metrics.IncDatabaseQuery("pipeline", "mongodb", "upsert_message", "error")
		return errors.Wrap(err, errors.ErrStoreUnavailable)
	}

	metrics.IncDatabaseQuery("pipeline", "mongodb", "upsert_message", "ok")
	r.logger.DebugwCtx(ctx, "Stored message upserted",
		"partition", partition,
		"source_id", msg.SourceID,
		"message_id", msg.MessageID,
		"state", msg.State)

	return nil
}

// FindByIdentity looks an envelope's terminal record up in one partition.
func (r *MessageRepository) FindByIdentity(ctx context.Context, partition, sourceID string, messageID int64) (*models.StoredMessage, error) {
	var msg models.StoredMessage
	err := r.db.Collection(partition).FindOne(ctx, bson.M{
		"source_id":  sourceID,
		"message_id": messageID,
	}).Decode(&msg)
	if err == mongo.ErrNoDocuments {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrStoreUnavailable)
	}

	return &msg, nil
}
