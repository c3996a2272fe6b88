package migrations

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"argus/internal/constants"
)

// messagePartitions are the collections the router can target. Each carries
// a unique identity index so concurrent upserts of the same envelope
// converge on one document.
var messagePartitions = []string{
	constants.PartitionCombat,
	constants.PartitionCivilian,
	constants.PartitionDiplomatic,
	constants.PartitionEquipment,
	constants.PartitionGeneral,
}

func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	for _, partition := range messagePartitions {
		indexes := []mongo.IndexModel{
			{
				Keys: bson.D{{Key: "source_id", Value: 1}, {Key: "message_id", Value: 1}},
				Options: options.Index().
					SetName(fmt.Sprintf("idx_%s_identity", partition)).
					SetUnique(true),
			},
			{
				Keys:    bson.D{{Key: "state", Value: 1}, {Key: "processed_at", Value: -1}},
				Options: options.Index().SetName(fmt.Sprintf("idx_%s_state_processed", partition)),
			},
			{
				Keys:    bson.D{{Key: "posted_at", Value: -1}},
				Options: options.Index().SetName(fmt.Sprintf("idx_%s_posted_at", partition)),
			},
		}

		if err := createIndexes(ctx, db.Collection(partition), indexes); err != nil {
			return fmt.Errorf("failed to create indexes for %s: %w", partition, err)
		}
	}

	deadLetterIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "promoted_at", Value: -1}},
			Options: options.Index().SetName("idx_dead_letters_status_promoted"),
		},
		{
			Keys:    bson.D{{Key: "promoted_at", Value: -1}},
			Options: options.Index().SetName("idx_dead_letters_promoted_at"),
		},
	}

	if err := createIndexes(ctx, db.Collection(constants.DeadLetterCollection), deadLetterIndexes); err != nil {
		return fmt.Errorf("failed to create indexes for %s: %w", constants.DeadLetterCollection, err)
	}

	return nil
}

func createIndexes(ctx context.Context, collection *mongo.Collection, indexes []mongo.IndexModel) error {
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		return err
	}
	return nil
}
