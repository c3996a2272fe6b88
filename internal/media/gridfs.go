package media

import (
	"bytes"
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"

	"argus/internal/constants"
)

// GridFSStore persists blobs in a MongoDB GridFS bucket, filename = content
// address. A concurrent identical put can briefly upload twice; GridFS keeps
// both under the same filename as revisions, so reads stay consistent.
type GridFSStore struct {
	bucket *gridfs.Bucket
	files  *mongo.Collection
}

func NewGridFSStore(db *mongo.Database) (*GridFSStore, error) {
	bucket, err := gridfs.NewBucket(db, options.GridFSBucket().SetName(constants.MediaBucketName))
	if err != nil {
		return nil, fmt.Errorf("failed to create gridfs bucket: %w", err)
	}

	return &GridFSStore{
		bucket: bucket,
		files:  bucket.GetFilesCollection(),
	}, nil
}

func (s *GridFSStore) Put(ctx context.Context, data []byte, ext string) (string, error) {
	address := ContentAddress(data, ext)

	exists, err := s.Exists(ctx, address)
	if err != nil {
		return "", err
	}
	if exists {
		return address, nil
	}

	// UploadFromStream takes no context; honor the caller's deadline via the
	// bucket's write deadline instead.
	if deadline, ok := ctx.Deadline(); ok {
		if err := s.bucket.SetWriteDeadline(deadline); err != nil {
			return "", fmt.Errorf("failed to set media upload deadline: %w", err)
		}
	}
	if _, err := s.bucket.UploadFromStream(address, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("failed to upload media blob: %w", err)
	}

	return address, nil
}

func (s *GridFSStore) Exists(ctx context.Context, address string) (bool, error) {
	count, err := s.files.CountDocuments(ctx, bson.M{"filename": address}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check media blob: %w", err)
	}
	return count > 0, nil
}
