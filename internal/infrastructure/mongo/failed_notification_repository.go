package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// FailedNotificationRepository は全チャネルで送れなかった通知を保存する。
type FailedNotificationRepository struct {
	collection *mongo.Collection
}

func NewFailedNotificationRepository(db *mongo.Database, collection string) *FailedNotificationRepository {
	return &FailedNotificationRepository{collection: db.Collection(collection)}
}

func (r *FailedNotificationRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}},
		Options: options.Index().SetName("idx_failed_status_created"),
	})
	return err
}

// Save は status=pending で 1 件記録する。
func (r *FailedNotificationRepository) Save(ctx context.Context, target string, payload map[string]string, cause error, attempts int) error {
	now := time.Now().UTC()
	doc := FailedNotificationDocument{
		Target:      target,
		Payload:     payload,
		Attempts:    attempts,
		Status:      "pending",
		CreatedAt:   now,
		LastTriedAt: now,
	}
	if cause != nil {
		doc.Error = cause.Error()
	}
	_, err := r.collection.InsertOne(ctx, doc)
	return err
}
