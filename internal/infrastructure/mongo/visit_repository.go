package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sngm3741/guide-ops/api/internal/billing/application"
	"github.com/sngm3741/guide-ops/api/internal/billing/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// VisitRepository は案内記録コレクションを扱う。
type VisitRepository struct {
	collection *mongo.Collection
}

// NewVisitRepository は visits コレクションを束縛したリポジトリを生成する。
func NewVisitRepository(db *mongo.Database, collection string) *VisitRepository {
	return &VisitRepository{collection: db.Collection(collection)}
}

// EnsureIndexes は期間検索用と requestId 一意制約のインデックスを作成する。
func (r *VisitRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "guidedAt", Value: -1}},
			Options: options.Index().SetName("idx_visit_guided"),
		},
		{
			Keys:    bson.D{{Key: "storeId", Value: 1}, {Key: "guidedAt", Value: -1}},
			Options: options.Index().SetName("idx_visit_store_guided"),
		},
		{
			Keys:    bson.D{{Key: "requestId", Value: 1}},
			Options: options.Index().SetName("uniq_visit_request").SetUnique(true),
		},
	})
	return err
}

// Find は [From, To) の範囲で案内記録を返す。既定は新しい順。
func (r *VisitRepository) Find(ctx context.Context, filter application.VisitFilter) ([]domain.VisitRecord, error) {
	mongoFilter, err := buildVisitFilter(filter)
	if err != nil {
		return nil, err
	}
	direction := -1
	if filter.Ascending {
		direction = 1
	}
	opts := options.Find().SetSort(bson.D{{Key: "guidedAt", Value: direction}, {Key: "_id", Value: direction}})

	cursor, err := r.collection.Find(ctx, mongoFilter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	visits := make([]domain.VisitRecord, 0)
	for cursor.Next(ctx) {
		var doc VisitDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		visits = append(visits, mapVisit(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return visits, nil
}

func (r *VisitRepository) FindByID(ctx context.Context, id string) (*domain.VisitRecord, error) {
	objectID, err := parseObjectID(id, application.ErrVisitNotFound)
	if err != nil {
		return nil, err
	}
	var doc VisitDocument
	if err := r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, application.ErrVisitNotFound
		}
		return nil, err
	}
	visit := mapVisit(doc)
	return &visit, nil
}

// Create は案内記録を保存する。同じ requestId の再送は ErrDuplicateVisit になる。
func (r *VisitRepository) Create(ctx context.Context, visit *domain.VisitRecord) error {
	if visit == nil {
		return fmt.Errorf("visit payload is nil")
	}
	doc, err := buildVisitDocument(*visit)
	if err != nil {
		return err
	}
	doc.ID = primitive.NewObjectID()
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return application.ErrDuplicateVisit
		}
		return err
	}
	visit.ID = doc.ID.Hex()
	visit.CreatedAt = doc.CreatedAt
	return nil
}

func (r *VisitRepository) Delete(ctx context.Context, id string) error {
	objectID, err := parseObjectID(id, application.ErrVisitNotFound)
	if err != nil {
		return err
	}
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return application.ErrVisitNotFound
	}
	return nil
}

func buildVisitFilter(filter application.VisitFilter) (bson.M, error) {
	mongoFilter := bson.M{}
	if storeID := strings.TrimSpace(filter.StoreID); storeID != "" {
		id, err := primitive.ObjectIDFromHex(storeID)
		if err != nil {
			return nil, application.ErrStoreNotFound
		}
		mongoFilter["storeId"] = id
	}
	if filter.StaffType != "" {
		mongoFilter["staffType"] = string(filter.StaffType)
	}
	guidedAt := bson.M{}
	if !filter.From.IsZero() {
		guidedAt["$gte"] = filter.From.UTC()
	}
	if !filter.To.IsZero() {
		guidedAt["$lt"] = filter.To.UTC()
	}
	if len(guidedAt) > 0 {
		mongoFilter["guidedAt"] = guidedAt
	}
	return mongoFilter, nil
}

func buildVisitDocument(visit domain.VisitRecord) (VisitDocument, error) {
	storeID, err := primitive.ObjectIDFromHex(strings.TrimSpace(visit.StoreID))
	if err != nil {
		return VisitDocument{}, application.ErrStoreNotFound
	}
	created := visit.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	return VisitDocument{
		StoreID:         storeID,
		GuestCount:      visit.GuestCount,
		StaffName:       strings.TrimSpace(visit.StaffName),
		StaffType:       string(visit.StaffType),
		GuidedAt:        visit.GuidedAt.UTC(),
		ConsumedRequest: visit.ConsumedRequest,
		RequestID:       visit.RequestID,
		CreatedAt:       created.UTC(),
	}, nil
}

func mapVisit(doc VisitDocument) domain.VisitRecord {
	return domain.VisitRecord{
		ID:              doc.ID.Hex(),
		StoreID:         doc.StoreID.Hex(),
		GuestCount:      doc.GuestCount,
		StaffName:       doc.StaffName,
		StaffType:       domain.StaffType(doc.StaffType),
		GuidedAt:        doc.GuidedAt.UTC(),
		ConsumedRequest: doc.ConsumedRequest,
		RequestID:       doc.RequestID,
		CreatedAt:       doc.CreatedAt.UTC(),
	}
}
