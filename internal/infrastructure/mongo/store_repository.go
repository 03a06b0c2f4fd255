package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sngm3741/guide-ops/api/internal/billing/application"
	"github.com/sngm3741/guide-ops/api/internal/billing/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// StoreRepository は店舗と契約条件の Mongo 実装。
type StoreRepository struct {
	collection *mongo.Collection
}

// NewStoreRepository は MongoDB コレクションを束縛した StoreRepository を生成する。
func NewStoreRepository(db *mongo.Database, collection string) *StoreRepository {
	return &StoreRepository{collection: db.Collection(collection)}
}

// EnsureIndexes は店舗名+支店名の一意制約を作成する。
func (r *StoreRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}, {Key: "branchName", Value: 1}},
		Options: options.Index().SetName("uniq_store_name_branch").SetUnique(true),
	})
	return err
}

// Find はキーワード検索付きの店舗一覧を名前順で返す。Limit が 0 以下なら全件。
func (r *StoreRepository) Find(ctx context.Context, filter application.StoreFilter) ([]domain.Store, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}, {Key: "branchName", Value: 1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cursor, err := r.collection.Find(ctx, buildStoreFilter(filter), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	stores := make([]domain.Store, 0)
	for cursor.Next(ctx) {
		var doc StoreDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		stores = append(stores, mapStore(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return stores, nil
}

// FindByID は 16 進 ObjectID を受け取り単一店舗を返す。
func (r *StoreRepository) FindByID(ctx context.Context, id string) (*domain.Store, error) {
	objectID, err := parseObjectID(id, application.ErrStoreNotFound)
	if err != nil {
		return nil, err
	}
	var doc StoreDocument
	if err := r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, application.ErrStoreNotFound
		}
		return nil, err
	}
	store := mapStore(doc)
	return &store, nil
}

// Create は店舗名+支店名の重複チェックを行った上で店舗を新規作成する。
func (r *StoreRepository) Create(ctx context.Context, store *domain.Store) error {
	if store == nil {
		return fmt.Errorf("store payload is nil")
	}
	filter := bson.M{
		"name":       strings.TrimSpace(store.Name),
		"branchName": strings.TrimSpace(store.BranchName),
	}
	if filter["branchName"] == "" {
		filter["branchName"] = bson.M{"$in": bson.A{nil, ""}}
	}
	if err := r.collection.FindOne(ctx, filter).Err(); err == nil {
		return &domain.ValidationError{Field: "name", Reason: "store already exists"}
	} else if !errors.Is(err, mongo.ErrNoDocuments) {
		return err
	}

	doc := buildStoreDocument(*store)
	doc.ID = primitive.NewObjectID()
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return err
	}
	store.ID = doc.ID.Hex()
	return nil
}

// UpdateTerms は契約条件を差し替える。nil のフィールドは $unset し、0 は 0 のまま保存する。
func (r *StoreRepository) UpdateTerms(ctx context.Context, id string, terms domain.OptionalTerms) error {
	objectID, err := parseObjectID(id, application.ErrStoreNotFound)
	if err != nil {
		return err
	}
	result, err := r.collection.UpdateByID(ctx, objectID, buildTermsUpdate(terms, time.Now().UTC()))
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return application.ErrStoreNotFound
	}
	return nil
}

// ConsumeRequest は残りリクエスト数が正のときだけ 1 減らす。
func (r *StoreRepository) ConsumeRequest(ctx context.Context, id string) (bool, error) {
	objectID, err := parseObjectID(id, application.ErrStoreNotFound)
	if err != nil {
		return false, err
	}
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": objectID, "remainingRequests": bson.M{"$gt": 0}},
		bson.M{"$inc": bson.M{"remainingRequests": -1}},
	)
	if err != nil {
		return false, err
	}
	return result.ModifiedCount > 0, nil
}

// RestoreRequest は削除された案内記録が消費していたリクエストを戻す。
func (r *StoreRepository) RestoreRequest(ctx context.Context, id string) error {
	objectID, err := parseObjectID(id, application.ErrStoreNotFound)
	if err != nil {
		return err
	}
	result, err := r.collection.UpdateByID(ctx, objectID, bson.M{"$inc": bson.M{"remainingRequests": 1}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return application.ErrStoreNotFound
	}
	return nil
}

func buildStoreFilter(filter application.StoreFilter) bson.M {
	keyword := strings.TrimSpace(filter.Keyword)
	if keyword == "" {
		return bson.M{}
	}
	regex := primitive.Regex{Pattern: regexp.QuoteMeta(keyword), Options: "i"}
	return bson.M{"$or": bson.A{
		bson.M{"name": regex},
		bson.M{"branchName": regex},
		bson.M{"area": regex},
	}}
}

func buildTermsUpdate(terms domain.OptionalTerms, now time.Time) bson.M {
	set := bson.M{"updatedAt": now}
	unset := bson.M{}
	fields := []struct {
		key   string
		value *int
	}{
		{"panelFee", terms.PanelFee},
		{"chargePerPerson", terms.ChargePerPerson},
		{"guaranteeCount", terms.GuaranteeCount},
		{"underGuaranteePenalty", terms.UnderGuaranteePenalty},
	}
	for _, f := range fields {
		if f.value == nil {
			unset[f.key] = ""
			continue
		}
		set[f.key] = *f.value
	}
	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	return update
}

// mapStore は Mongo ドキュメントをドメインの Store に変換する。
func mapStore(doc StoreDocument) domain.Store {
	store := domain.Store{
		ID:         doc.ID.Hex(),
		Name:       doc.Name,
		BranchName: strings.TrimSpace(doc.BranchName),
		Area:       doc.Area,
		Terms: domain.OptionalTerms{
			PanelFee:              copyInt(doc.PanelFee),
			ChargePerPerson:       copyInt(doc.ChargePerPerson),
			GuaranteeCount:        copyInt(doc.GuaranteeCount),
			UnderGuaranteePenalty: copyInt(doc.UnderGuaranteePenalty),
		},
		MalePrice:         copyInt(doc.MalePrice),
		RemainingRequests: doc.RemainingRequests,
	}
	if doc.CreatedAt != nil {
		store.CreatedAt = *doc.CreatedAt
	}
	if doc.UpdatedAt != nil {
		store.UpdatedAt = *doc.UpdatedAt
	}
	return store
}

func buildStoreDocument(store domain.Store) StoreDocument {
	now := time.Now().UTC()
	created := store.CreatedAt
	if created.IsZero() {
		created = now
	}
	return StoreDocument{
		Name:                  strings.TrimSpace(store.Name),
		BranchName:            strings.TrimSpace(store.BranchName),
		Area:                  strings.TrimSpace(store.Area),
		PanelFee:              copyInt(store.Terms.PanelFee),
		ChargePerPerson:       copyInt(store.Terms.ChargePerPerson),
		GuaranteeCount:        copyInt(store.Terms.GuaranteeCount),
		UnderGuaranteePenalty: copyInt(store.Terms.UnderGuaranteePenalty),
		MalePrice:             copyInt(store.MalePrice),
		RemainingRequests:     store.RemainingRequests,
		CreatedAt:             &created,
		UpdatedAt:             &now,
	}
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	value := *v
	return &value
}

// parseObjectID は不正な ID を notFound として扱う。存在しえない ID は 404 と同じ扱い。
func parseObjectID(id string, notFound error) (primitive.ObjectID, error) {
	objectID, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return primitive.NilObjectID, notFound
	}
	return objectID, nil
}
