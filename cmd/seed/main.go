package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	mongodoc "github.com/sngm3741/guide-ops/api/internal/infrastructure/mongo"
)

type seedOptions struct {
	envName         string
	storeCount      int
	visitCount      int
	months          int
	dropCollections bool
	randomSeed      int64
}

type collections struct {
	stores              string
	visits              string
	failedNotifications string
}

func main() {
	opts := parseFlags()

	if err := loadEnvFiles(opts.envName); err != nil {
		log.Fatalf("環境変数の読み込みに失敗しました: %v", err)
	}

	cfg := collections{
		stores:              envOrDefault("STORE_COLLECTION", "stores"),
		visits:              envOrDefault("VISIT_COLLECTION", "visits"),
		failedNotifications: envOrDefault("FAILED_NOTIFICATION_COLLECTION", "failed_notifications"),
	}

	mongoURI := envOrDefault("MONGO_URI", "mongodb://localhost:27017")
	dbName := envOrDefault("MONGO_DB", "guide-ops")

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		log.Fatalf("MongoDB 接続に失敗しました: %v", err)
	}
	defer func() {
		_ = client.Disconnect(context.Background())
	}()

	db := client.Database(dbName)

	if opts.dropCollections {
		dropCollections(ctx, db, cfg)
		log.Printf("既存コレクションを削除しました")
	}

	if err := ensureIndexes(ctx, db, cfg); err != nil {
		log.Fatalf("インデックス作成に失敗しました: %v", err)
	}

	rng := rand.New(rand.NewSource(opts.randomSeed))
	now := time.Now()

	storeDocs := generateStores(rng, opts.storeCount, now)
	if len(storeDocs) == 0 {
		log.Fatal("store docs が生成されませんでした")
	}
	if err := insertMany(ctx, db.Collection(cfg.stores), toAnySlice(storeDocs)); err != nil {
		log.Fatalf("店舗データの挿入に失敗しました: %v", err)
	}

	visitDocs := generateVisits(rng, storeDocs, opts.visitCount, opts.months, now)
	if err := insertMany(ctx, db.Collection(cfg.visits), toAnySlice(visitDocs)); err != nil {
		log.Fatalf("案内記録の挿入に失敗しました: %v", err)
	}

	log.Printf("Seed 完了: stores=%d visits=%d months=%d", len(storeDocs), len(visitDocs), opts.months)
	log.Printf("Mongo: %s / %s (env=%s)", mongoURI, dbName, opts.envName)
}

func parseFlags() seedOptions {
	var opts seedOptions
	flag.StringVar(&opts.envName, "env", "local", "backend/env 内の env ファイル名 (例: local, staging)")
	flag.IntVar(&opts.storeCount, "stores", 10, "生成する店舗数")
	flag.IntVar(&opts.visitCount, "visits", 300, "生成する案内記録の総数")
	flag.IntVar(&opts.months, "months", 3, "案内記録を散らす月数 (当月を含む)")
	flag.BoolVar(&opts.dropCollections, "drop", true, "既存コレクションを削除してから投入する")
	defaultSeed := time.Now().UnixNano()
	flag.Int64Var(&opts.randomSeed, "seed", defaultSeed, "乱数シード（再現用）")
	flag.Parse()

	if opts.storeCount <= 0 {
		log.Fatal("stores は 1 以上を指定してください")
	}
	if opts.visitCount < 0 {
		opts.visitCount = 0
	}
	if opts.months <= 0 {
		opts.months = 1
	}
	return opts
}

// loadEnvFiles は shared.env と {env}.env を順に読み、後勝ちで環境変数へ反映する。
func loadEnvFiles(envName string) error {
	base := filepath.Clean(filepath.Join("..", "env"))
	files := []string{
		filepath.Join(base, "shared.env"),
		filepath.Join(base, fmt.Sprintf("%s.env", envName)),
	}
	for _, file := range files {
		if err := godotenv.Overload(file); err != nil {
			return fmt.Errorf("%s の読み込みに失敗しました: %w", file, err)
		}
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func dropCollections(ctx context.Context, db *mongo.Database, cfg collections) {
	for _, name := range []string{cfg.stores, cfg.visits, cfg.failedNotifications} {
		if err := db.Collection(name).Drop(ctx); err != nil {
			// 存在しない場合も err になるので warning にとどめる
			log.Printf("WARN: コレクション %s の削除に失敗: %v", name, err)
		}
	}
}

func ensureIndexes(ctx context.Context, db *mongo.Database, cfg collections) error {
	if err := mongodoc.NewStoreRepository(db, cfg.stores).EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("stores: %w", err)
	}
	if err := mongodoc.NewVisitRepository(db, cfg.visits).EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("visits: %w", err)
	}
	if err := mongodoc.NewFailedNotificationRepository(db, cfg.failedNotifications).EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("failed_notifications: %w", err)
	}
	return nil
}

func insertMany(ctx context.Context, col *mongo.Collection, docs []interface{}) error {
	if len(docs) == 0 {
		return nil
	}
	_, err := col.InsertMany(ctx, docs)
	return err
}

func toAnySlice[T any](in []T) []interface{} {
	out := make([]interface{}, len(in))
	for i := range in {
		out[i] = in[i]
	}
	return out
}
