package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/sngm3741/guide-ops/api/internal/billing/domain"
)

// JWTConfig defines issuer/secret pair for auth verification.
type JWTConfig struct {
	Issuer string
	Secret []byte
}

// Config holds runtime configuration shared across the application.
type Config struct {
	Addr                         string
	MongoURI                     string
	MongoDatabase                string
	StoreCollection              string
	VisitCollection              string
	FailedNotificationCollection string
	Timeout                      time.Duration
	BusinessZone                 *time.Location
	BusinessDayStartHour         int
	BillingDefaults              domain.ContractTerms
	ServerLog                    *log.Logger
	JWTConfigs                   []JWTConfig
	JWTAudience                  string
	MessengerEndpoint            string
	DiscordDestination           string
	SlackDestination             string
	MessengerTimeout             time.Duration
	AdminVisitBaseURL            string
	AllowedOrigins               []string
}

// Resolver は設定された営業タイムゾーンと営業日開始時刻で Resolver を作る。
func (c Config) Resolver() (*domain.Resolver, error) {
	return domain.NewResolver(c.BusinessZone, c.BusinessDayStartHour)
}

// Load は .env (ENV_FILE) を読み込んだ上で環境変数から Config を組み立てる。設定不備は起動失敗とする。
func Load() Config {
	LoadEnvFile()
	cfg, err := LoadFromEnv(os.LookupEnv)
	if err != nil {
		log.Fatalf("設定の読み込みに失敗: %v", err)
	}
	if len(cfg.JWTConfigs) == 0 {
		log.Fatal("JWT secrets not configured. Set AUTH_JWT_SECRET or AUTH_LINE_JWT_SECRET.")
	}
	cfg.ServerLog.Printf("loaded config: db=%q zone=%s dayStart=%02d:00 messengerEndpoint=%q", cfg.MongoDatabase, cfg.BusinessZone, cfg.BusinessDayStartHour, cfg.MessengerEndpoint)
	return cfg
}

// LoadEnvFile は ENV_FILE (既定 .env) を読む。ファイルが無ければ何もしない。
// 既に設定済みの環境変数は上書きしない。
func LoadEnvFile() {
	path := strings.TrimSpace(os.Getenv("ENV_FILE"))
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("%s の読み込みに失敗: %v", path, err)
	}
}

// LoadFromEnv は lookup から設定を読む。テストでは map ベースの lookup を渡す。
func LoadFromEnv(lookup func(string) (string, bool)) (Config, error) {
	env := envReader{lookup: lookup}

	timeout, err := env.getDuration("MONGO_CONNECT_TIMEOUT", 10*time.Second)
	if err != nil {
		return Config{}, err
	}
	messengerTimeout, err := env.getDuration("MESSENGER_GATEWAY_TIMEOUT", 3*time.Second)
	if err != nil {
		return Config{}, err
	}

	offsetHours, err := env.getInt("BUSINESS_TZ_OFFSET_HOURS", 9)
	if err != nil {
		return Config{}, err
	}
	if offsetHours < -12 || offsetHours > 14 {
		return Config{}, fmt.Errorf("BUSINESS_TZ_OFFSET_HOURS out of range: %d", offsetHours)
	}
	zone := time.FixedZone(env.get("BUSINESS_TZ_NAME", "JST"), offsetHours*60*60)

	dayStart, err := env.getInt("BUSINESS_DAY_START_HOUR", domain.DefaultBusinessDayStartHour)
	if err != nil {
		return Config{}, err
	}
	if dayStart < 0 || dayStart > 23 {
		return Config{}, fmt.Errorf("BUSINESS_DAY_START_HOUR must be between 0 and 23: %d", dayStart)
	}

	defaults := domain.DefaultTerms
	if path := env.get("BILLING_DEFAULTS_FILE", ""); path != "" {
		defaults, err = LoadBillingDefaults(path, domain.DefaultTerms)
		if err != nil {
			return Config{}, err
		}
	}

	var jwtConfigs []JWTConfig
	if secret := env.get("AUTH_JWT_SECRET", ""); secret != "" {
		jwtConfigs = append(jwtConfigs, JWTConfig{
			Issuer: env.get("AUTH_JWT_ISSUER", "guide-ops-auth"),
			Secret: []byte(secret),
		})
	}
	if secret := env.get("AUTH_LINE_JWT_SECRET", ""); secret != "" {
		jwtConfigs = append(jwtConfigs, JWTConfig{
			Issuer: env.get("AUTH_LINE_JWT_ISSUER", "guide-ops-line-auth"),
			Secret: []byte(secret),
		})
	}

	cfg := Config{
		Addr:                         env.get("HTTP_ADDR", ":8080"),
		MongoURI:                     env.get("MONGO_URI", "mongodb://mongo:27017"),
		MongoDatabase:                env.get("MONGO_DB", "guide-ops"),
		StoreCollection:              env.get("STORE_COLLECTION", "stores"),
		VisitCollection:              env.get("VISIT_COLLECTION", "visits"),
		FailedNotificationCollection: env.get("FAILED_NOTIFICATION_COLLECTION", "failed_notifications"),
		Timeout:                      timeout,
		BusinessZone:                 zone,
		BusinessDayStartHour:         dayStart,
		BillingDefaults:              defaults,
		ServerLog:                    log.New(os.Stdout, "[guide-ops-api] ", log.LstdFlags|log.Lshortfile),
		JWTConfigs:                   jwtConfigs,
		JWTAudience:                  env.get("AUTH_JWT_AUDIENCE", ""),
		MessengerEndpoint:            strings.TrimRight(env.get("MESSENGER_GATEWAY_URL", "http://messenger-gateway:3000"), "/"),
		DiscordDestination:           env.get("MESSENGER_DISCORD_INCOMING_DESTINATION", ""),
		SlackDestination:             env.get("MESSENGER_SLACK_DESTINATION", ""),
		MessengerTimeout:             messengerTimeout,
		AdminVisitBaseURL:            env.get("ADMIN_VISIT_BASE_URL", ""),
		AllowedOrigins:               env.getList("API_ALLOWED_ORIGINS", []string{"*"}),
	}
	return cfg, nil
}

// billingDefaultsFile は BILLING_DEFAULTS_FILE の形式。未記載の項目は組み込みの既定値を使う。
type billingDefaultsFile struct {
	Defaults domain.OptionalTerms `yaml:"defaults"`
}

// LoadBillingDefaults は YAML から契約条件の既定値を読む。
func LoadBillingDefaults(path string, fallback domain.ContractTerms) (domain.ContractTerms, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.ContractTerms{}, fmt.Errorf("reading billing defaults %s: %w", path, err)
	}
	var file billingDefaultsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return domain.ContractTerms{}, fmt.Errorf("parsing billing defaults: %w", err)
	}
	terms, err := file.Defaults.Resolve(fallback)
	if err != nil {
		return domain.ContractTerms{}, fmt.Errorf("billing defaults: %w", err)
	}
	return terms, nil
}

type envReader struct {
	lookup func(string) (string, bool)
}

func (e envReader) get(key, fallback string) string {
	if v, ok := e.lookup(key); ok {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return fallback
}

func (e envReader) getInt(key string, fallback int) (int, error) {
	raw := e.get(key, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func (e envReader) getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := e.get(key, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func (e envReader) getList(key string, fallback []string) []string {
	raw := e.get(key, "")
	if raw == "" {
		return fallback
	}

	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			values = append(values, part)
		}
	}

	if len(values) == 0 {
		return fallback
	}
	return values
}
