package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sngm3741/guide-ops/api/internal/billing/application"
	"github.com/sngm3741/guide-ops/api/internal/billing/domain"
	"github.com/sngm3741/guide-ops/api/internal/config"
	"github.com/sngm3741/guide-ops/api/internal/infrastructure/messenger"
	mongodoc "github.com/sngm3741/guide-ops/api/internal/infrastructure/mongo"
	adminhttp "github.com/sngm3741/guide-ops/api/internal/interfaces/http/admin"
	commonhttp "github.com/sngm3741/guide-ops/api/internal/interfaces/http/common"
	customerhttp "github.com/sngm3741/guide-ops/api/internal/interfaces/http/customer"
	staffhttp "github.com/sngm3741/guide-ops/api/internal/interfaces/http/staff"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Server は HTTP サーバーのライフサイクルを管理し、Admin/Staff/Customer の各ハンドラへ依存注入するコンポジションルート。
type Server struct {
	logger          *log.Logger
	client          *mongo.Client
	indexers        []Indexer
	resolver        *domain.Resolver
	adminHandler    *adminhttp.Handler
	staffHandler    *staffhttp.Handler
	customerHandler *customerhttp.Handler
	jwtConfigs      []config.JWTConfig
	jwtAudience     string
	addr            string
	allowedOrigins  []string
}

// Run は起動時のインデックス作成を行った上で HTTP サーバーを起動する。
func (s *Server) Run() error {
	if err := s.ensureIndexes(context.Background()); err != nil {
		s.logger.Printf("インデックスの作成に失敗しました: %v", err)
	}

	httpServer := &http.Server{
		Addr:              s.addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Printf("HTTP サーバー起動: http://%s (営業日 %02d:00 起点, %s)", s.addr, s.resolver.OffsetHour(), s.resolver.Zone())
		errChan <- httpServer.ListenAndServe()
	}()

	waitForShutdown(httpServer, errChan, s)
	return nil
}

// routes はロールごとのルートグループを組み立てる。
func (s *Server) routes() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(withCORS(s.allowedOrigins))

	router.Get("/healthz", s.healthHandler())

	router.Route("/admin", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Use(commonhttp.RequireRoles(commonhttp.RoleAdmin))
		s.adminHandler.Register(r)
	})
	router.Route("/staff", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Use(commonhttp.RequireRoles(commonhttp.RoleStaff, commonhttp.RoleOutstaff, commonhttp.RoleAdmin))
		s.staffHandler.Register(r)
	})
	router.Route("/customer", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Use(commonhttp.RequireRoles(commonhttp.RoleStoreOwner, commonhttp.RoleAdmin))
		s.customerHandler.Register(r)
	})
	return router
}

func (s *Server) ensureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	var errs []error
	for _, indexer := range s.indexers {
		if err := indexer.EnsureIndexes(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// withCORS は許可されたオリジン情報をもとに CORS ヘッダーを付与するミドルウェアを返す。
func withCORS(origins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{})
	allowAll := false
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		if origin == "" {
			continue
		}
		if origin == "*" {
			allowAll = true
			continue
		}
		allowed[origin] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			if origin == "" || (!allowAll && len(allowed) > 0 && !originAllowed(origin, allowed)) {
				if r.Method == http.MethodOptions {
					w.WriteHeader(http.StatusNoContent)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PATCH,DELETE,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization,Content-Type")
			w.Header().Set("Access-Control-Max-Age", "300")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func originAllowed(origin string, allowed map[string]struct{}) bool {
	if len(allowed) == 0 {
		return true
	}
	_, ok := allowed[origin]
	return ok
}

// healthHandler は MongoDB への疎通確認のみを返す。
func (s *Server) healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if s.client == nil {
			s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": "mongo client is not configured"})
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
			s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "degraded",
				"error":  err.Error(),
			})
			return
		}

		s.writeJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
			"time":   time.Now().In(s.resolver.Zone()).Format(time.RFC3339),
		})
	}
}

// authMiddleware は Authorization ヘッダーから JWT を検証し、認証済みユーザーをコンテキストへ詰める。
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
		if authHeader == "" {
			s.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Authorization ヘッダーがありません"})
			return
		}

		const bearerPrefix = "Bearer "
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			s.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Bearer トークンを指定してください"})
			return
		}

		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, bearerPrefix))
		if tokenString == "" {
			s.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "アクセストークンが空です"})
			return
		}

		claims, err := s.parseAuthToken(tokenString)
		if err != nil {
			s.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
			return
		}

		user := commonhttp.AuthenticatedUser{
			ID:       claims.Subject,
			Name:     claims.Name,
			Username: claims.PreferredUsername,
			Role:     commonhttp.Role(claims.Role),
			StoreID:  claims.StoreID,
		}

		ctx := commonhttp.ContextWithUser(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// parseAuthToken は複数の JWT 設定を順番に試し、署名検証と Issuer/Audience の整合性を確認する。
func (s *Server) parseAuthToken(tokenString string) (*authClaims, error) {
	if len(s.jwtConfigs) == 0 {
		return nil, fmt.Errorf("認証設定が構成されていません")
	}

	for _, cfg := range s.jwtConfigs {
		claims := &authClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
			if token.Method != jwt.SigningMethodHS256 {
				return nil, fmt.Errorf("unexpected signing method: %s", token.Method.Alg())
			}
			return cfg.Secret, nil
		}, jwt.WithLeeway(30*time.Second))

		if err != nil || !token.Valid {
			continue
		}

		if cfg.Issuer != "" && claims.Issuer != cfg.Issuer {
			continue
		}
		if claims.Subject == "" || strings.TrimSpace(claims.Role) == "" {
			continue
		}
		if s.jwtAudience != "" && !contains(claims.Audience, s.jwtAudience) {
			continue
		}

		return claims, nil
	}

	return nil, fmt.Errorf("アクセストークンが無効です")
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

type authClaims struct {
	jwt.RegisteredClaims
	Name              string `json:"name,omitempty"`
	PreferredUsername string `json:"preferred_username,omitempty"`
	Role              string `json:"role"`
	StoreID           string `json:"storeId,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Printf("JSON エンコードに失敗: %v", err)
	}
}

// shutdown は MongoDB クライアントをタイムアウト付きで切断する。
func (s *Server) shutdown(ctx context.Context) {
	if s.client == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.client.Disconnect(shutdownCtx); err != nil {
		s.logger.Printf("MongoDB 切断時にエラー: %v", err)
	}
}

// waitForShutdown は ListenAndServe の終了と OS シグナルを監視し、graceful shutdown を実現する。
func waitForShutdown(httpServer *http.Server, errChan <-chan error, srv *Server) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			srv.logger.Fatalf("サーバーが異常終了: %v", err)
		}
	case sig := <-sigChan:
		srv.logger.Printf("シグナル %s を受信。サーバー停止処理を開始します。", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			srv.logger.Printf("サーバー停止時にエラー: %v", err)
		}
	}

	srv.shutdown(context.Background())
}

// Indexer は起動時にインデックスを作成するリポジトリ。
type Indexer interface {
	EnsureIndexes(ctx context.Context) error
}

// Services はハンドラへ渡すアプリケーションサービスの組。
type Services struct {
	Stores   application.StoreService
	Visits   application.VisitService
	Invoices application.InvoiceService
	Indexers []Indexer
}

// NewServices は Mongo リポジトリと通知を束ねてアプリケーションサービスを生成する。
func NewServices(cfg config.Config, db *mongo.Database, resolver *domain.Resolver) Services {
	storeRepo := mongodoc.NewStoreRepository(db, cfg.StoreCollection)
	visitRepo := mongodoc.NewVisitRepository(db, cfg.VisitCollection)
	failures := mongodoc.NewFailedNotificationRepository(db, cfg.FailedNotificationCollection)
	notifier := messenger.NewAdminNotifier(messenger.Config{
		Endpoint:           cfg.MessengerEndpoint,
		DiscordDestination: cfg.DiscordDestination,
		SlackDestination:   cfg.SlackDestination,
		AdminBaseURL:       cfg.AdminVisitBaseURL,
		HTTPClient:         &http.Client{Timeout: cfg.MessengerTimeout},
		Failures:           failures,
		Logger:             cfg.ServerLog,
		Resolver:           resolver,
	})

	return Services{
		Stores:   application.NewStoreService(storeRepo, cfg.BillingDefaults),
		Visits:   application.NewVisitService(visitRepo, storeRepo, resolver, notifier, cfg.ServerLog),
		Invoices: application.NewInvoiceService(storeRepo, visitRepo, resolver, cfg.BillingDefaults),
		Indexers: []Indexer{storeRepo, visitRepo, failures},
	}
}

// New は Config と Mongo クライアントを受け取り、アプリケーションサービスとハンドラを組み立てた Server を返す。
func New(cfg config.Config, client *mongo.Client) *Server {
	resolver, err := cfg.Resolver()
	if err != nil {
		cfg.ServerLog.Fatalf("営業日設定が不正です: %v", err)
	}
	srv := newServer(cfg, resolver, NewServices(cfg, client.Database(cfg.MongoDatabase), resolver))
	srv.client = client
	return srv
}

func newServer(cfg config.Config, resolver *domain.Resolver, services Services) *Server {
	return &Server{
		logger:   cfg.ServerLog,
		resolver: resolver,
		indexers: services.Indexers,
		adminHandler: adminhttp.NewHandler(adminhttp.Config{
			Logger:         cfg.ServerLog,
			StoreService:   services.Stores,
			VisitService:   services.Visits,
			InvoiceService: services.Invoices,
			Resolver:       resolver,
		}),
		staffHandler: staffhttp.NewHandler(staffhttp.Config{
			Logger:       cfg.ServerLog,
			VisitService: services.Visits,
			Resolver:     resolver,
		}),
		customerHandler: customerhttp.NewHandler(customerhttp.Config{
			Logger:         cfg.ServerLog,
			InvoiceService: services.Invoices,
			Resolver:       resolver,
		}),
		jwtConfigs:     append([]config.JWTConfig(nil), cfg.JWTConfigs...),
		jwtAudience:    cfg.JWTAudience,
		addr:           cfg.Addr,
		allowedOrigins: append([]string(nil), cfg.AllowedOrigins...),
	}
}
