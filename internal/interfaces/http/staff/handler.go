package staff

import (
	"log"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sngm3741/guide-ops/api/internal/billing/application"
	"github.com/sngm3741/guide-ops/api/internal/billing/domain"
)

// Handler は案内スタッフ向けの記録・閲覧エンドポイント。
type Handler struct {
	logger       *log.Logger
	visitService application.VisitService
	resolver     *domain.Resolver
	now          func() time.Time
}

type Config struct {
	Logger       *log.Logger
	VisitService application.VisitService
	Resolver     *domain.Resolver
}

func NewHandler(cfg Config) *Handler {
	resolver := cfg.Resolver
	if resolver == nil {
		resolver = domain.DefaultResolver()
	}
	return &Handler{
		logger:       cfg.Logger,
		visitService: cfg.VisitService,
		resolver:     resolver,
		now:          time.Now,
	}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/visits", h.visitCreateHandler())
	r.Get("/visits/today", h.visitTodayHandler())
	r.Get("/visits/daily", h.visitDailyHandler())
	r.Delete("/visits/{id}", h.visitDeleteHandler())
}
