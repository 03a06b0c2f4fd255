package admin

import (
	"log"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sngm3741/guide-ops/api/internal/billing/application"
	"github.com/sngm3741/guide-ops/api/internal/billing/domain"
)

// Handler wires admin HTTP endpoints to application services.
type Handler struct {
	logger         *log.Logger
	storeService   application.StoreService
	visitService   application.VisitService
	invoiceService application.InvoiceService
	resolver       *domain.Resolver
	now            func() time.Time
}

// Config provides dependencies for Handler.
type Config struct {
	Logger         *log.Logger
	StoreService   application.StoreService
	VisitService   application.VisitService
	InvoiceService application.InvoiceService
	Resolver       *domain.Resolver
}

// NewHandler constructs an admin HTTP handler set.
func NewHandler(cfg Config) *Handler {
	resolver := cfg.Resolver
	if resolver == nil {
		resolver = domain.DefaultResolver()
	}
	return &Handler{
		logger:         cfg.Logger,
		storeService:   cfg.StoreService,
		visitService:   cfg.VisitService,
		invoiceService: cfg.InvoiceService,
		resolver:       resolver,
		now:            time.Now,
	}
}

// Register mounts admin routes onto router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/stores", h.storeSearchHandler())
	r.Get("/stores/{id}", h.storeDetailHandler())
	r.Post("/stores", h.storeCreateHandler())
	r.Patch("/stores/{id}/terms", h.storeTermsUpdateHandler())
	r.Get("/visits", h.visitListHandler())
	r.Get("/invoices", h.invoiceListHandler())
}
