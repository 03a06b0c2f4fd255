package customer

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sngm3741/guide-ops/api/internal/billing/application"
	"github.com/sngm3741/guide-ops/api/internal/billing/domain"
	"github.com/sngm3741/guide-ops/api/internal/interfaces/http/common"
)

// Handler は店舗オーナー向けの請求書・明細エンドポイント。
type Handler struct {
	logger         *log.Logger
	invoiceService application.InvoiceService
	resolver       *domain.Resolver
	now            func() time.Time
}

type Config struct {
	Logger         *log.Logger
	InvoiceService application.InvoiceService
	Resolver       *domain.Resolver
}

func NewHandler(cfg Config) *Handler {
	resolver := cfg.Resolver
	if resolver == nil {
		resolver = domain.DefaultResolver()
	}
	return &Handler{
		logger:         cfg.Logger,
		invoiceService: cfg.InvoiceService,
		resolver:       resolver,
		now:            time.Now,
	}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/invoice", h.invoiceHandler())
	r.Get("/statement", h.statementHandler())
}

func (h *Handler) invoiceHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storeID, ok := h.targetStore(w, r)
		if !ok {
			return
		}
		year, month, err := common.MonthQuery(r, h.resolver, h.now())
		if err != nil {
			common.WriteError(h.logger, w, err, "")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), common.RequestTimeout)
		defer cancel()

		invoice, err := h.invoiceService.MonthlyInvoice(ctx, storeID, year, month)
		if err != nil {
			common.WriteError(h.logger, w, err, "請求書の取得に失敗しました")
			return
		}

		common.WriteJSON(h.logger, w, http.StatusOK, common.NewInvoiceResponse(*invoice))
	}
}

// statementHandler は 1 年分 (1〜12 月) の月次集計と請求額を返す。
func (h *Handler) statementHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storeID, ok := h.targetStore(w, r)
		if !ok {
			return
		}
		year, err := common.YearQuery(r, h.resolver, h.now())
		if err != nil {
			common.WriteError(h.logger, w, err, "")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), common.RequestTimeout)
		defer cancel()

		invoices, err := h.invoiceService.Statement(ctx, storeID, year)
		if err != nil {
			common.WriteError(h.logger, w, err, "年間明細の取得に失敗しました")
			return
		}

		guests, total := 0, 0
		for _, inv := range invoices {
			guests += inv.Aggregate.GuestCount
			total += inv.Invoice.Total
		}
		common.WriteJSON(h.logger, w, http.StatusOK, map[string]any{
			"storeId":    storeID,
			"year":       year,
			"guestCount": guests,
			"total":      total,
			"months":     common.NewInvoiceResponses(invoices),
		})
	}
}

// targetStore は store_owner ならトークンの店舗、admin ならクエリの storeId を使う。
func (h *Handler) targetStore(w http.ResponseWriter, r *http.Request) (string, bool) {
	user, _ := common.UserFromContext(r.Context())
	requested := strings.TrimSpace(r.URL.Query().Get("storeId"))

	switch user.Role {
	case common.RoleStoreOwner:
		own := strings.TrimSpace(user.StoreID)
		if own == "" {
			common.WriteJSON(h.logger, w, http.StatusForbidden, map[string]string{"error": "店舗が紐付いていないアカウントです"})
			return "", false
		}
		if requested != "" && requested != own {
			common.WriteJSON(h.logger, w, http.StatusForbidden, map[string]string{"error": "他店舗の請求書は参照できません"})
			return "", false
		}
		return own, true
	case common.RoleAdmin:
		if requested == "" {
			common.WriteJSON(h.logger, w, http.StatusBadRequest, map[string]string{"error": "storeId を指定してください"})
			return "", false
		}
		return requested, true
	}
	common.WriteJSON(h.logger, w, http.StatusForbidden, map[string]string{"error": "この操作を行う権限がありません"})
	return "", false
}
