package admin

import (
	"context"
	"net/http"

	"github.com/sngm3741/guide-ops/api/internal/interfaces/http/common"
)

// invoiceListHandler は全店舗の月次請求を並列で計算して返す。
func (h *Handler) invoiceListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		year, month, err := common.MonthQuery(r, h.resolver, h.now())
		if err != nil {
			common.WriteError(h.logger, w, err, "")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), common.ReportTimeout)
		defer cancel()

		invoices, err := h.invoiceService.AllStores(ctx, year, month)
		if err != nil {
			common.WriteError(h.logger, w, err, "請求書の計算に失敗しました")
			return
		}

		total := 0
		for _, inv := range invoices {
			total += inv.Invoice.Total
		}
		common.WriteJSON(h.logger, w, http.StatusOK, map[string]any{
			"year":  year,
			"month": month,
			"total": total,
			"items": common.NewInvoiceResponses(invoices),
		})
	}
}
