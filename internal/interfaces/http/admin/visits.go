package admin

import (
	"context"
	"net/http"
	"strings"

	"github.com/sngm3741/guide-ops/api/internal/billing/application"
	"github.com/sngm3741/guide-ops/api/internal/interfaces/http/common"
)

// visitListHandler は ?date=YYYY-MM-DD の営業日 (01:00 起点) の案内記録を返す。
// date 未指定なら現在の営業日。
func (h *Handler) visitListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		queryValues := r.URL.Query()
		staffType, err := common.StaffTypeQuery(r)
		if err != nil {
			common.WriteError(h.logger, w, err, "")
			return
		}
		filter := application.VisitFilter{
			StoreID:   strings.TrimSpace(queryValues.Get("storeId")),
			StaffType: staffType,
		}

		ctx, cancel := context.WithTimeout(r.Context(), common.RequestTimeout)
		defer cancel()

		date := strings.TrimSpace(queryValues.Get("date"))
		if date == "" {
			date = h.resolver.BusinessDateOf(h.now())
		}
		visits, err := h.visitService.ListBusinessDay(ctx, date, filter)
		if err != nil {
			common.WriteError(h.logger, w, err, "案内記録の取得に失敗しました")
			return
		}

		total := 0
		for _, v := range visits {
			total += v.GuestCount
		}
		common.WriteJSON(h.logger, w, http.StatusOK, map[string]any{
			"date":       date,
			"guestCount": total,
			"items":      common.NewVisitResponses(visits, h.resolver),
		})
	}
}
