package staff

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sngm3741/guide-ops/api/internal/billing/application"
	"github.com/sngm3741/guide-ops/api/internal/billing/domain"
	"github.com/sngm3741/guide-ops/api/internal/interfaces/http/common"
)

type visitCreateRequest struct {
	StoreID    string     `json:"storeId" validate:"required"`
	GuestCount int        `json:"guestCount" validate:"gt=0"`
	GuidedAt   *time.Time `json:"guidedAt"`
	StaffType  string     `json:"staffType" validate:"omitempty,oneof=staff outstaff"`
	RequestID  string     `json:"requestId" validate:"omitempty,uuid"`
}

func (h *Handler) visitCreateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := common.UserFromContext(r.Context())

		var req visitCreateRequest
		if err := common.DecodeJSON(r, &req); err != nil {
			common.WriteError(h.logger, w, err, "リクエストの検証に失敗しました")
			return
		}

		staffType, err := staffTypeFor(user, req.StaffType)
		if err != nil {
			common.WriteError(h.logger, w, err, "")
			return
		}

		cmd := application.RecordVisitCommand{
			StoreID:    req.StoreID,
			GuestCount: req.GuestCount,
			StaffName:  user.DisplayName(),
			StaffType:  staffType,
			RequestID:  req.RequestID,
		}
		if req.GuidedAt != nil {
			cmd.GuidedAt = *req.GuidedAt
		}

		ctx, cancel := context.WithTimeout(r.Context(), common.RequestTimeout)
		defer cancel()

		visit, err := h.visitService.Record(ctx, cmd)
		if err != nil {
			common.WriteError(h.logger, w, err, "案内記録の保存に失敗しました")
			return
		}

		common.WriteJSON(h.logger, w, http.StatusCreated, common.NewVisitResponse(*visit, h.resolver))
	}
}

func (h *Handler) visitTodayHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := h.listFilter(r)
		if err != nil {
			common.WriteError(h.logger, w, err, "")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), common.RequestTimeout)
		defer cancel()

		date, visits, err := h.visitService.Today(ctx, h.now(), filter)
		if err != nil {
			common.WriteError(h.logger, w, err, "本日の案内記録の取得に失敗しました")
			return
		}

		total := 0
		for _, v := range visits {
			total += v.GuestCount
		}
		common.WriteJSON(h.logger, w, http.StatusOK, map[string]any{
			"businessDate": date,
			"guestCount":   total,
			"items":        common.NewVisitResponses(visits, h.resolver),
		})
	}
}

// visitDailyHandler は暦日 (0 時区切り) ごとのグループを新しい日付順で返す。
func (h *Handler) visitDailyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		year, month, err := common.MonthQuery(r, h.resolver, h.now())
		if err != nil {
			common.WriteError(h.logger, w, err, "")
			return
		}
		filter, err := h.listFilter(r)
		if err != nil {
			common.WriteError(h.logger, w, err, "")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), common.RequestTimeout)
		defer cancel()

		groups, err := h.visitService.DailyGroups(ctx, year, month, filter)
		if err != nil {
			common.WriteError(h.logger, w, err, "日別の案内記録の取得に失敗しました")
			return
		}

		common.WriteJSON(h.logger, w, http.StatusOK, map[string]any{
			"year":  year,
			"month": month,
			"items": common.NewDailyGroupResponses(groups, h.resolver),
		})
	}
}

func (h *Handler) visitDeleteHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idParam := strings.TrimSpace(chi.URLParam(r, "id"))

		ctx, cancel := context.WithTimeout(r.Context(), common.RequestTimeout)
		defer cancel()

		if err := h.visitService.Delete(ctx, idParam); err != nil {
			common.WriteError(h.logger, w, err, "案内記録の削除に失敗しました")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// listFilter は outstaff には自分の区分しか見せない。
func (h *Handler) listFilter(r *http.Request) (application.VisitFilter, error) {
	filter := application.VisitFilter{StoreID: strings.TrimSpace(r.URL.Query().Get("storeId"))}
	user, _ := common.UserFromContext(r.Context())
	if user.Role == common.RoleOutstaff {
		filter.StaffType = domain.StaffTypeOutstaff
		return filter, nil
	}
	staffType, err := common.StaffTypeQuery(r)
	if err != nil {
		return application.VisitFilter{}, err
	}
	filter.StaffType = staffType
	return filter, nil
}

// staffTypeFor はロールから区分を決める。admin だけはボディで指定できる。
func staffTypeFor(user common.AuthenticatedUser, requested string) (domain.StaffType, error) {
	switch user.Role {
	case common.RoleStaff:
		return domain.StaffTypeStaff, nil
	case common.RoleOutstaff:
		return domain.StaffTypeOutstaff, nil
	}
	if strings.TrimSpace(requested) == "" {
		return domain.StaffTypeStaff, nil
	}
	return domain.ParseStaffType(requested)
}
