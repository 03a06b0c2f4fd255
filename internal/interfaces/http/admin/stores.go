package admin

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sngm3741/guide-ops/api/internal/billing/application"
	"github.com/sngm3741/guide-ops/api/internal/billing/domain"
	"github.com/sngm3741/guide-ops/api/internal/interfaces/http/common"
)

func (h *Handler) storeSearchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), common.RequestTimeout)
		defer cancel()

		queryValues := r.URL.Query()
		keyword := strings.TrimSpace(queryValues.Get("keyword"))
		limit, _ := common.ParsePositiveInt(queryValues.Get("limit"), common.DefaultStoreLimit)

		stores, err := h.storeService.List(ctx, application.StoreFilter{Keyword: keyword, Limit: limit})
		if err != nil {
			common.WriteError(h.logger, w, err, "店舗一覧の取得に失敗しました")
			return
		}

		items := make([]adminStoreResponse, 0, len(stores))
		for _, store := range stores {
			items = append(items, h.storeToResponse(store))
		}

		common.WriteJSON(h.logger, w, http.StatusOK, map[string]any{"items": items})
	}
}

func (h *Handler) storeDetailHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idParam := strings.TrimSpace(chi.URLParam(r, "id"))

		ctx, cancel := context.WithTimeout(r.Context(), common.RequestTimeout)
		defer cancel()

		store, err := h.storeService.Detail(ctx, idParam)
		if err != nil {
			common.WriteError(h.logger, w, err, "店舗情報の取得に失敗しました")
			return
		}

		common.WriteJSON(h.logger, w, http.StatusOK, h.storeToResponse(*store))
	}
}

func (h *Handler) storeCreateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req adminStoreCreateRequest
		if err := common.DecodeJSON(r, &req); err != nil {
			common.WriteError(h.logger, w, err, "リクエストの検証に失敗しました")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), common.RequestTimeout)
		defer cancel()

		store, err := h.storeService.Create(ctx, application.CreateStoreCommand{
			Name:              req.Name,
			BranchName:        req.BranchName,
			Area:              req.Area,
			Terms:             req.Terms.toDomain(),
			MalePrice:         req.MalePrice,
			RemainingRequests: req.RemainingRequests,
		})
		if err != nil {
			common.WriteError(h.logger, w, err, "店舗の登録に失敗しました")
			return
		}

		common.WriteJSON(h.logger, w, http.StatusCreated, adminStoreCreateResponse{Store: h.storeToResponse(*store), Created: true})
	}
}

// storeTermsUpdateHandler は送られたフィールドだけ契約条件を上書きする。
func (h *Handler) storeTermsUpdateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idParam := strings.TrimSpace(chi.URLParam(r, "id"))

		var req adminTermsPayload
		if err := common.DecodeJSON(r, &req); err != nil {
			common.WriteError(h.logger, w, err, "リクエストの検証に失敗しました")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), common.RequestTimeout)
		defer cancel()

		store, err := h.storeService.UpdateTerms(ctx, idParam, req.toDomain())
		if err != nil {
			common.WriteError(h.logger, w, err, "契約条件の更新に失敗しました")
			return
		}

		common.WriteJSON(h.logger, w, http.StatusOK, h.storeToResponse(*store))
	}
}

func (h *Handler) storeToResponse(store domain.Store) adminStoreResponse {
	effective, err := h.storeService.ResolveTerms(store)
	if err != nil && h.logger != nil {
		h.logger.Printf("store terms resolve failed id=%s err=%v", store.ID, err)
	}
	return adminStoreResponse{
		ID:                store.ID,
		Name:              store.Name,
		BranchName:        store.BranchName,
		Area:              store.Area,
		Terms:             store.Terms,
		EffectiveTerms:    effective,
		MalePrice:         store.MalePrice,
		AdmitsMales:       store.AdmitsMales(),
		RemainingRequests: store.RemainingRequests,
		CreatedAt:         store.CreatedAt,
		UpdatedAt:         store.UpdatedAt,
	}
}
