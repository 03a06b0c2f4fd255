package common

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/sngm3741/guide-ops/api/internal/billing/application"
	"github.com/sngm3741/guide-ops/api/internal/billing/domain"
)

// WriteJSON serializes payload to JSON with status and logs on failure.
func WriteJSON(logger *log.Logger, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil && logger != nil {
		logger.Printf("JSON エンコードに失敗: %v", err)
	}
}

// WriteError はアプリケーション層のエラーを HTTP ステータスへ変換する。
// 想定外のエラーはログに残し、クライアントには fallback のメッセージだけ返す。
func WriteError(logger *log.Logger, w http.ResponseWriter, err error, fallback string) {
	var dateErr *domain.InvalidDateError
	var validationErr *domain.ValidationError
	switch {
	case errors.As(err, &dateErr):
		WriteJSON(logger, w, http.StatusBadRequest, map[string]string{"error": dateErr.Error()})
	case errors.As(err, &validationErr):
		WriteJSON(logger, w, http.StatusBadRequest, map[string]string{"error": validationErr.Error()})
	case errors.Is(err, application.ErrStoreNotFound):
		WriteJSON(logger, w, http.StatusNotFound, map[string]string{"error": "店舗が見つかりません"})
	case errors.Is(err, application.ErrVisitNotFound):
		WriteJSON(logger, w, http.StatusNotFound, map[string]string{"error": "案内記録が見つかりません"})
	case errors.Is(err, application.ErrDuplicateVisit):
		WriteJSON(logger, w, http.StatusConflict, map[string]string{"error": "この案内は既に記録されています"})
	default:
		if logger != nil {
			logger.Printf("%s: %v", fallback, err)
		}
		WriteJSON(logger, w, http.StatusInternalServerError, map[string]string{"error": fallback})
	}
}
