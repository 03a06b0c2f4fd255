package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sngm3741/guide-ops/api/internal/billing/domain"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// エラーメッセージには json タグ名を使う
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	return v
}

// DecodeJSON はリクエストボディを読み込み、validate タグで検証する。
func DecodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, MaxRequestBody))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return &domain.ValidationError{Reason: "リクエストの形式が不正です"}
	}
	return ValidateStruct(dst)
}

// ValidateStruct は最初の違反フィールドを *domain.ValidationError にする。
func ValidateStruct(s any) error {
	if err := validate.Struct(s); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
			first := validationErrors[0]
			return &domain.ValidationError{Field: first.Field(), Reason: fmt.Sprintf("不正な値です (%s)", first.Tag())}
		}
		return fmt.Errorf("入力値の検証に失敗しました: %w", err)
	}
	return nil
}
