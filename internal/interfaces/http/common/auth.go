package common

import (
	"context"
	"net/http"
)

type contextKey string

const authUserContextKey contextKey = "authUser"

// Role は JWT の role クレーム。
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleStaff      Role = "staff"
	RoleOutstaff   Role = "outstaff"
	RoleStoreOwner Role = "store_owner"
)

// AuthenticatedUser represents the JWT-derived principal.
type AuthenticatedUser struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Username string `json:"username,omitempty"`
	Role     Role   `json:"role"`
	// StoreID は store_owner のみ。自店舗以外の請求書は見られない。
	StoreID string `json:"storeId,omitempty"`
}

// DisplayName は案内記録に残すスタッフ名。
func (u AuthenticatedUser) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	if u.Username != "" {
		return u.Username
	}
	return u.ID
}

// ContextWithUser stores the authenticated user into context.
func ContextWithUser(ctx context.Context, user AuthenticatedUser) context.Context {
	return context.WithValue(ctx, authUserContextKey, user)
}

// UserFromContext extracts the authenticated user from context.
func UserFromContext(ctx context.Context) (AuthenticatedUser, bool) {
	user, ok := ctx.Value(authUserContextKey).(AuthenticatedUser)
	return user, ok
}

// RequireRoles は認証済みユーザーのロールが許可リストに無ければ 403 を返す。
// 認証ミドルウェアの後段に置くこと。
func RequireRoles(roles ...Role) func(http.Handler) http.Handler {
	allowed := make(map[Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				WriteJSON(nil, w, http.StatusUnauthorized, map[string]string{"error": "認証が必要です"})
				return
			}
			if _, ok := allowed[user.Role]; !ok {
				WriteJSON(nil, w, http.StatusForbidden, map[string]string{"error": "この操作を行う権限がありません"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
