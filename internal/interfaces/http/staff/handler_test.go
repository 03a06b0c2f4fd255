package staff

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sngm3741/guide-ops/api/internal/billing/application"
	"github.com/sngm3741/guide-ops/api/internal/billing/domain"
	"github.com/sngm3741/guide-ops/api/internal/interfaces/http/common"
)

type stubVisitService struct {
	recorded   []application.RecordVisitCommand
	recordErr  error
	lastFilter application.VisitFilter
	lastNow    time.Time
	lastMonth  [2]int
	deleted    []string
	deleteErr  error
	today      []domain.VisitRecord
	groups     []domain.DailyGroup
}

func (s *stubVisitService) Record(_ context.Context, cmd application.RecordVisitCommand) (*domain.VisitRecord, error) {
	if s.recordErr != nil {
		return nil, s.recordErr
	}
	s.recorded = append(s.recorded, cmd)
	guided := cmd.GuidedAt
	if guided.IsZero() {
		guided = time.Date(2025, 8, 1, 0, 30, 0, 0, domain.JST)
	}
	return &domain.VisitRecord{
		ID:         "v1",
		StoreID:    cmd.StoreID,
		GuestCount: cmd.GuestCount,
		StaffName:  cmd.StaffName,
		StaffType:  cmd.StaffType,
		GuidedAt:   guided.UTC(),
		RequestID:  "6f1c1a4e-3b0a-4c1e-9d43-0d4f2f3b1a11",
	}, nil
}

func (s *stubVisitService) ListBusinessDay(context.Context, string, application.VisitFilter) ([]domain.VisitRecord, error) {
	return nil, nil
}

func (s *stubVisitService) Today(_ context.Context, now time.Time, filter application.VisitFilter) (string, []domain.VisitRecord, error) {
	s.lastNow, s.lastFilter = now, filter
	return domain.DefaultResolver().BusinessDateOf(now), s.today, nil
}

func (s *stubVisitService) DailyGroups(_ context.Context, year, month int, filter application.VisitFilter) ([]domain.DailyGroup, error) {
	s.lastMonth, s.lastFilter = [2]int{year, month}, filter
	return s.groups, nil
}

func (s *stubVisitService) Delete(_ context.Context, id string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deleted = append(s.deleted, id)
	return nil
}

func newTestRouter(svc *stubVisitService, user common.AuthenticatedUser) http.Handler {
	h := NewHandler(Config{VisitService: svc})
	h.now = func() time.Time { return time.Date(2025, 8, 1, 0, 45, 0, 0, domain.JST) }
	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(common.ContextWithUser(r.Context(), user)))
		})
	})
	router.Route("/staff", h.Register)
	return router
}

func serve(t *testing.T, handler http.Handler, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	var decoded map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func TestVisitCreate_StaffTypeComesFromRole(t *testing.T) {
	cases := []struct {
		name string
		user common.AuthenticatedUser
		body string
		want domain.StaffType
	}{
		{"staff", common.AuthenticatedUser{ID: "u1", Name: "taro", Role: common.RoleStaff}, `{"storeId":"s1","guestCount":2,"staffType":"outstaff"}`, domain.StaffTypeStaff},
		{"outstaff", common.AuthenticatedUser{ID: "u2", Role: common.RoleOutstaff}, `{"storeId":"s1","guestCount":2}`, domain.StaffTypeOutstaff},
		{"admin chooses", common.AuthenticatedUser{ID: "u3", Role: common.RoleAdmin}, `{"storeId":"s1","guestCount":2,"staffType":"outstaff"}`, domain.StaffTypeOutstaff},
		{"admin default", common.AuthenticatedUser{ID: "u3", Role: common.RoleAdmin}, `{"storeId":"s1","guestCount":2}`, domain.StaffTypeStaff},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubVisitService{}
			rec, body := serve(t, newTestRouter(svc, tc.user), http.MethodPost, "/staff/visits", tc.body)
			require.Equal(t, http.StatusCreated, rec.Code)
			require.Len(t, svc.recorded, 1)
			assert.Equal(t, tc.want, svc.recorded[0].StaffType)
			assert.Equal(t, tc.user.DisplayName(), svc.recorded[0].StaffName)
			assert.Equal(t, "2025-07-31", body["businessDate"])
			assert.Equal(t, "2025-08-01", body["localDate"])
		})
	}
}

func TestVisitCreate_Rejections(t *testing.T) {
	user := common.AuthenticatedUser{ID: "u1", Role: common.RoleStaff}

	for _, body := range []string{
		`{"storeId":"s1","guestCount":0}`,
		`{"guestCount":1}`,
		`{"storeId":"s1","guestCount":1,"requestId":"abc"}`,
		`{"storeId":"s1","guestCount":1,"guidedAt":"yesterday"}`,
	} {
		rec, _ := serve(t, newTestRouter(&stubVisitService{}, user), http.MethodPost, "/staff/visits", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}

	rec, _ := serve(t, newTestRouter(&stubVisitService{recordErr: application.ErrDuplicateVisit}, user), http.MethodPost, "/staff/visits", `{"storeId":"s1","guestCount":1}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = serve(t, newTestRouter(&stubVisitService{recordErr: application.ErrStoreNotFound}, user), http.MethodPost, "/staff/visits", `{"storeId":"s1","guestCount":1}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestVisitCreate_PassesGuidedAt(t *testing.T) {
	svc := &stubVisitService{}
	user := common.AuthenticatedUser{ID: "u1", Role: common.RoleStaff}
	rec, _ := serve(t, newTestRouter(svc, user), http.MethodPost, "/staff/visits", `{"storeId":"s1","guestCount":1,"guidedAt":"2025-07-31T23:59:00+09:00"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, svc.recorded[0].GuidedAt.Equal(time.Date(2025, 7, 31, 14, 59, 0, 0, time.UTC)))
}

func TestVisitToday_OutstaffSeesOwnType(t *testing.T) {
	svc := &stubVisitService{today: []domain.VisitRecord{
		{ID: "v1", GuestCount: 2, StaffType: domain.StaffTypeOutstaff, GuidedAt: time.Date(2025, 7, 31, 22, 0, 0, 0, domain.JST)},
		{ID: "v2", GuestCount: 1, StaffType: domain.StaffTypeOutstaff, GuidedAt: time.Date(2025, 8, 1, 0, 10, 0, 0, domain.JST)},
	}}
	user := common.AuthenticatedUser{ID: "u1", Role: common.RoleOutstaff}

	rec, body := serve(t, newTestRouter(svc, user), http.MethodGet, "/staff/visits/today?staffType=staff", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.StaffTypeOutstaff, svc.lastFilter.StaffType)
	assert.Equal(t, "2025-07-31", body["businessDate"])
	assert.Equal(t, float64(3), body["guestCount"])
	assert.Len(t, body["items"], 2)
}

func TestVisitDaily(t *testing.T) {
	svc := &stubVisitService{groups: []domain.DailyGroup{
		{Date: "2025-07-31", GuestCount: 1, Visits: []domain.VisitRecord{{ID: "v1", GuestCount: 1, StaffType: domain.StaffTypeStaff}}},
	}}
	user := common.AuthenticatedUser{ID: "u1", Role: common.RoleStaff}
	router := newTestRouter(svc, user)

	rec, body := serve(t, router, http.MethodGet, "/staff/visits/daily?month=2025-07&staffType=outstaff", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, [2]int{2025, 7}, svc.lastMonth)
	assert.Equal(t, domain.StaffTypeOutstaff, svc.lastFilter.StaffType)
	items := body["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "2025-07-31", items[0].(map[string]any)["date"])

	rec, _ = serve(t, router, http.MethodGet, "/staff/visits/daily?month=2025-00", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVisitDelete(t *testing.T) {
	svc := &stubVisitService{}
	user := common.AuthenticatedUser{ID: "u1", Role: common.RoleStaff}

	rec, _ := serve(t, newTestRouter(svc, user), http.MethodDelete, "/staff/visits/v1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"v1"}, svc.deleted)

	rec, _ = serve(t, newTestRouter(&stubVisitService{deleteErr: application.ErrVisitNotFound}, user), http.MethodDelete, "/staff/visits/v9", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
