package messenger

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sngm3741/guide-ops/api/internal/billing/domain"
)

type gatewayCall struct {
	UserID      string `json:"userId"`
	Text        string `json:"text"`
	Destination string `json:"destination"`
}

type fakeGateway struct {
	mu        sync.Mutex
	calls     []gatewayCall
	failDests map[string]bool
}

func (g *fakeGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var call gatewayCall
	_ = json.NewDecoder(r.Body).Decode(&call)
	g.mu.Lock()
	g.calls = append(g.calls, call)
	fail := g.failDests[call.Destination]
	g.mu.Unlock()
	if r.URL.Path != "/messages" || fail {
		http.Error(w, "boom", http.StatusBadGateway)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (g *fakeGateway) destinations() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, 0, len(g.calls))
	for _, c := range g.calls {
		out = append(out, c.Destination)
	}
	return out
}

type recordingFailures struct {
	target   string
	payload  map[string]string
	cause    error
	attempts int
	saved    int
	ctxErr   error
}

func (r *recordingFailures) Save(ctx context.Context, target string, payload map[string]string, cause error, attempts int) error {
	r.target, r.payload, r.cause, r.attempts = target, payload, cause, attempts
	r.ctxErr = ctx.Err()
	r.saved++
	return nil
}

func testVisit() (domain.Store, domain.VisitRecord) {
	store := domain.Store{ID: "s1", Name: "Club A", BranchName: "歌舞伎町", RemainingRequests: 2}
	visit := domain.VisitRecord{
		ID:         "v1",
		StoreID:    "s1",
		GuestCount: 3,
		StaffName:  "taro",
		StaffType:  domain.StaffTypeOutstaff,
		GuidedAt:   time.Date(2025, 8, 1, 0, 30, 0, 0, domain.JST),
		RequestID:  "r1",
	}
	return store, visit
}

func newTestNotifier(endpoint string, failures FailureStore) *AdminNotifier {
	n := NewAdminNotifier(Config{
		Endpoint:           endpoint,
		DiscordDestination: "discord",
		SlackDestination:   "slack",
		AdminBaseURL:       "https://admin.example.com/visits/",
		Failures:           failures,
	})
	n.retryDelay = 0
	return n
}

func TestAdminNotifier_DiscordSuccess(t *testing.T) {
	gateway := &fakeGateway{}
	srv := httptest.NewServer(gateway)
	defer srv.Close()

	failures := &recordingFailures{}
	store, visit := testVisit()
	newTestNotifier(srv.URL, failures).VisitRecorded(context.Background(), store, visit)

	require.Equal(t, []string{"discord"}, gateway.destinations())
	text := gateway.calls[0].Text
	assert.Contains(t, text, "taro (外部)")
	assert.Contains(t, text, "Club A 歌舞伎町")
	assert.Contains(t, text, "2025-08-01 00:30")
	assert.Contains(t, text, "営業日 2025-07-31")
	assert.Contains(t, text, "https://admin.example.com/visits/v1")
	assert.Equal(t, "v1", gateway.calls[0].UserID)
	assert.Zero(t, failures.saved)
}

func TestAdminNotifier_FallsBackToSlack(t *testing.T) {
	gateway := &fakeGateway{failDests: map[string]bool{"discord": true}}
	srv := httptest.NewServer(gateway)
	defer srv.Close()

	failures := &recordingFailures{}
	store, visit := testVisit()
	newTestNotifier(srv.URL, failures).VisitRecorded(context.Background(), store, visit)

	assert.Equal(t, []string{"discord", "discord", "discord", "slack"}, gateway.destinations())
	assert.Zero(t, failures.saved)
}

func TestAdminNotifier_PersistsWhenAllChannelsFail(t *testing.T) {
	gateway := &fakeGateway{failDests: map[string]bool{"discord": true, "slack": true}}
	srv := httptest.NewServer(gateway)
	defer srv.Close()

	failures := &recordingFailures{}
	store, visit := testVisit()
	newTestNotifier(srv.URL, failures).VisitRecorded(context.Background(), store, visit)

	require.Equal(t, 1, failures.saved)
	assert.Equal(t, "admin_notification", failures.target)
	assert.Equal(t, 4, failures.attempts)
	assert.Equal(t, "v1", failures.payload["visitId"])
	assert.Equal(t, "3", failures.payload["guestCount"])
	assert.Equal(t, "2025-07-31T15:30:00Z", failures.payload["guidedAt"])
	require.Error(t, failures.cause)
	assert.Contains(t, failures.cause.Error(), "status=502")
}

func TestAdminNotifier_SlowGatewayOutlivesCallerDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(80 * time.Millisecond)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	failures := &recordingFailures{}
	n := NewAdminNotifier(Config{
		Endpoint:           srv.URL,
		DiscordDestination: "discord",
		SlackDestination:   "slack",
		HTTPClient:         &http.Client{Timeout: 30 * time.Millisecond},
		Failures:           failures,
	})
	n.retryDelay = 0

	// 呼び出し元の期限が送信途中で切れても、全チャネル分試して失敗を保存する
	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()
	store, visit := testVisit()
	n.VisitRecorded(ctx, store, visit)

	require.Equal(t, 1, failures.saved)
	assert.Equal(t, 4, failures.attempts)
	assert.NoError(t, failures.ctxErr, "failure record must be saved with a live context")
	require.Error(t, failures.cause)
	assert.Contains(t, failures.cause.Error(), "メッセンジャー送信リクエストに失敗")
}

func TestAdminNotifier_NoDestinationsIsNoop(t *testing.T) {
	failures := &recordingFailures{}
	n := NewAdminNotifier(Config{Endpoint: "http://127.0.0.1:1", Failures: failures})
	store, visit := testVisit()
	n.VisitRecorded(context.Background(), store, visit)
	assert.Zero(t, failures.saved)
}

func TestAdminNotifier_SendRequiresEndpoint(t *testing.T) {
	n := NewAdminNotifier(Config{DiscordDestination: "discord"})
	err := n.send(context.Background(), "discord", "u", "hello")
	assert.True(t, err != nil && !errors.Is(err, context.Canceled))
}
