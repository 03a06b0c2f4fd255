package messenger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sngm3741/guide-ops/api/internal/billing/domain"
)

const (
	discordAttempts = 3
	slackAttempts   = 1
	retryDelay      = 200 * time.Millisecond
	deliveryTimeout = 30 * time.Second
	saveTimeout     = 5 * time.Second
)

// FailureStore は全チャネル失敗時の通知を保存する先。
type FailureStore interface {
	Save(ctx context.Context, target string, payload map[string]string, cause error, attempts int) error
}

// Config は messenger-gateway への接続設定。
type Config struct {
	Endpoint           string
	DiscordDestination string
	SlackDestination   string
	AdminBaseURL       string
	HTTPClient         *http.Client
	Failures           FailureStore
	Logger             *log.Logger
	Resolver           *domain.Resolver
}

// AdminNotifier は案内記録を管理者チャネル (Discord → Slack) へ通知する。
type AdminNotifier struct {
	endpoint     string
	discordDest  string
	slackDest    string
	adminBaseURL string
	httpClient   *http.Client
	failures     FailureStore
	logger       *log.Logger
	resolver     *domain.Resolver
	retryDelay   time.Duration
}

func NewAdminNotifier(cfg Config) *AdminNotifier {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 3 * time.Second}
	}
	resolver := cfg.Resolver
	if resolver == nil {
		resolver = domain.DefaultResolver()
	}
	return &AdminNotifier{
		endpoint:     strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/"),
		discordDest:  strings.TrimSpace(cfg.DiscordDestination),
		slackDest:    strings.TrimSpace(cfg.SlackDestination),
		adminBaseURL: strings.TrimRight(strings.TrimSpace(cfg.AdminBaseURL), "/"),
		httpClient:   client,
		failures:     cfg.Failures,
		logger:       cfg.Logger,
		resolver:     resolver,
		retryDelay:   retryDelay,
	}
}

// VisitRecorded は通知を送る。失敗してもエラーは返さず、ログと failed_notifications に残す。
// 呼び出し元の期限やキャンセルには従わず、deliveryTimeout を上限に送信する。
func (n *AdminNotifier) VisitRecorded(ctx context.Context, store domain.Store, visit domain.VisitRecord) {
	if n.discordDest == "" && n.slackDest == "" {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deliveryTimeout)
	defer cancel()

	identifier := visit.ID
	if identifier == "" {
		identifier = visit.RequestID
	}
	if identifier == "" {
		identifier = "admin"
	}

	var discordErr, slackErr error
	attempts := 0

	if n.discordDest != "" {
		discordErr = n.sendWithRetry(ctx, n.discordDest, identifier, n.discordMessage(store, visit), discordAttempts)
		attempts += discordAttempts
		if discordErr == nil {
			return
		}
		n.logf("Discord通知の送信に失敗: %v", discordErr)
	}

	if n.slackDest != "" {
		slackErr = n.sendWithRetry(ctx, n.slackDest, identifier, n.slackMessage(store, visit), slackAttempts)
		attempts += slackAttempts
		if slackErr == nil {
			return
		}
		n.logf("Slack通知の送信に失敗: %v", slackErr)
	}

	n.persistFailure(ctx, store, visit, errors.Join(discordErr, slackErr), attempts)
}

func (n *AdminNotifier) discordMessage(store domain.Store, visit domain.VisitRecord) string {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("**%s** が案内を記録しました。\n", staffDisplayName(visit)))
	builder.WriteString(fmt.Sprintf("- 店舗: %s\n", store.DisplayName()))
	builder.WriteString(fmt.Sprintf("- 人数: %d名\n", visit.GuestCount))
	builder.WriteString(fmt.Sprintf("- 日時: %s (営業日 %s)\n", n.formatGuidedAt(visit.GuidedAt), n.resolver.BusinessDateOf(visit.GuidedAt)))
	if visit.ConsumedRequest {
		builder.WriteString(fmt.Sprintf("- リクエスト消化 (残り %d)\n", store.RemainingRequests))
	}
	if n.adminBaseURL != "" && visit.ID != "" {
		builder.WriteString(fmt.Sprintf("[管理画面で確認](%s/%s)\n", n.adminBaseURL, visit.ID))
	}
	return builder.String()
}

func (n *AdminNotifier) slackMessage(store domain.Store, visit domain.VisitRecord) string {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf(":warning: %s さんが案内を記録しました。\n", staffDisplayName(visit)))
	builder.WriteString(fmt.Sprintf("店舗: %s\n", store.DisplayName()))
	builder.WriteString(fmt.Sprintf("人数: %d名\n", visit.GuestCount))
	builder.WriteString(fmt.Sprintf("日時: %s\n", n.formatGuidedAt(visit.GuidedAt)))
	if n.adminBaseURL != "" && visit.ID != "" {
		builder.WriteString(fmt.Sprintf("管理画面: %s/%s\n", n.adminBaseURL, visit.ID))
	}
	return builder.String()
}

func (n *AdminNotifier) formatGuidedAt(t time.Time) string {
	return t.In(n.resolver.Zone()).Format("2006-01-02 15:04")
}

func staffDisplayName(visit domain.VisitRecord) string {
	name := strings.TrimSpace(visit.StaffName)
	if name == "" {
		name = "スタッフ"
	}
	if visit.StaffType == domain.StaffTypeOutstaff {
		return name + " (外部)"
	}
	return name
}

func (n *AdminNotifier) sendWithRetry(ctx context.Context, destination, userID, text string, attempts int) error {
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := n.send(ctx, destination, userID, text); err == nil {
			return nil
		} else {
			lastErr = err
		}
		if n.retryDelay > 0 && i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(n.retryDelay):
			}
		}
	}
	return lastErr
}

func (n *AdminNotifier) send(ctx context.Context, destination, userID, text string) error {
	if n.endpoint == "" {
		return errors.New("messenger endpoint is empty")
	}
	body, err := json.Marshal(map[string]string{
		"userId":      userID,
		"text":        text,
		"destination": destination,
	})
	if err != nil {
		return fmt.Errorf("メッセンジャー送信用ペイロードの作成に失敗: %w", err)
	}

	timeout := n.httpClient.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctxWithTimeout, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctxWithTimeout, http.MethodPost, n.endpoint+"/messages", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("メッセンジャー送信リクエストの作成に失敗: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("メッセンジャー送信リクエストに失敗: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		message, _ := io.ReadAll(io.LimitReader(res.Body, 1<<16))
		return fmt.Errorf("メッセンジャー送信でエラーが発生: status=%d body=%s", res.StatusCode, strings.TrimSpace(string(message)))
	}
	return nil
}

func (n *AdminNotifier) persistFailure(ctx context.Context, store domain.Store, visit domain.VisitRecord, cause error, attempts int) {
	if n.failures == nil || cause == nil {
		return
	}
	payload := map[string]string{
		"visitId":    visit.ID,
		"requestId":  visit.RequestID,
		"storeId":    store.ID,
		"storeName":  store.DisplayName(),
		"staffName":  visit.StaffName,
		"staffType":  string(visit.StaffType),
		"guestCount": strconv.Itoa(visit.GuestCount),
		"guidedAt":   visit.GuidedAt.UTC().Format(time.RFC3339),
	}
	// 送信で期限を使い切っていても保存は行う
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
	defer cancel()
	if err := n.failures.Save(saveCtx, "admin_notification", payload, cause, attempts); err != nil {
		n.logf("failed_notifications への保存に失敗: %v", err)
	}
}

func (n *AdminNotifier) logf(format string, args ...any) {
	if n.logger != nil {
		n.logger.Printf(format, args...)
	}
}
