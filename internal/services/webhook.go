package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"chatserver/internal/config"

	"github.com/go-resty/resty/v2"
)

// ModerationEvent is the payload delivered to an operator-facing
// webhook whenever a caution or ban transition happens. Chat clients
// never see this; it exists purely for operator/admin visibility into
// moderation activity.
type ModerationEvent struct {
	ChatName  string    `json:"chat_name"`
	UserName  string    `json:"user_name"`
	Cautions  int       `json:"cautions"`
	Banned    bool      `json:"banned"`
	Timestamp time.Time `json:"timestamp"`
}

// WebhookNotifier delivers ModerationEvents to an external URL with
// retry/backoff. An empty URL disables delivery entirely: Notify
// becomes a no-op.
type WebhookNotifier struct {
	client *resty.Client
	url    string
}

func NewWebhookNotifier(cfg config.WebhookConfig) *WebhookNotifier {
	client := resty.New()
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5
	}
	client.SetTimeout(time.Duration(timeout) * time.Second)
	client.SetRetryCount(cfg.Retries)
	client.SetRetryWaitTime(500 * time.Millisecond)
	client.SetRetryMaxWaitTime(5 * time.Second)
	client.SetHeader("Content-Type", "application/json")

	client.AddRetryCondition(func(r *resty.Response, err error) bool {
		if err != nil {
			return true
		}
		return r.StatusCode() >= 500
	})

	return &WebhookNotifier{client: client, url: cfg.URL}
}

// Notify delivers ev synchronously; callers that must not block a
// request on network I/O should run this from the worker pool
// instead (component L).
func (w *WebhookNotifier) Notify(ctx context.Context, ev ModerationEvent) error {
	if w.url == "" {
		return nil
	}

	resp, err := w.client.R().
		SetContext(ctx).
		SetBody(ev).
		Post(w.url)
	if err != nil {
		slog.Warn("moderation webhook delivery failed", "error", err)
		return fmt.Errorf("moderation webhook delivery failed: %w", err)
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		slog.Warn("moderation webhook rejected event", "status", resp.StatusCode())
		return fmt.Errorf("moderation webhook rejected event: status %d", resp.StatusCode())
	}
	return nil
}

// Enabled reports whether a webhook URL was configured.
func (w *WebhookNotifier) Enabled() bool {
	return w.url != ""
}
