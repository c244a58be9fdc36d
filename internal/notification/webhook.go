package notification

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Webhook POSTs each report as JSON to a fixed endpoint.
type Webhook struct {
	url    string
	client *http.Client
	now    func() time.Time
}

// NewWebhook creates a webhook notifier for url.
func NewWebhook(url string) *Webhook {
	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: defaultTimeout},
		now:    time.Now,
	}
}

type webhookPayload struct {
	Symbol string `json:"symbol"`
	Report string `json:"report"`
	TS     string `json:"ts"`
}

// Publish delivers one report.
func (w *Webhook) Publish(ctx context.Context, symbol, report string) error {
	err := postJSON(ctx, w.client, w.url, webhookPayload{
		Symbol: symbol,
		Report: report,
		TS:     w.now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	slog.Debug("report sent", "component", "notification", "channel", "webhook", "symbol", symbol)
	return nil
}
