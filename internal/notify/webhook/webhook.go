// Package webhook displays notifications by POSTing them as JSON to an
// HTTP endpoint (chat incoming-webhooks, home automation, etc.).
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/nhle/taskflow/internal/notify"
)

// Payload is the JSON body sent for each notification.
type Payload struct {
	Title              string    `json:"title"`
	Body               string    `json:"body,omitempty"`
	Tag                string    `json:"tag"`
	RequireInteraction bool      `json:"require_interaction"`
	SentAt             time.Time `json:"sent_at"`
}

// Notifier posts notifications to a webhook URL and retries with
// exponential backoff on HTTP 429.
type Notifier struct {
	url        string
	httpClient *http.Client
	maxRetries int
	now        func() time.Time
}

// New creates a webhook notifier for url.
func New(url string) *Notifier {
	return &Notifier{
		url: url,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		maxRetries: 3,
		now:        time.Now,
	}
}

// RequestPermission grants as long as a URL is configured.
func (n *Notifier) RequestPermission(context.Context) (notify.Permission, error) {
	if n.url == "" {
		return notify.PermissionDenied, nil
	}
	return notify.PermissionGranted, nil
}

// Show posts d to the webhook.
func (n *Notifier) Show(ctx context.Context, d notify.Display) error {
	data, err := json.Marshal(Payload{
		Title:              d.Title,
		Body:               d.Body,
		Tag:                d.Tag,
		RequireInteraction: d.RequireInteraction,
		SentAt:             n.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshaling webhook payload: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= n.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("creating webhook request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := n.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("posting webhook: %w", err)
		}

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		if readErr != nil {
			return fmt.Errorf("reading webhook response: %w", readErr)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429) by webhook")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryAfterDuration(resp, attempt)):
				continue
			}
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, string(body))
		}
		return nil
	}

	return fmt.Errorf("max retries (%d) exceeded: %w", n.maxRetries, lastErr)
}

// retryAfterDuration reads the Retry-After header and falls back to
// exponential backoff.
func retryAfterDuration(resp *http.Response, attempt int) time.Duration {
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}

	// 1s, 2s, 4s, ... capped at 30s.
	backoff := time.Duration(1<<uint(attempt)) * time.Second
	if backoff > 30*time.Second {
		backoff = 30 * time.Second
	}
	return backoff
}
