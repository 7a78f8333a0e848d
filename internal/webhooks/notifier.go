// Package webhooks posts run outcomes to an external endpoint.
package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"lrpsolve/internal/progress"
)

const (
	HeaderSignature = "X-LRP-Signature"
	HeaderEventType = "X-LRP-Event"
	HeaderDelivery  = "X-LRP-Delivery"
)

// Notifier delivers run.completed and run.failed events with retries.
type Notifier struct {
	URL         string
	Secret      string
	HTTP        *http.Client
	MaxAttempts int
	Backoff     time.Duration // first retry delay, doubled per attempt
	Logger      *slog.Logger
}

func NewNotifier(url, secret string, maxAttempts int) *Notifier {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &Notifier{
		URL:         url,
		Secret:      secret,
		HTTP:        &http.Client{Timeout: 5 * time.Second},
		MaxAttempts: maxAttempts,
		Backoff:     time.Second,
	}
}

// Payload is the JSON body of a delivery.
type Payload struct {
	ID    string         `json:"id"`
	Type  string         `json:"type"`
	RunID string         `json:"runId"`
	TS    string         `json:"ts"`
	Data  map[string]any `json:"data,omitempty"`
}

// Notify posts the terminal events of a run and ignores every other type.
// It gives up after MaxAttempts or when ctx is done.
func (n *Notifier) Notify(ctx context.Context, evt progress.Event) error {
	if evt.Type != progress.TypeRunCompleted && evt.Type != progress.TypeRunFailed {
		return nil
	}
	ts := evt.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	body, err := json.Marshal(Payload{
		ID:    uuid.NewString(),
		Type:  evt.Type,
		RunID: evt.RunID,
		TS:    ts.UTC().Format(time.RFC3339),
		Data:  evt.Data,
	})
	if err != nil {
		return fmt.Errorf("webhook payload: %w", err)
	}
	var last error
	for attempt := 0; attempt < n.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("webhook %s: %w (last: %v)", evt.Type, ctx.Err(), last)
			case <-time.After(n.nextBackoff(attempt - 1)):
			}
		}
		code, err := n.post(ctx, evt.Type, body)
		if err == nil {
			n.logger().Debug("webhook delivered", "type", evt.Type, "run", evt.RunID, "status", code, "attempt", attempt+1)
			return nil
		}
		last = err
		n.logger().Warn("webhook attempt failed", "type", evt.Type, "run", evt.RunID, "attempt", attempt+1, "err", err)
	}
	return fmt.Errorf("webhook %s: giving up after %d attempts: %w", evt.Type, n.MaxAttempts, last)
}

func (n *Notifier) post(ctx context.Context, eventType string, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.URL, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderEventType, eventType)
	req.Header.Set(HeaderDelivery, uuid.NewString())
	if n.Secret != "" {
		req.Header.Set(HeaderSignature, Sign(n.Secret, body))
	}
	resp, err := n.client().Do(req)
	if err != nil {
		return 0, err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return resp.StatusCode, nil
}

func (n *Notifier) nextBackoff(attempts int) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	if attempts > 10 {
		attempts = 10
	}
	base := n.Backoff * time.Duration(1<<attempts)
	if base > time.Minute {
		base = time.Minute
	}
	return base
}

func (n *Notifier) client() *http.Client {
	if n.HTTP != nil {
		return n.HTTP
	}
	return http.DefaultClient
}

func (n *Notifier) logger() *slog.Logger {
	if n.Logger != nil {
		return n.Logger
	}
	return slog.Default()
}
