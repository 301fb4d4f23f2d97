package finance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/frahmantamala/expense-approval/internal"
	"github.com/sethvargo/go-retry"
)

type WebhookClient struct {
	url        string
	apiKey     string
	maxRetries uint64
	backoff    time.Duration
	http       *http.Client
	logger     *slog.Logger
}

func NewWebhookClient(url, apiKey string, timeout time.Duration, maxRetries int, logger *slog.Logger) *WebhookClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &WebhookClient{
		url:        url,
		apiKey:     apiKey,
		maxRetries: uint64(maxRetries),
		backoff:    200 * time.Millisecond,
		http:       &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// WithBackoff sets the first retry delay; later ones double.
func (c *WebhookClient) WithBackoff(d time.Duration) *WebhookClient {
	c.backoff = d
	return c
}

// Send POSTs the payload, retrying network failures and 5xx answers.
// Other 4xx answers fail immediately.
func (c *WebhookClient) Send(ctx context.Context, payload Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal finance payload: %w", err)
	}

	attempt := 0
	b := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(c.backoff))
	err = retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("failed to create webhook request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("X-API-Key", c.apiKey)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			c.logger.Warn("finance webhook call failed", "request_id", payload.RequestID, "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return nil
		case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
			c.logger.Warn("finance webhook answered with retryable status",
				"request_id", payload.RequestID,
				"attempt", attempt,
				"status_code", resp.StatusCode)
			return retry.RetryableError(fmt.Errorf("finance webhook returned status %d", resp.StatusCode))
		default:
			return fmt.Errorf("finance webhook returned status %d", resp.StatusCode)
		}
	})
	if err != nil {
		c.logger.Error("finance handoff failed", "request_id", payload.RequestID, "attempts", attempt, "error", err)
		return internal.ErrFinanceHandoffFailed.WithCause(err)
	}

	c.logger.Info("finance handoff delivered", "request_id", payload.RequestID, "attempts", attempt)
	return nil
}
