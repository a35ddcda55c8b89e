// Package webhook delivers grading reports to an HTTP endpoint.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	requestTimeout     = 10 * time.Second
	userAgent          = "pyjudge"
	submissionIDHeader = "X-Submission-ID"
)

// Client sends JSON payloads with retries.
type Client struct {
	http   *http.Client
	config *Config
	policy *RetryPolicy
	log    *zap.Logger
}

// NewClient fills in defaults for an empty method, timeout or policy.
func NewClient(config *Config, policy *RetryPolicy, log *zap.Logger) *Client {
	if config.Method == "" {
		config.Method = http.MethodPost
	}
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}
	if policy == nil {
		policy = DefaultRetryPolicy()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		http:   &http.Client{Timeout: requestTimeout},
		config: config,
		policy: policy,
		log:    log.With(zap.String("webhook_url", config.URL)),
	}
}

// Send posts payload as JSON. submissionID, when set, is sent in the
// X-Submission-ID header so receivers can deduplicate retries.
func (c *Client) Send(ctx context.Context, submissionID string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	var lastErr error
	for attempt := 0; attempt <= c.policy.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := c.policy.Backoff(attempt)
			c.log.Debug("webhook retry", zap.Int("attempt", attempt), zap.Int("max_retries", c.policy.MaxRetries), zap.Duration("delay", delay))

			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("webhook timeout after %d attempts: %w", attempt, ctx.Err())
			}
		}

		code, err := c.do(ctx, submissionID, body)
		if err == nil && code >= 200 && code < 300 {
			c.log.Debug("webhook delivered", zap.Int("status", code), zap.Int("attempts", attempt+1))
			return nil
		}

		if err != nil {
			lastErr = fmt.Errorf("attempt %d failed: %w", attempt+1, err)
		} else {
			lastErr = fmt.Errorf("attempt %d failed with status %d", attempt+1, code)
		}

		if code > 0 && !retryable(code) {
			c.log.Warn("webhook rejected", zap.Int("status", code))
			return lastErr
		}
	}

	return fmt.Errorf("webhook failed after %d attempts: %w", c.policy.MaxRetries+1, lastErr)
}

func (c *Client) do(ctx context.Context, submissionID string, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, c.config.Method, c.config.URL, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if submissionID != "" {
		req.Header.Set(submissionIDHeader, submissionID)
	}
	for k, v := range c.config.Headers {
		req.Header.Set(k, v)
	}

	switch c.config.AuthType {
	case AuthBearer:
		req.Header.Set("Authorization", "Bearer "+c.config.AuthToken)
	case AuthAPIKey:
		req.Header.Set("X-API-Key", c.config.AuthToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}
