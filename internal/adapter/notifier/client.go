// Package notifier delivers completed sessions to their callback URLs.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/xiaot623/gogo/callcontrol/internal/domain"
)

// Notifier posts a finished session to its callback URL.
type Notifier interface {
	Notify(ctx context.Context, session *domain.CallSession) error
}

// Ensure Client implements Notifier.
var _ Notifier = (*Client)(nil)

// Client is the HTTP webhook notifier.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a webhook client bounded by timeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Notify POSTs the session JSON to session.CallbackURL. Sessions without a
// callback URL are ignored.
func (c *Client) Notify(ctx context.Context, session *domain.CallSession) error {
	if session.CallbackURL == "" {
		return nil
	}
	target, err := url.Parse(session.CallbackURL)
	if err != nil || (target.Scheme != "http" && target.Scheme != "https") || target.Host == "" {
		return fmt.Errorf("invalid callback url")
	}

	body, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Session-ID", session.SessionID)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("callback request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("callback returned status %d", resp.StatusCode)
	}
	return nil
}
