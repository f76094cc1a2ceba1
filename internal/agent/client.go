// Package agent implements delivery of chat turns to the remote CBAM agent
// webhook.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxResponseBytes caps how much of a webhook reply is read (1MB).
const maxResponseBytes = 1 << 20

// DeliveryError indicates the webhook could not be reached or answered with
// a non-success status. The transcript shows a connection apology instead;
// transport detail stays in the logs.
type DeliveryError struct {
	Err        error
	StatusCode int
}

// Error implements the error interface.
func (e *DeliveryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("agent delivery failed: %v", e.Err)
	}
	return fmt.Sprintf("agent delivery failed: status %d", e.StatusCode)
}

// Unwrap exposes the underlying transport error, if any.
func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Client delivers user input to the remote agent. It holds no state beyond
// the connection pool; one call maps to one outbound request.
type Client interface {
	Deliver(ctx context.Context, text, sessionID string) (string, error)
}

// WebhookClient posts turns to a fixed webhook URL as JSON.
type WebhookClient struct {
	url    string
	client *http.Client
}

// NewWebhookClient creates a client for the given webhook URL. The timeout
// is transport-level only; the chat core itself enforces none.
func NewWebhookClient(url string, timeout time.Duration) *WebhookClient {
	return &WebhookClient{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

type webhookRequest struct {
	Input     string `json:"input"`
	SessionID string `json:"sessionId"`
}

// Deliver posts one turn and returns the reply text. Unrecognized reply
// shapes are lenient: the call succeeds with fallback text. Only transport
// failures and non-2xx statuses produce a *DeliveryError.
func (c *WebhookClient) Deliver(ctx context.Context, text, sessionID string) (string, error) {
	body, err := json.Marshal(webhookRequest{Input: text, SessionID: sessionID})
	if err != nil {
		return "", fmt.Errorf("marshal webhook request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &DeliveryError{Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &DeliveryError{StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", &DeliveryError{Err: err}
	}

	return ParseReply(data).Text(), nil
}

var _ Client = (*WebhookClient)(nil)
