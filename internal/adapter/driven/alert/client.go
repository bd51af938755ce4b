// Package alert implements the AlertNotifier port by forwarding pre-built
// alert messages to the notifier service, which owns the actual mail
// transport.
package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ericfisherdev/hubsync/internal/domain/model"
	"github.com/ericfisherdev/hubsync/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.AlertNotifier = (*Client)(nil)

// Client POSTs alerts as JSON to the notifier collaborator's endpoint.
type Client struct {
	httpClient *http.Client
	url        string
}

// NewClient creates a notifier client targeting the given endpoint URL.
func NewClient(url string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		url:        url,
	}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client.
// Intended for testing with an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, url string) *Client {
	return &Client{httpClient: httpClient, url: url}
}

type alertPayload struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Send forwards the alert. Non-2xx responses are errors so the caller can
// log the failed delivery.
func (c *Client) Send(ctx context.Context, a model.Alert) error {
	body, err := json.Marshal(alertPayload{Subject: a.Subject, Body: a.Body})
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build alert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send alert: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("send alert: unexpected status %s", resp.Status)
	}

	return nil
}
