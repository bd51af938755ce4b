// Package hub implements the HubClient port against a PubSubHubbub-style
// publish/subscribe hub.
package hub

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ericfisherdev/hubsync/internal/domain/port/driven"
)

// DefaultEndpoint is Google's public PubSubHubbub hub.
const DefaultEndpoint = "https://pubsubhubbub.appspot.com/subscribe"

// DefaultFeedURL is the canonical feed base for YouTube channel uploads.
// The topic for a channel is DefaultFeedURL?channel_id=<id>.
const DefaultFeedURL = "https://www.youtube.com/xml/feeds/videos.xml"

// Compile-time interface satisfaction check.
var _ driven.HubClient = (*Client)(nil)

// Client implements the driven.HubClient port. A 2xx response means only
// that the hub accepted the request; the subscription state change is
// confirmed asynchronously through the callback URL.
type Client struct {
	httpClient  *http.Client
	endpoint    string
	feedURL     string
	callbackURL string
}

// NewClient creates a hub client that announces callbackURL as the
// subscriber endpoint. endpoint and feedURL usually carry the defaults above.
func NewClient(endpoint, feedURL, callbackURL string) *Client {
	return &Client{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		endpoint:    endpoint,
		feedURL:     feedURL,
		callbackURL: callbackURL,
	}
}

// NewClientWithEndpoint creates a Client against a custom hub endpoint and
// feed base. Intended for testing with an httptest server, and for
// deployments pointing at a different hub.
func NewClientWithEndpoint(httpClient *http.Client, endpoint, feedURL, callbackURL string) *Client {
	return &Client{
		httpClient:  httpClient,
		endpoint:    endpoint,
		feedURL:     feedURL,
		callbackURL: callbackURL,
	}
}

// Topic returns the canonical feed URL identifying the channel's topic.
func (c *Client) Topic(channelID string) string {
	return fmt.Sprintf("%s?channel_id=%s", c.feedURL, url.QueryEscape(channelID))
}

// Subscribe requests a new or renewed lease for the channel's topic.
func (c *Client) Subscribe(ctx context.Context, channelID string) error {
	return c.request(ctx, "subscribe", channelID)
}

// Unsubscribe requests removal of the channel's topic subscription.
func (c *Client) Unsubscribe(ctx context.Context, channelID string) error {
	return c.request(ctx, "unsubscribe", channelID)
}

// request issues the form-encoded hub POST with synchronous verification.
func (c *Client) request(ctx context.Context, mode, channelID string) error {
	form := url.Values{
		"hub.mode":     {mode},
		"hub.topic":    {c.Topic(channelID)},
		"hub.callback": {c.callbackURL},
		"hub.verify":   {"sync"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build hub %s request for %s: %w", mode, channelID, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("hub %s request for %s: %w", mode, channelID, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("hub %s request for %s: unexpected status %s", mode, channelID, resp.Status)
	}

	return nil
}
