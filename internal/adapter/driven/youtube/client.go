// Package youtube implements the SubscriptionLister port against the
// YouTube Data API v3 subscriptions endpoint.
package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ericfisherdev/hubsync/internal/domain/model"
	"github.com/ericfisherdev/hubsync/internal/domain/port/driven"
)

// DefaultBaseURL is the production YouTube Data API endpoint.
const DefaultBaseURL = "https://www.googleapis.com/youtube/v3"

const pageSize = 50

// Compile-time interface satisfaction check.
var _ driven.SubscriptionLister = (*Client)(nil)

// Client implements the driven.SubscriptionLister port. Pagination is
// handled internally; the caller sees one collected result per listing.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a YouTube API client.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    DefaultBaseURL,
	}
}

// NewClientWithBaseURL creates a Client against a custom base URL. Intended
// for testing with an httptest server.
func NewClientWithBaseURL(httpClient *http.Client, baseURL string) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
	}
}

// subscriptionListResponse mirrors the subset of the API response the lister
// consumes.
type subscriptionListResponse struct {
	ETag          string `json:"etag"`
	NextPageToken string `json:"nextPageToken"`
	Items         []struct {
		Snippet struct {
			Title      string `json:"title"`
			ResourceID struct {
				Kind      string `json:"kind"`
				ChannelID string `json:"channelId"`
			} `json:"resourceId"`
			Thumbnails map[string]struct {
				URL string `json:"url"`
			} `json:"thumbnails"`
		} `json:"snippet"`
	} `json:"items"`
}

// ListAll fetches every page of the authenticated account's subscriptions.
// The etag from the previous listing is replayed as If-None-Match on every
// page request; a 304 on the first page short-circuits the whole listing.
// The returned ETag is captured from the first page only.
func (c *Client) ListAll(ctx context.Context, accessToken, etag string) (*driven.SubscriptionList, error) {
	var (
		channels  []model.Channel
		firstETag string
		pageToken string
		firstPage = true
	)

	for {
		page, err := c.fetchPage(ctx, accessToken, etag, pageToken)
		if err != nil {
			return nil, err
		}
		if page == nil {
			// 304 Not Modified. The etag describes the listing as a whole,
			// so in practice only the first page can answer 304; a 304 on a
			// later page reports the whole listing as unchanged.
			return &driven.SubscriptionList{NotModified: true}, nil
		}

		if firstPage {
			firstETag = page.ETag
			firstPage = false
		}

		for _, item := range page.Items {
			snippet := item.Snippet
			if snippet.ResourceID.ChannelID == "" || snippet.Title == "" {
				return nil, fmt.Errorf("subscription item missing channel id or title (kind %q)", snippet.ResourceID.Kind)
			}

			channels = append(channels, model.Channel{
				ID:           snippet.ResourceID.ChannelID,
				Name:         snippet.Title,
				ThumbnailURL: pickThumbnail(thumbnailURLs(snippet.Thumbnails)),
			})
		}

		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	if channels == nil {
		channels = []model.Channel{}
	}

	return &driven.SubscriptionList{Channels: channels, ETag: firstETag}, nil
}

// fetchPage requests one page. A nil response with nil error signals 304.
func (c *Client) fetchPage(ctx context.Context, accessToken, etag, pageToken string) (*subscriptionListResponse, error) {
	query := url.Values{
		"part":       {"snippet"},
		"mine":       {"true"},
		"maxResults": {fmt.Sprintf("%d", pageSize)},
	}
	if pageToken != "" {
		query.Set("pageToken", pageToken)
	}

	reqURL := fmt.Sprintf("%s/subscriptions?%s", c.baseURL, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build subscriptions request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusNotModified {
		return nil, nil
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list subscriptions: unexpected status %s", resp.Status)
	}

	var page subscriptionListResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode subscriptions page: %w", err)
	}

	return &page, nil
}

// thumbnailURLs flattens the keyed thumbnail map into name → URL.
func thumbnailURLs(thumbnails map[string]struct {
	URL string `json:"url"`
}) map[string]string {
	urls := make(map[string]string, len(thumbnails))
	for name, thumb := range thumbnails {
		urls[name] = thumb.URL
	}
	return urls
}

// pickThumbnail chooses the preferred thumbnail variant. Returns "" when no
// variant is present; the channel row is still usable without an image.
func pickThumbnail(urls map[string]string) string {
	for _, name := range []string{"default", "medium", "high", "standard", "maxres"} {
		if u := urls[name]; u != "" {
			return u
		}
	}
	return ""
}
