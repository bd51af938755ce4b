// Package httphandler is the HTTP driving adapter: the hub webhook callback,
// the OAuth completion endpoint, and the JSON status API.
package httphandler

import (
	"context"
	"encoding/xml"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ericfisherdev/hubsync/internal/domain/model"
	"github.com/ericfisherdev/hubsync/internal/domain/port/driven"
)

// maxFeedBody caps hub delivery bodies. Upload notifications are a few KB.
const maxFeedBody = 1 << 20

// TokenAuthority is the slice of the token manager the HTTP layer needs.
type TokenAuthority interface {
	// LoadNewToken completes the authorization-code flow.
	LoadNewToken(ctx context.Context, code string) error

	// CredentialState reports "valid", "expired", or "missing".
	CredentialState() string
}

// Handler serves the webhook callback and the status API.
type Handler struct {
	subs     driven.SubscriptionStore
	queue    driven.QueueStore
	channels driven.ChannelStore
	tokens   TokenAuthority
	sink     driven.FeedSink
	logger   *slog.Logger
	now      func() time.Time
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	subs driven.SubscriptionStore,
	queue driven.QueueStore,
	channels driven.ChannelStore,
	tokens TokenAuthority,
	sink driven.FeedSink,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		subs:     subs,
		queue:    queue,
		channels: channels,
		tokens:   tokens,
		sink:     sink,
		logger:   logger,
		now:      time.Now,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /pubsub", h.HubCallback)
	mux.HandleFunc("POST /pubsub", h.ReceiveUpload)
	mux.HandleFunc("GET /admin/auth", h.CompleteAuth)
	mux.HandleFunc("GET /api/v1/health", h.Health)
	mux.HandleFunc("GET /api/v1/status", h.Status)
	mux.HandleFunc("GET /api/v1/channels", h.ListChannels)

	// Recovery innermost so panics are caught before logging.
	wrapped := withRecovery(logger, mux)
	wrapped = withRequestLog(logger, wrapped)

	return wrapped
}

// HubCallback handles the hub's subscription verification GET. Confirmed
// subscribes upsert the registry row with now+lease_seconds, confirmed
// unsubscribes remove it; both echo the challenge verbatim. Malformed
// requests get a 400 and never touch the registry.
func (h *Handler) HubCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	challenge := q.Get("hub.challenge")
	if challenge == "" {
		writeError(w, http.StatusBadRequest, "missing hub.challenge")
		return
	}

	channelID, ok := channelIDFromTopic(q.Get("hub.topic"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid hub.topic")
		return
	}

	switch q.Get("hub.mode") {
	case "subscribe":
		lease, err := strconv.ParseInt(q.Get("hub.lease_seconds"), 10, 64)
		if err != nil || lease <= 0 {
			writeError(w, http.StatusBadRequest, "invalid hub.lease_seconds")
			return
		}

		sub := model.Subscription{
			ChannelID:  channelID,
			Expiration: h.now().Add(time.Duration(lease) * time.Second),
		}
		if err := h.subs.Upsert(r.Context(), sub); err != nil {
			h.logger.Error("failed to record confirmed subscription", "channel_id", channelID, "error", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		h.logger.Info("subscription confirmed", "channel_id", channelID, "expiration", sub.Expiration)
		writeText(w, http.StatusOK, challenge)

	case "unsubscribe":
		if err := h.subs.Remove(r.Context(), channelID); err != nil {
			h.logger.Error("failed to record confirmed unsubscription", "channel_id", channelID, "error", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		h.logger.Info("unsubscription confirmed", "channel_id", channelID)
		writeText(w, http.StatusOK, challenge)

	default:
		writeError(w, http.StatusBadRequest, "unknown hub.mode")
	}
}

// ReceiveUpload handles hub content delivery: an Atom document carrying one
// upload notification, handed off to the feed sink.
func (h *Handler) ReceiveUpload(w http.ResponseWriter, r *http.Request) {
	if mediaType(r.Header.Get("Content-Type")) != "application/atom+xml" {
		writeError(w, http.StatusUnsupportedMediaType, "expected application/atom+xml")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxFeedBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable request body")
		return
	}

	entry, err := parseFeedEntry(body)
	if err != nil {
		h.logger.Warn("unable to parse incoming feed item", "error", err)
		writeError(w, http.StatusBadRequest, "malformed feed document")
		return
	}
	if entry.VideoID == "" || entry.ChannelID == "" {
		h.logger.Warn("feed item missing identifiers")
		writeError(w, http.StatusUnprocessableEntity, "feed entry missing video or channel id")
		return
	}

	if err := h.sink.Accept(r.Context(), entry); err != nil {
		h.logger.Error("feed sink refused upload notification", "video_id", entry.VideoID, "error", err)
		writeError(w, http.StatusServiceUnavailable, "notification not accepted")
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// CompleteAuth finishes the OAuth authorization-code flow started from the
// re-authentication link.
func (h *Handler) CompleteAuth(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "missing code")
		return
	}

	if err := h.tokens.LoadNewToken(r.Context(), code); err != nil {
		h.logger.Error("authorization code exchange failed", "error", err)
		writeError(w, http.StatusBadRequest, "authorization code rejected")
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{Status: "authenticated"})
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   h.now().UTC().Format(time.RFC3339),
	})
}

// Status reports registry, queue, and credential state.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	ids, err := h.subs.AllChannelIDs(r.Context())
	if err != nil {
		h.logger.Error("failed to count subscriptions", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	soonest, err := h.subs.SoonestExpiration(r.Context())
	if err != nil {
		h.logger.Error("failed to load soonest expiration", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	pending, err := h.queue.CountPending(r.Context())
	if err != nil {
		h.logger.Error("failed to count pending actions", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	known, err := h.channels.ListAll(r.Context())
	if err != nil {
		h.logger.Error("failed to list known channels", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := StatusResponse{
		ActiveSubscriptions: len(ids),
		PendingActions:      pending,
		KnownChannels:       len(known),
		Credential:          h.tokens.CredentialState(),
	}
	if soonest != nil {
		s := soonest.UTC().Format(time.RFC3339)
		resp.SoonestExpiration = &s
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListChannels returns the known-channel metadata cache.
func (h *Handler) ListChannels(w http.ResponseWriter, r *http.Request) {
	channels, err := h.channels.ListAll(r.Context())
	if err != nil {
		h.logger.Error("failed to list channels", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]ChannelResponse, 0, len(channels))
	for _, ch := range channels {
		resp = append(resp, toChannelResponse(ch))
	}

	writeJSON(w, http.StatusOK, resp)
}

// channelIDFromTopic extracts the channel_id query parameter from a topic
// feed URL.
func channelIDFromTopic(topic string) (string, bool) {
	u, err := url.Parse(topic)
	if err != nil {
		return "", false
	}

	id := u.Query().Get("channel_id")
	return id, id != ""
}

// mediaType returns the media type portion of a Content-Type header value,
// ignoring parameters like charset.
func mediaType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return mt
}

// atomFeed mirrors the hub's Atom delivery document.
type atomFeed struct {
	XMLName xml.Name  `xml:"feed"`
	Entry   atomEntry `xml:"entry"`
}

type atomEntry struct {
	VideoID   string `xml:"http://www.youtube.com/xml/schemas/2015 videoId"`
	ChannelID string `xml:"http://www.youtube.com/xml/schemas/2015 channelId"`
	Title     string `xml:"title"`
	Published string `xml:"published"`
	Updated   string `xml:"updated"`
}

// parseFeedEntry decodes the Atom document into a FeedEntry. Timestamps that
// fail to parse are left zero rather than failing the whole delivery.
func parseFeedEntry(body []byte) (model.FeedEntry, error) {
	var feed atomFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return model.FeedEntry{}, err
	}

	entry := model.FeedEntry{
		VideoID:   feed.Entry.VideoID,
		ChannelID: feed.Entry.ChannelID,
		Title:     feed.Entry.Title,
	}
	if t, err := time.Parse(time.RFC3339, feed.Entry.Published); err == nil {
		entry.Published = t
	}
	if t, err := time.Parse(time.RFC3339, feed.Entry.Updated); err == nil {
		entry.Updated = t
	}

	return entry, nil
}
