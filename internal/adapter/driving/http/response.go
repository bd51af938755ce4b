package httphandler

import (
	"encoding/json"
	"net/http"

	"github.com/ericfisherdev/hubsync/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeText writes a plain-text response body. The hub callback challenge
// must be echoed verbatim, not JSON-wrapped.
func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// AuthResponse is the JSON body returned after a successful code exchange.
type AuthResponse struct {
	Status string `json:"status"`
}

// StatusResponse summarizes registry, queue, and credential state.
type StatusResponse struct {
	ActiveSubscriptions int     `json:"active_subscriptions"`
	SoonestExpiration   *string `json:"soonest_expiration"`
	PendingActions      int64   `json:"pending_actions"`
	KnownChannels       int     `json:"known_channels"`
	Credential          string  `json:"credential"`
}

// ChannelResponse is the JSON representation of a known channel.
type ChannelResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// toChannelResponse converts a domain Channel to its JSON representation.
func toChannelResponse(ch model.Channel) ChannelResponse {
	return ChannelResponse{
		ID:           ch.ID,
		Name:         ch.Name,
		ThumbnailURL: ch.ThumbnailURL,
	}
}
