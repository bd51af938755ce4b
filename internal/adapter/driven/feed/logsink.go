// Package feed holds the default FeedSink implementation. The real content
// pipeline lives in a downstream collaborator; this sink records deliveries
// so the webhook route is observable without one.
package feed

import (
	"context"
	"log/slog"
	"time"

	"github.com/ericfisherdev/hubsync/internal/domain/model"
	"github.com/ericfisherdev/hubsync/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.FeedSink = (*LogSink)(nil)

// LogSink logs every accepted upload notification.
type LogSink struct{}

// NewLogSink creates a LogSink.
func NewLogSink() *LogSink {
	return &LogSink{}
}

// Accept logs the notification and always succeeds.
func (s *LogSink) Accept(_ context.Context, entry model.FeedEntry) error {
	slog.Info("upload notification received",
		"video_id", entry.VideoID,
		"channel_id", entry.ChannelID,
		"title", entry.Title,
		"published", entry.Published,
		"video_age", time.Since(entry.Published).Round(time.Minute),
	)
	return nil
}
