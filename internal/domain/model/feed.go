package model

import "time"

// FeedEntry is one video upload notification delivered by the hub.
type FeedEntry struct {
	VideoID   string
	ChannelID string
	Title     string
	Published time.Time
	Updated   time.Time
}
