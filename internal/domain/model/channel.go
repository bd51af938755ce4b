package model

// Channel is upstream display metadata for a subscribable channel, cached by
// reconciliation for the dashboard. Read-only to the core loops.
type Channel struct {
	ID           string
	Name         string
	ThumbnailURL string
}
