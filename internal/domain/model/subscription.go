package model

import "time"

// Subscription is a topic believed currently subscribed at the hub, together
// with the expiration instant of its lease. The registry row is updated only
// after the hub confirms a change, never speculatively.
type Subscription struct {
	ChannelID  string
	Expiration time.Time
}
