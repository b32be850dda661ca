package domain

import "time"

// UsageEvent is a write-once audit record of a client action against a stream.
type UsageEvent struct {
	StreamID  StreamID      `json:"stream_id"`
	Type      CounterBucket `json:"type"`
	CreatedAt time.Time     `json:"created_at"`
}
