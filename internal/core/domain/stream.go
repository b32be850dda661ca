package domain

import (
	"time"
)

type StreamID string

// CounterBucket names a usage tally attached to a stream.
type CounterBucket string

const (
	BucketNode   CounterBucket = "node"
	BucketPython CounterBucket = "python"
	// BucketVibe is recorded as a usage event only; it has no counter column.
	BucketVibe CounterBucket = "vibe"
)

// HasColumn reports whether the bucket is persisted as a counter on the stream record.
func (b CounterBucket) HasColumn() bool {
	return b == BucketNode || b == BucketPython
}

// ParseCounterBucket validates a bucket name received from a client.
func ParseCounterBucket(s string) (CounterBucket, error) {
	switch b := CounterBucket(s); b {
	case BucketNode, BucketPython, BucketVibe:
		return b, nil
	}
	return "", ErrInvalidCounterBucket
}

type Stream struct {
	ID           StreamID  `json:"id"`
	Name         string    `json:"name"`
	Endpoint     string    `json:"endpoint"`
	Description  string    `json:"description"`
	Tags         []string  `json:"tags,omitempty"`
	ClicksNode   int64     `json:"clicks_node"`
	ClicksPython int64     `json:"clicks_python"`
	CreatedAt    time.Time `json:"created_at"`
}

// Counter returns the current value of a column bucket.
func (s *Stream) Counter(bucket CounterBucket) int64 {
	switch bucket {
	case BucketNode:
		return s.ClicksNode
	case BucketPython:
		return s.ClicksPython
	}
	return 0
}

// TotalClicks is the sum of all column buckets.
func (s *Stream) TotalClicks() int64 {
	return s.ClicksNode + s.ClicksPython
}

// Clone returns a deep copy so callers cannot mutate stored records.
func (s *Stream) Clone() *Stream {
	c := *s
	if s.Tags != nil {
		c.Tags = append([]string(nil), s.Tags...)
	}
	return &c
}

// NewStreamInput carries the fields accepted when registering a stream.
type NewStreamInput struct {
	Name        string
	Endpoint    string
	Description string
	Tags        []string
}
