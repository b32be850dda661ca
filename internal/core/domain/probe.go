package domain

import "time"

// ProbeResult is the outcome of a bounded connectivity check.
// LatencyMS is nil when no meaningful timing exists; on timeout it equals the bound.
type ProbeResult struct {
	Endpoint  string    `json:"endpoint"`
	Reachable bool      `json:"reachable"`
	LatencyMS *int64    `json:"latency_ms"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}
