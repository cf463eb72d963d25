// Package analytics records search activity. The search handler tracks one
// SearchEvent per request; events reach the Aggregator directly or through a
// Kafka topic, and the Aggregator serves totals, latency percentiles and the
// most common and zero-result queries.
package analytics

import "time"

type EventType string

const (
	EventSearch     EventType = "search"
	EventZeroResult EventType = "zero_result"
)

type SearchEvent struct {
	Type      EventType `json:"type"`
	Query     string    `json:"query"`
	Terms     []string  `json:"terms,omitempty"`
	Ranked    bool      `json:"ranked"`
	TotalHits int       `json:"total_hits"`
	Returned  int       `json:"returned"`
	LatencyMs int64     `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// Tracker accepts search events without blocking the request.
type Tracker interface {
	Track(event SearchEvent)
}
