package analytics

import "time"

type EventType string

const (
	EventSearch EventType = "search"
	EventIngest EventType = "ingest"
	EventClear  EventType = "clear"
)

type SearchEvent struct {
	Type      EventType `json:"type"`
	Query     string    `json:"query"`
	Terms     []string  `json:"terms"`
	TotalHits int       `json:"total_hits"`
	Returned  int       `json:"returned"`
	LatencyMs int64     `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// IngestEvent describes one ingestion batch. Source is "http" for
// synchronous batches and "kafka" for batches applied by the consumer.
type IngestEvent struct {
	Type      EventType `json:"type"`
	Source    string    `json:"source"`
	Received  int       `json:"received"`
	Indexed   int       `json:"indexed"`
	Skipped   int       `json:"skipped"`
	Empty     int       `json:"empty"`
	LatencyMs int64     `json:"latency_ms"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

type ClearEvent struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

type envelope struct {
	Type EventType `json:"type"`
}
