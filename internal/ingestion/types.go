// Package ingestion defines the request/response types and Kafka event
// schema used by the document ingestion pipeline.
package ingestion

import (
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
)

// IngestRequest is the JSON body accepted by POST /api/v1/documents.
type IngestRequest struct {
	Documents []index.Document `json:"documents"`
}

// AcceptedResponse is returned when a batch is queued for asynchronous
// indexing rather than indexed inline.
type AcceptedResponse struct {
	BatchID   string `json:"batch_id"`
	Status    string `json:"status"`
	Documents int    `json:"documents"`
}

// AnalyzeRequest is the JSON body accepted by POST /api/v1/analyze.
type AnalyzeRequest struct {
	Text string `json:"text"`
}

// IngestEvent is the Kafka payload carrying one batch to the indexer.
// Documents are already annotated with entities and topics.
type IngestEvent struct {
	BatchID     string           `json:"batch_id"`
	Documents   []index.Document `json:"documents"`
	PublishedAt time.Time        `json:"published_at"`
	RequestID   string           `json:"request_id,omitempty"`
}
