// Package publisher annotates ingestion batches and publishes them to Kafka
// for asynchronous indexing.
package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/analysis"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/resilience"
)

// StatusQueued is reported for batches handed to Kafka.
const StatusQueued = "queued"

// EventPublisher is satisfied by *kafka.Producer.
type EventPublisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

type Publisher struct {
	producer EventPublisher
	retry    resilience.RetryConfig
	annotate bool
	logger   *slog.Logger
}

// New creates a Publisher. When annotate is set each document's metadata
// is filled with extracted entities and topics before publishing.
func New(producer EventPublisher, retry resilience.RetryConfig, annotate bool) *Publisher {
	return &Publisher{
		producer: producer,
		retry:    retry,
		annotate: annotate,
		logger:   slog.Default().With("component", "publisher"),
	}
}

// Publish sends docs as a single IngestEvent keyed by a fresh batch ID,
// retrying transient Kafka failures.
func (p *Publisher) Publish(ctx context.Context, docs []index.Document) (*ingestion.AcceptedResponse, error) {
	batchID := uuid.NewString()
	prepared := make([]index.Document, len(docs))
	for i, doc := range docs {
		if p.annotate {
			doc.Metadata = analysis.Annotate(doc.Content, maps.Clone(doc.Metadata))
		}
		prepared[i] = doc
	}

	event := kafka.Event{
		Key: batchID,
		Value: ingestion.IngestEvent{
			BatchID:     batchID,
			Documents:   prepared,
			PublishedAt: time.Now().UTC(),
			RequestID:   logger.RequestID(ctx),
		},
	}
	retry := p.retry
	if retry.Retryable == nil {
		retry.Retryable = kafka.IsRetryable
	}
	retry.Logger = p.logger.With("batch_id", batchID, "documents", len(docs))
	err := resilience.Retry(ctx, "publish ingest batch", retry, func(ctx context.Context) error {
		return p.producer.Publish(ctx, event)
	})
	if err != nil {
		p.logger.Error("failed to publish ingest batch",
			"batch_id", batchID,
			"documents", len(docs),
			"error", err,
		)
		if kafka.IsMessageTooLarge(err) {
			return nil, apperrors.Newf(apperrors.ErrPayloadTooLarge, http.StatusRequestEntityTooLarge,
				"batch of %d documents exceeds the queue message size limit; split it into smaller batches", len(docs))
		}
		return nil, fmt.Errorf("publishing batch %s: %w", batchID, err)
	}

	p.logger.Info("ingest batch queued", "batch_id", batchID, "documents", len(docs))
	return &ingestion.AcceptedResponse{
		BatchID:   batchID,
		Status:    StatusQueued,
		Documents: len(docs),
	}, nil
}
