// Package consumer indexes ingestion batches read from Kafka into a
// collection.
package consumer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/kafka"
)

// Indexer is satisfied by *collection.Collection.
type Indexer interface {
	Ingest(ctx context.Context, docs []index.Document, onProgress func(percent float64)) (indexer.IngestReport, error)
}

// EventTracker receives an IngestEvent per applied batch. *analytics.Collector
// satisfies it.
type EventTracker interface {
	Track(event any)
}

// IndexConsumer wraps a Kafka consumer to drive the indexing pipeline.
type IndexConsumer struct {
	consumer *kafka.Consumer
	logger   *slog.Logger
}

func New(kafkaConsumer *kafka.Consumer) *IndexConsumer {
	return &IndexConsumer{
		consumer: kafkaConsumer,
		logger:   slog.Default().With("component", "index-consumer"),
	}
}

// Start begins consuming Kafka messages. It blocks until ctx is cancelled.
func (ic *IndexConsumer) Start(ctx context.Context) error {
	ic.logger.Info("index consumer starting")
	return ic.consumer.Start(ctx)
}

// HandleMessage returns a Kafka MessageHandler that ingests each batch into
// idx. Undecodable messages are logged and acknowledged. A batch interrupted
// by cancellation returns an error so its offset is not committed;
// redelivery is safe because already indexed IDs are skipped. tracker may
// be nil.
func HandleMessage(idx Indexer, tracker EventTracker) kafka.MessageHandler {
	logger := slog.Default().With("component", "index-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[ingestion.IngestEvent](value)
		if err != nil {
			logger.Error("failed to decode ingest event",
				"error", err,
				"key", string(key),
			)
			return nil
		}
		logger.Debug("processing ingest batch",
			"batch_id", event.BatchID,
			"documents", len(event.Documents),
		)

		start := time.Now()
		report, err := idx.Ingest(ctx, event.Documents, nil)
		if tracker != nil {
			tracker.Track(analytics.IngestEvent{
				Type:      analytics.EventIngest,
				Source:    "kafka",
				Received:  report.Received,
				Indexed:   report.Indexed,
				Skipped:   report.Skipped,
				Empty:     report.Empty,
				LatencyMs: time.Since(start).Milliseconds(),
				Timestamp: time.Now().UTC(),
				RequestID: event.RequestID,
			})
		}
		if err != nil {
			return fmt.Errorf("indexing batch %s: %w", event.BatchID, err)
		}

		logger.Info("batch indexed",
			"batch_id", event.BatchID,
			"indexed", report.Indexed,
			"skipped", report.Skipped,
			"queue_delay_ms", start.Sub(event.PublishedAt).Milliseconds(),
		)
		return nil
	}
}
