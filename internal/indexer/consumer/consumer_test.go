package consumer

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/collection"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
)

type recordingTracker struct {
	events []any
}

func (r *recordingTracker) Track(event any) { r.events = append(r.events, event) }

func encode(t *testing.T, event ingestion.IngestEvent) []byte {
	t.Helper()
	data, err := json.Marshal(event)
	require.NoError(t, err)
	return data
}

func TestHandleMessageIndexesBatch(t *testing.T) {
	cfg := config.Default()
	coll := collection.New(cfg.Indexer, cfg.Search)
	tracker := &recordingTracker{}
	handle := HandleMessage(coll, tracker)

	value := encode(t, ingestion.IngestEvent{
		BatchID: "b1",
		Documents: []index.Document{
			{ID: "k1", Content: "Kafka consumer groups rebalance partitions"},
			{ID: "k2", Content: "Redis caches query results"},
		},
		PublishedAt: time.Now().UTC(),
		RequestID:   "req-1",
	})
	require.NoError(t, handle(context.Background(), []byte("b1"), value))

	res, err := coll.Query(context.Background(), "partitions", 10)
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "k1", res.Results[0].DocumentID)

	require.Len(t, tracker.events, 1)
	event := tracker.events[0].(analytics.IngestEvent)
	assert.Equal(t, "kafka", event.Source)
	assert.Equal(t, 2, event.Indexed)
	assert.Equal(t, "req-1", event.RequestID)

	// Redelivery is absorbed by the duplicate check.
	require.NoError(t, handle(context.Background(), []byte("b1"), value))
	assert.Equal(t, 2, coll.Stats().Documents)
	assert.Equal(t, 2, tracker.events[1].(analytics.IngestEvent).Skipped)
}

func TestHandleMessageAcknowledgesGarbage(t *testing.T) {
	cfg := config.Default()
	coll := collection.New(cfg.Indexer, cfg.Search)
	handle := HandleMessage(coll, nil)
	assert.NoError(t, handle(context.Background(), nil, []byte("{not json")))
	assert.Zero(t, coll.Stats().Documents)
}

func TestHandleMessageCancelledIsRetried(t *testing.T) {
	cfg := config.Default()
	coll := collection.New(cfg.Indexer, cfg.Search)
	handle := HandleMessage(coll, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	value := encode(t, ingestion.IngestEvent{BatchID: "b2", Documents: []index.Document{{ID: "x", Content: "text"}}})
	err := handle(ctx, nil, value)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
