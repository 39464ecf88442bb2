package analytics

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/kafka"
)

// Sink receives batches of analytics events. kafka.Producer publishes them
// to the analytics topic; Aggregator records them in-process.
type Sink interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

const (
	defaultBufferSize    = 10000
	defaultBatchSize     = 100
	defaultFlushInterval = time.Second
)

// Collector buffers events from request handlers and hands them to a Sink
// in batches, either when a batch fills or when the flush interval passes.
// Track never blocks: events are dropped when the buffer is full.
type Collector struct {
	sink          Sink
	eventCh       chan kafka.Event
	batchSize     int
	flushInterval time.Duration
	logger        *slog.Logger
	started       atomic.Bool
	stop          chan struct{}
	stopOnce      sync.Once
	done          chan struct{}
	dropped       atomic.Int64
}

func NewCollector(sink Sink, bufferSize, batchSize int, flushInterval time.Duration) *Collector {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if flushInterval <= 0 {
		flushInterval = defaultFlushInterval
	}
	return &Collector{
		sink:          sink,
		eventCh:       make(chan kafka.Event, bufferSize),
		batchSize:     batchSize,
		flushInterval: flushInterval,
		logger:        slog.Default().With("component", "analytics-collector"),
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// Start launches the flush loop. It returns immediately; the loop exits
// when ctx is cancelled or Close is called, after a final flush.
func (c *Collector) Start(ctx context.Context) {
	if !c.started.CompareAndSwap(false, true) {
		return
	}
	go c.run(ctx)
	c.logger.Info("analytics collector started",
		"buffer_size", cap(c.eventCh),
		"batch_size", c.batchSize,
		"flush_interval", c.flushInterval,
	)
}

func (c *Collector) run(ctx context.Context) {
	defer close(c.done)
	ticker := time.NewTicker(c.flushInterval)
	defer ticker.Stop()

	batch := make([]kafka.Event, 0, c.batchSize)
	for {
		select {
		case event := <-c.eventCh:
			batch = append(batch, event)
			if len(batch) >= c.batchSize {
				batch = c.flush(ctx, batch)
			}
		case <-ticker.C:
			batch = c.flush(ctx, batch)
		case <-ctx.Done():
			c.shutdown(batch)
			return
		case <-c.stop:
			c.shutdown(batch)
			return
		}
	}
}

func (c *Collector) shutdown(batch []kafka.Event) {
drain:
	for {
		select {
		case event := <-c.eventCh:
			batch = append(batch, event)
		default:
			break drain
		}
	}
	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c.flush(flushCtx, batch)
}

func (c *Collector) flush(ctx context.Context, batch []kafka.Event) []kafka.Event {
	if len(batch) == 0 {
		return batch
	}
	if err := c.sink.PublishBatch(ctx, batch); err != nil {
		c.logger.Error("failed to publish analytics batch", "events", len(batch), "error", err)
	} else {
		c.logger.Debug("analytics batch flushed", "events", len(batch))
	}
	return make([]kafka.Event, 0, c.batchSize)
}

// Track queues a SearchEvent, IngestEvent or ClearEvent. Tracking on a nil
// Collector is a no-op.
func (c *Collector) Track(event any) {
	if c == nil {
		return
	}
	select {
	case c.eventCh <- kafka.Event{Key: eventKey(event), Value: event}:
	default:
		c.dropped.Add(1)
		c.logger.Warn("analytics event dropped (buffer full)")
	}
}

// Dropped returns how many events were discarded because the buffer was full.
func (c *Collector) Dropped() int64 {
	return c.dropped.Load()
}

// Close stops the flush loop and waits for the final flush.
func (c *Collector) Close() {
	if !c.started.Load() {
		return
	}
	c.stopOnce.Do(func() { close(c.stop) })
	<-c.done
}

func eventKey(event any) string {
	switch event.(type) {
	case SearchEvent, *SearchEvent:
		return string(EventSearch)
	case IngestEvent, *IngestEvent:
		return string(EventIngest)
	case ClearEvent, *ClearEvent:
		return string(EventClear)
	default:
		return "analytics"
	}
}

type fanOut []Sink

// FanOut returns a Sink that hands every batch to each sink in order and
// joins their errors.
func FanOut(sinks ...Sink) Sink {
	return fanOut(sinks)
}

func (f fanOut) PublishBatch(ctx context.Context, events []kafka.Event) error {
	var errs []error
	for _, s := range f {
		if err := s.PublishBatch(ctx, events); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
