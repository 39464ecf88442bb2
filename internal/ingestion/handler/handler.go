package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/analysis"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ingestion/validator"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/cache"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/middleware"
)

// MaxRequestBytes bounds a single ingestion request body.
const MaxRequestBytes = 64 << 20

// Indexer is the write side of a collection.
type Indexer interface {
	Ingest(ctx context.Context, docs []index.Document, onProgress func(percent float64)) (indexer.IngestReport, error)
	Clear()
}

// BatchPublisher queues a batch for asynchronous indexing.
type BatchPublisher interface {
	Publish(ctx context.Context, docs []index.Document) (*ingestion.AcceptedResponse, error)
}

type Handler struct {
	indexer      Indexer
	publisher    BatchPublisher
	cache        *cache.QueryCache
	collector    *analytics.Collector
	maxBatchSize int
	maxBodyBytes int64
	logger       *slog.Logger
}

// New creates the ingestion API. With a non-nil publisher batches are
// queued to Kafka and answered with 202; otherwise they are indexed inline
// through idx. idx may be nil on a publish-only front, which then cannot
// clear.
func New(idx Indexer, pub BatchPublisher, queryCache *cache.QueryCache, collector *analytics.Collector, maxBatchSize int) *Handler {
	return &Handler{
		indexer:      idx,
		publisher:    pub,
		cache:        queryCache,
		collector:    collector,
		maxBatchSize: maxBatchSize,
		maxBodyBytes: MaxRequestBytes,
		logger:       slog.Default().With("component", "ingestion-handler"),
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/documents", h.Ingest)
	mux.HandleFunc("DELETE /api/v1/documents", h.Clear)
	mux.HandleFunc("POST /api/v1/analyze", h.Analyze)
}

func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	var req ingestion.IngestRequest
	if err := h.decodeBody(w, r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if err := validator.ValidateIngestRequest(&req, h.maxBatchSize); err != nil {
		var validationErr *validator.ValidationError
		if errors.As(err, &validationErr) {
			h.writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "validation failed",
				"fields": validationErr.Fields,
			})
			return
		}
		h.writeError(w, apperrors.Invalid("%s", err.Error()))
		return
	}

	if h.publisher != nil {
		resp, err := h.publisher.Publish(ctx, req.Documents)
		if err != nil {
			log.Error("queueing batch failed", "documents", len(req.Documents), "error", err)
			if errors.Is(err, apperrors.ErrPayloadTooLarge) {
				h.writeError(w, err)
				return
			}
			h.writeError(w, apperrors.New(apperrors.ErrUnavailable, http.StatusServiceUnavailable, "ingestion queue unavailable"))
			return
		}
		h.writeJSON(w, http.StatusAccepted, resp)
		return
	}
	if h.indexer == nil {
		h.writeError(w, apperrors.New(apperrors.ErrUnavailable, http.StatusServiceUnavailable, "no indexer configured"))
		return
	}

	start := time.Now()
	report, err := h.indexer.Ingest(ctx, req.Documents, func(p float64) {
		log.Debug("ingestion progress", "percent", p)
	})
	h.track(analytics.IngestEvent{
		Type:      analytics.EventIngest,
		Source:    "http",
		Received:  report.Received,
		Indexed:   report.Indexed,
		Skipped:   report.Skipped,
		Empty:     report.Empty,
		LatencyMs: time.Since(start).Milliseconds(),
		Timestamp: time.Now().UTC(),
		RequestID: middleware.GetRequestID(ctx),
	})
	if err != nil {
		log.Warn("ingestion interrupted", "indexed", report.Indexed, "error", err)
		h.writeError(w, err)
		return
	}
	log.Info("batch indexed",
		"received", report.Received,
		"indexed", report.Indexed,
		"skipped", report.Skipped,
	)
	h.writeJSON(w, http.StatusOK, report)
}

func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	if h.indexer == nil {
		h.writeError(w, apperrors.New(apperrors.ErrUnavailable, http.StatusServiceUnavailable, "clear is not supported by this service"))
		return
	}
	h.indexer.Clear()
	if h.cache != nil {
		if err := h.cache.Invalidate(r.Context()); err != nil {
			h.logger.Warn("cache invalidation after clear failed", "error", err)
		}
	}
	h.track(analytics.ClearEvent{
		Type:      analytics.EventClear,
		Timestamp: time.Now().UTC(),
		RequestID: middleware.GetRequestID(r.Context()),
	})
	logger.FromContext(r.Context()).Info("collection cleared via api")
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req ingestion.AnalyzeRequest
	if err := h.decodeBody(w, r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, analysis.Analyze(req.Text))
}

func (h *Handler) track(event any) {
	if h.collector != nil {
		h.collector.Track(event)
	}
}

func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apperrors.Newf(apperrors.ErrPayloadTooLarge, http.StatusRequestEntityTooLarge,
				"request body exceeds %d bytes", maxErr.Limit)
		}
		return apperrors.Invalid("invalid JSON body")
	}
	return nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	h.writeJSON(w, apperrors.HTTPStatusCode(err), map[string]string{"error": apperrors.PublicMessage(err)})
}
