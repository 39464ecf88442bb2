// Package validator checks ingestion batches at the HTTP boundary. The
// index itself accepts any input; these limits protect the service.
package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ingestion"
)

const (
	MaxIDLength      = 255
	MaxContentLength = 1 << 20

	// maxReportedFields keeps error bodies small for large bad batches.
	maxReportedFields = 20
)

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

// ValidateIngestRequest checks batch size, document IDs and content size.
// Duplicate IDs are allowed; the index skips them.
func ValidateIngestRequest(req *ingestion.IngestRequest, maxBatchSize int) error {
	errs := make(map[string]string)

	switch {
	case len(req.Documents) == 0:
		errs["documents"] = "at least one document is required"
	case maxBatchSize > 0 && len(req.Documents) > maxBatchSize:
		errs["documents"] = fmt.Sprintf("batch must contain at most %d documents, got %d", maxBatchSize, len(req.Documents))
	}

	for i, doc := range req.Documents {
		if len(errs) >= maxReportedFields {
			break
		}
		id := strings.TrimSpace(doc.ID)
		if id == "" {
			errs[fmt.Sprintf("documents[%d].id", i)] = "id is required"
		} else if len(doc.ID) > MaxIDLength {
			errs[fmt.Sprintf("documents[%d].id", i)] = fmt.Sprintf("id must be at most %d bytes", MaxIDLength)
		}
		if len(doc.Content) > MaxContentLength {
			errs[fmt.Sprintf("documents[%d].content", i)] = fmt.Sprintf("content must be at most %d bytes", MaxContentLength)
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
