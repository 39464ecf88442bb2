package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ingestion"
)

func TestValidateIngestRequest(t *testing.T) {
	tests := []struct {
		name      string
		docs      []index.Document
		wantField string
	}{
		{"empty batch", nil, "documents"},
		{"too many", make([]index.Document, 4), "documents"},
		{"missing id", []index.Document{{Content: "x"}}, "documents[0].id"},
		{"blank id", []index.Document{{ID: "ok"}, {ID: "   "}}, "documents[1].id"},
		{"long id", []index.Document{{ID: strings.Repeat("a", MaxIDLength+1)}}, "documents[0].id"},
		{"large content", []index.Document{{ID: "a", Content: strings.Repeat("x", MaxContentLength+1)}}, "documents[0].content"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIngestRequest(&ingestion.IngestRequest{Documents: tt.docs}, 3)
			require.Error(t, err)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tt.wantField)
		})
	}
}

func TestValidateAcceptsGoodBatch(t *testing.T) {
	req := &ingestion.IngestRequest{Documents: []index.Document{
		{ID: "a", Content: "hello"},
		{ID: "a", Content: "duplicate ids are the index's concern"},
		{ID: strings.Repeat("b", MaxIDLength), Content: ""},
	}}
	assert.NoError(t, ValidateIngestRequest(req, 10))
	assert.NoError(t, ValidateIngestRequest(req, 0), "zero disables the batch cap")
}

func TestValidationErrorCapsFields(t *testing.T) {
	docs := make([]index.Document, 100)
	err := ValidateIngestRequest(&ingestion.IngestRequest{Documents: docs}, 1000)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, maxReportedFields)
	assert.Contains(t, verr.Error(), "documents[0].id: id is required")
}
