// Package extract defines the content-extraction contract consumed by the
// ingestion pipeline. Optical text recognition and named-entity extraction
// are external capabilities: given bytes or text, they return text or
// entities. The pipeline treats any implementation as a black box and
// absorbs its per-call failures.
package extract

import "context"

// Entity is one named entity found in extracted text.
type Entity struct {
	Text     string
	Category string
}

// ContentExtractor is the extraction capability the ingestion pipeline
// consumes. Either method may fail per call; callers degrade rather than
// abort.
type ContentExtractor interface {
	// ExtractText runs optical text recognition over file bytes.
	ExtractText(ctx context.Context, data []byte, mimeType string) (string, error)

	// ExtractEntities finds named entities in text.
	ExtractEntities(ctx context.Context, text string) ([]Entity, error)
}
