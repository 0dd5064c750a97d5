package ports

import (
	"context"
	"io"

	"github.com/kirillkom/drhp-retrieval/internal/core/domain"
)

// DocumentIngestor is the inbound contract for prospectus upload orchestration.
type DocumentIngestor interface {
	Upload(ctx context.Context, name string, body io.Reader) (*domain.Document, error)
}

// DocumentReader is the inbound read model for document metadata/state.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
}

// DocumentProcessor extracts, chunks, embeds and analyses one stored document.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) (*domain.IndexReport, error)
}

// PassageRetriever answers questions against the vector index of one document.
type PassageRetriever interface {
	Retrieve(ctx context.Context, documentID, question string, topK int) (*domain.RetrievalResult, error)
	RetrieveRepresentative(ctx context.Context, documentID string) (*domain.RetrievalResult, error)
	Stats(ctx context.Context, documentID string) (*domain.IndexStats, error)
}

// SectionContextProvider answers questions from the structured per-section store.
type SectionContextProvider interface {
	Context(ctx context.Context, documentID, question string) (*domain.SectionContext, error)
}
