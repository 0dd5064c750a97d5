package ports

import (
	"context"
	"io"

	"github.com/kirillkom/drhp-retrieval/internal/core/domain"
)

// DocumentRepository persists and reads document state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	SaveAnalysis(ctx context.Context, id string, analysis domain.Analysis) error
}

// ChunkStore persists indexed chunks together with their vectors.
type ChunkStore interface {
	CountChunks(ctx context.Context, documentID string) (int, error)
	SaveChunks(ctx context.Context, chunks []domain.Chunk) error
	ListChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)
}

// ObjectStorage stores source PDFs.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes index requests.
type MessageQueue interface {
	PublishIndexRequested(ctx context.Context, documentID string) error
	SubscribeIndexRequested(ctx context.Context, handler func(context.Context, string) error) error
}

// PageExtractor pulls normalized per-page text out of a PDF byte stream.
type PageExtractor interface {
	Extract(ctx context.Context, pdf io.Reader) domain.ExtractionResult
}

// Chunker splits ordered pages into overlapping, section-tagged chunks.
type Chunker interface {
	Chunk(pages []domain.Page) []domain.Chunk
}

// Embedder builds vectors for chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}
