package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kirillkom/drhp-retrieval/internal/core/domain"
	"github.com/kirillkom/drhp-retrieval/internal/core/drhp"
	"github.com/kirillkom/drhp-retrieval/internal/core/ports"
)

// IndexUseCase turns a stored prospectus into embedded chunks and the
// derived per-section analysis. Indexing a document is all-or-nothing.
type IndexUseCase struct {
	repo      ports.DocumentRepository
	chunks    ports.ChunkStore
	storage   ports.ObjectStorage
	extractor ports.PageExtractor
	chunker   ports.Chunker
	embedder  ports.Embedder

	overlap int
	logger  *slog.Logger
	now     func() time.Time
}

func NewIndexUseCase(
	repo ports.DocumentRepository,
	chunks ports.ChunkStore,
	storage ports.ObjectStorage,
	extractor ports.PageExtractor,
	chunker ports.Chunker,
	embedder ports.Embedder,
	overlap int,
	logger *slog.Logger,
) *IndexUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &IndexUseCase{
		repo:      repo,
		chunks:    chunks,
		storage:   storage,
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		overlap:   overlap,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ProcessByID runs extraction, chunking, embedding and analysis for one
// document. An unreadable or empty PDF is not an error: the document is
// marked unindexable and the report says why.
func (uc *IndexUseCase) ProcessByID(ctx context.Context, documentID string) (*domain.IndexReport, error) {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("fetch document by id: %w", err)
	}

	existing, err := uc.chunks.CountChunks(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("count existing chunks: %w", err)
	}
	if existing > 0 {
		return uc.finishFromStoredChunks(ctx, doc, existing)
	}

	if err := uc.repo.UpdateStatus(ctx, documentID, domain.StatusProcessing, ""); err != nil {
		return nil, fmt.Errorf("set status=processing: %w", err)
	}

	report, err := uc.process(ctx, doc)
	if err != nil {
		if failErr := uc.repo.UpdateStatus(ctx, documentID, domain.StatusFailed, err.Error()); failErr != nil {
			return nil, fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return nil, err
	}
	return report, nil
}

func (uc *IndexUseCase) process(ctx context.Context, doc *domain.Document) (*domain.IndexReport, error) {
	extraction, err := uc.extract(ctx, doc)
	if err != nil {
		return nil, err
	}
	if extraction.Empty() {
		reason := extraction.Reason
		if reason == "" {
			reason = "no extractable text"
		}
		return uc.markUnindexable(ctx, doc, extraction.TotalPages, reason)
	}
	if extraction.SkippedPages > 0 {
		uc.logger.Warn("pages_skipped",
			"document_id", doc.ID,
			"skipped", extraction.SkippedPages,
			"total", extraction.TotalPages,
		)
	}

	chunks := uc.chunker.Chunk(extraction.Pages)
	if len(chunks) == 0 {
		return uc.markUnindexable(ctx, doc, extraction.TotalPages, "chunking produced no chunks")
	}

	stored, err := uc.Index(ctx, doc.ID, chunks)
	if err != nil {
		return nil, err
	}

	analysis := uc.analyze(chunks, pageText(extraction.Pages), extraction.TotalPages)
	if err := uc.repo.SaveAnalysis(ctx, doc.ID, analysis); err != nil {
		return nil, fmt.Errorf("save analysis: %w", err)
	}

	uc.logger.Info("document_indexed",
		"document_id", doc.ID,
		"pages", extraction.TotalPages,
		"chunks", stored,
		"quality", analysis.Quality,
		"sections_found", len(analysis.SectionsFound),
	)
	return &domain.IndexReport{
		DocumentID:   doc.ID,
		Status:       domain.StatusReady,
		Pages:        extraction.TotalPages,
		ChunksStored: stored,
		Quality:      analysis.Quality,
	}, nil
}

// Index embeds all chunk texts in one batch and stores chunks with their
// vectors. A document that already has chunks is left untouched and the
// existing count is returned.
func (uc *IndexUseCase) Index(ctx context.Context, documentID string, chunks []domain.Chunk) (int, error) {
	existing, err := uc.chunks.CountChunks(ctx, documentID)
	if err != nil {
		return 0, fmt.Errorf("count existing chunks: %w", err)
	}
	if existing > 0 {
		uc.logger.Info("index_skipped", "document_id", documentID, "chunks", existing)
		return existing, nil
	}
	if len(chunks) == 0 {
		return 0, domain.WrapError(domain.ErrNoContent, "index chunks", errors.New("no chunks to index"))
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}

	vectors, err := uc.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return 0, domain.WrapError(
			domain.ErrInvalidInput,
			"embed chunks",
			fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), len(chunks)),
		)
	}

	indexedAt := uc.now()
	rows := make([]domain.Chunk, len(chunks))
	for i, ch := range chunks {
		ch.ID = domain.ChunkID(documentID, i)
		ch.DocumentID = documentID
		ch.Index = i
		ch.Vector = vectors[i]
		ch.IndexedAt = indexedAt
		rows[i] = ch
	}

	if err := uc.chunks.SaveChunks(ctx, rows); err != nil {
		return 0, fmt.Errorf("save chunks: %w", err)
	}
	return len(rows), nil
}

// finishFromStoredChunks rebuilds the analysis of an already indexed
// document, e.g. after a crash between storing chunks and saving the
// document row.
func (uc *IndexUseCase) finishFromStoredChunks(ctx context.Context, doc *domain.Document, existing int) (*domain.IndexReport, error) {
	report := &domain.IndexReport{
		DocumentID:   doc.ID,
		Status:       doc.Status,
		Pages:        doc.PageCount,
		ChunksStored: existing,
		Skipped:      true,
		Quality:      doc.Quality,
	}
	if doc.Status == domain.StatusReady {
		return report, nil
	}

	stored, err := uc.chunks.ListChunks(ctx, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("list stored chunks: %w", err)
	}
	texts := make([]string, len(stored))
	lastPage := 0
	for i, ch := range stored {
		texts[i] = ch.Text
		if ch.PageNumber > lastPage {
			lastPage = ch.PageNumber
		}
	}
	pages := doc.PageCount
	if pages == 0 {
		pages = lastPage
	}

	analysis := uc.analyze(stored, strings.Join(texts, "\n\n"), pages)
	if err := uc.repo.SaveAnalysis(ctx, doc.ID, analysis); err != nil {
		return nil, fmt.Errorf("save analysis: %w", err)
	}
	report.Status = analysis.Status
	report.Pages = analysis.PageCount
	report.Quality = analysis.Quality
	return report, nil
}

func (uc *IndexUseCase) extract(ctx context.Context, doc *domain.Document) (domain.ExtractionResult, error) {
	reader, err := uc.storage.Open(ctx, doc.StoragePath)
	if err != nil {
		return domain.ExtractionResult{}, fmt.Errorf("open source document: %w", err)
	}
	defer reader.Close()
	return uc.extractor.Extract(ctx, reader), nil
}

func (uc *IndexUseCase) analyze(chunks []domain.Chunk, fullText string, pages int) domain.Analysis {
	sections, found := drhp.AssembleSections(chunks, uc.overlap)
	facts := drhp.ExtractFacts(fullText)
	return domain.Analysis{
		PageCount:     pages,
		Sections:      sections,
		Quality:       drhp.Assess(found, facts),
		SectionsFound: found,
		Facts:         facts,
		Status:        domain.StatusReady,
		ProcessedAt:   uc.now(),
	}
}

func (uc *IndexUseCase) markUnindexable(ctx context.Context, doc *domain.Document, pages int, reason string) (*domain.IndexReport, error) {
	analysis := domain.Analysis{
		PageCount:     pages,
		Quality:       domain.QualityLimited,
		SectionsFound: []domain.SectionTag{},
		Status:        domain.StatusUnindexable,
		Error:         reason,
		ProcessedAt:   uc.now(),
	}
	if err := uc.repo.SaveAnalysis(ctx, doc.ID, analysis); err != nil {
		return nil, fmt.Errorf("save unindexable state: %w", err)
	}
	uc.logger.Warn("document_unindexable", "document_id", doc.ID, "reason", reason)
	return &domain.IndexReport{
		DocumentID: doc.ID,
		Status:     domain.StatusUnindexable,
		Pages:      pages,
		Quality:    domain.QualityLimited,
		Reason:     reason,
	}, nil
}

func pageText(pages []domain.Page) string {
	parts := make([]string, len(pages))
	for i, p := range pages {
		parts[i] = p.Text
	}
	return strings.Join(parts, "\n\n")
}
