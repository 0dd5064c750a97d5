package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"

	"github.com/kirillkom/drhp-retrieval/internal/core/domain"
)

type repoFake struct {
	mu        sync.Mutex
	docs      map[string]*domain.Document
	statuses  []domain.DocumentStatus
	analyses  []domain.Analysis
	createErr error
	getErr    error
}

func newRepoFake(docs ...*domain.Document) *repoFake {
	f := &repoFake{docs: make(map[string]*domain.Document)}
	for _, d := range docs {
		f.docs[d.ID] = d
	}
	return f
}

func (f *repoFake) Create(_ context.Context, doc *domain.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	copyDoc := *doc
	f.docs[doc.ID] = &copyDoc
	return nil
}

func (f *repoFake) GetByID(_ context.Context, id string) (*domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	doc, ok := f.docs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", errors.New("missing"))
	}
	copyDoc := *doc
	return &copyDoc, nil
}

func (f *repoFake) UpdateStatus(_ context.Context, id string, status domain.DocumentStatus, errMessage string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return domain.WrapError(domain.ErrDocumentNotFound, "update status", errors.New("missing"))
	}
	doc.Status = status
	doc.Error = errMessage
	f.statuses = append(f.statuses, status)
	return nil
}

func (f *repoFake) SaveAnalysis(_ context.Context, id string, analysis domain.Analysis) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return domain.WrapError(domain.ErrDocumentNotFound, "save analysis", errors.New("missing"))
	}
	doc.PageCount = analysis.PageCount
	doc.Sections = analysis.Sections
	doc.Quality = analysis.Quality
	doc.SectionsFound = analysis.SectionsFound
	doc.Facts = analysis.Facts
	doc.Status = analysis.Status
	doc.Error = analysis.Error
	f.statuses = append(f.statuses, analysis.Status)
	f.analyses = append(f.analyses, analysis)
	return nil
}

type chunkStoreFake struct {
	mu      sync.Mutex
	rows    map[string][]domain.Chunk
	saves   int
	saveErr error
}

func newChunkStoreFake() *chunkStoreFake {
	return &chunkStoreFake{rows: make(map[string][]domain.Chunk)}
}

func (f *chunkStoreFake) CountChunks(_ context.Context, documentID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows[documentID]), nil
}

func (f *chunkStoreFake) SaveChunks(_ context.Context, chunks []domain.Chunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves++
	for _, ch := range chunks {
		f.rows[ch.DocumentID] = append(f.rows[ch.DocumentID], ch)
	}
	return nil
}

func (f *chunkStoreFake) ListChunks(_ context.Context, documentID string) ([]domain.Chunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Chunk(nil), f.rows[documentID]...), nil
}

type storageFake struct {
	objects map[string][]byte
	saveErr error
}

func newStorageFake() *storageFake {
	return &storageFake{objects: make(map[string][]byte)}
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.objects[key] = raw
	return nil
}

func (f *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	raw, ok := f.objects[key]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "open object", errors.New(key))
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

type queueFake struct {
	published []string
	err       error
}

func (f *queueFake) PublishIndexRequested(_ context.Context, documentID string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, documentID)
	return nil
}

func (f *queueFake) SubscribeIndexRequested(context.Context, func(context.Context, string) error) error {
	return errors.New("not implemented")
}

type extractorFake struct {
	result domain.ExtractionResult
}

func (f extractorFake) Extract(context.Context, io.Reader) domain.ExtractionResult {
	return f.result
}

type chunkerFake struct {
	chunks []domain.Chunk
}

func (f chunkerFake) Chunk([]domain.Page) []domain.Chunk {
	return append([]domain.Chunk(nil), f.chunks...)
}

// embedderFake maps known texts to fixed vectors; unknown texts get fallback.
type embedderFake struct {
	vectors  map[string][]float32
	fallback []float32
	err      error
	drop     int
	calls    int
	batches  [][]string
}

func (f *embedderFake) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	f.batches = append(f.batches, append([]string(nil), texts...))
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		out = append(out, f.vectorFor(text))
	}
	if f.drop > 0 && f.drop <= len(out) {
		out = out[:len(out)-f.drop]
	}
	return out, nil
}

func (f *embedderFake) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := f.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, errors.New("no vector")
	}
	return vectors[0], nil
}

func (f *embedderFake) vectorFor(text string) []float32 {
	if v, ok := f.vectors[text]; ok {
		return v
	}
	if f.fallback != nil {
		return f.fallback
	}
	return []float32{1, 0, 0}
}
