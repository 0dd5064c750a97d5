package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillkom/drhp-retrieval/internal/core/domain"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "drhp.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, store.Close())
	})
	return store
}

func createTestDocument(t *testing.T, store *Store, id string) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, store.Create(context.Background(), &domain.Document{
		ID:          id,
		Name:        "Test " + id,
		StoragePath: id + ".pdf",
		Status:      domain.StatusUploaded,
		CreatedAt:   now,
		UpdatedAt:   now,
	}))
}

func chunksFor(documentID string, n int) []domain.Chunk {
	now := time.Now().UTC()
	out := make([]domain.Chunk, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, domain.Chunk{
			ID:            domain.ChunkID(documentID, i),
			DocumentID:    documentID,
			PageNumber:    i + 1,
			Section:       domain.SectionGeneral,
			Index:         i,
			Text:          "chunk text",
			TokenEstimate: 2,
			Vector:        []float32{float32(i), 0.5},
			IndexedAt:     now,
		})
	}
	return out
}

func TestGetByIDMissingDocument(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.GetByID(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrDocumentNotFound))
}

func TestCreateAndGetDocument(t *testing.T) {
	store := setupTestStore(t)
	createTestDocument(t, store, "acme")

	doc, err := store.GetByID(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, "Test acme", doc.Name)
	assert.Equal(t, domain.StatusUploaded, doc.Status)
	assert.Empty(t, doc.SectionsFound)
	assert.Nil(t, doc.ProcessedAt)
	assert.False(t, doc.CreatedAt.IsZero())
}

func TestSaveAnalysisRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	createTestDocument(t, store, "acme")

	processed := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	err := store.SaveAnalysis(context.Background(), "acme", domain.Analysis{
		PageCount:     210,
		Sections:      domain.SectionTexts{RiskFactors: "risk", Financials: "fin"},
		Quality:       domain.QualityPartial,
		SectionsFound: []domain.SectionTag{domain.SectionRiskFactors, domain.SectionFinancials},
		Facts:         domain.FinancialFacts{RevenueCr: []float64{125, 98.4}},
		Status:        domain.StatusReady,
		ProcessedAt:   processed,
	})
	require.NoError(t, err)

	doc, err := store.GetByID(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, 210, doc.PageCount)
	assert.Equal(t, "fin", doc.Sections.Financials)
	assert.Equal(t, domain.QualityPartial, doc.Quality)
	assert.Equal(t, []domain.SectionTag{domain.SectionRiskFactors, domain.SectionFinancials}, doc.SectionsFound)
	assert.Equal(t, []float64{125, 98.4}, doc.Facts.RevenueCr)
	require.NotNil(t, doc.ProcessedAt)
	assert.True(t, doc.ProcessedAt.Equal(processed))
}

func TestUpdateStatusMissingDocument(t *testing.T) {
	store := setupTestStore(t)

	err := store.UpdateStatus(context.Background(), "missing", domain.StatusFailed, "boom")
	assert.True(t, domain.IsKind(err, domain.ErrDocumentNotFound))
}

func TestSaveChunksIsIdempotentOnChunkID(t *testing.T) {
	store := setupTestStore(t)
	createTestDocument(t, store, "acme")
	ctx := context.Background()

	require.NoError(t, store.SaveChunks(ctx, chunksFor("acme", 3)))
	require.NoError(t, store.SaveChunks(ctx, chunksFor("acme", 3)))

	count, err := store.CountChunks(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	chunks, err := store.ListChunks(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	seen := map[string]bool{}
	for i, ch := range chunks {
		assert.Equal(t, i, ch.Index)
		assert.False(t, seen[ch.ID], "duplicate chunk id %s", ch.ID)
		seen[ch.ID] = true
		assert.Equal(t, []float32{float32(i), 0.5}, ch.Vector)
	}
}

func TestSaveChunksRequiresDocument(t *testing.T) {
	store := setupTestStore(t)

	err := store.SaveChunks(context.Background(), chunksFor("orphan", 2))
	require.Error(t, err)

	count, err := store.CountChunks(context.Background(), "orphan")
	require.NoError(t, err)
	assert.Zero(t, count, "failed batch must not leave partial rows")
}

func TestListChunksUnknownDocument(t *testing.T) {
	store := setupTestStore(t)

	chunks, err := store.ListChunks(context.Background(), "nothing")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestOpenCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "index", "drhp.db")
	store, err := Open(path)
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, path, store.Path())
	assert.FileExists(t, path)
}
