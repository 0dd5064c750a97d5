package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/kirillkom/drhp-retrieval/internal/core/domain"
	"github.com/kirillkom/drhp-retrieval/internal/core/drhp"
	"github.com/kirillkom/drhp-retrieval/internal/core/ports"
)

const (
	DefaultTopK          = 6
	DefaultMinSimilarity = 0.25
	maxTopK              = 50

	// RepresentativeQuestion labels results of RetrieveRepresentative.
	RepresentativeQuestion = "representative"
)

// RetrieveUseCase ranks the stored chunks of one document against a
// question by cosine similarity. Chunks of a document are scanned in memory.
type RetrieveUseCase struct {
	chunks        ports.ChunkStore
	embedder      ports.Embedder
	topK          int
	minSimilarity float64
}

func NewRetrieveUseCase(chunks ports.ChunkStore, embedder ports.Embedder, topK int, minSimilarity float64) *RetrieveUseCase {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if minSimilarity < -1 || minSimilarity > 1 {
		minSimilarity = DefaultMinSimilarity
	}
	return &RetrieveUseCase{
		chunks:        chunks,
		embedder:      embedder,
		topK:          topK,
		minSimilarity: minSimilarity,
	}
}

func (uc *RetrieveUseCase) Retrieve(ctx context.Context, documentID, question string, topK int) (*domain.RetrievalResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "retrieve", errors.New("question is required"))
	}
	if topK <= 0 {
		topK = uc.topK
	}
	if topK > maxTopK {
		topK = maxTopK
	}

	result := &domain.RetrievalResult{DocumentID: documentID, Question: question, Chunks: []domain.RetrievedChunk{}}
	chunks, err := uc.load(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		result.Status = domain.RetrievalNotIndexed
		return result, nil
	}

	queryVector, err := uc.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	scored := uc.score(queryVector, chunks)
	if len(scored) > topK {
		scored = scored[:topK]
	}
	result.Chunks = orderByPage(scored)
	result.Status = statusFor(result.Chunks)
	return result, nil
}

// RetrieveRepresentative picks at most one passage per section using a fixed
// question per section. Each section searches its own tagged chunks, or the
// whole document when no chunk carries the tag.
func (uc *RetrieveUseCase) RetrieveRepresentative(ctx context.Context, documentID string) (*domain.RetrievalResult, error) {
	result := &domain.RetrievalResult{
		DocumentID: documentID,
		Question:   RepresentativeQuestion,
		Chunks:     []domain.RetrievedChunk{},
	}
	chunks, err := uc.load(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		result.Status = domain.RetrievalNotIndexed
		return result, nil
	}

	questions := make([]string, len(drhp.RepresentativeQueries))
	for i, q := range drhp.RepresentativeQueries {
		questions[i] = q.Question
	}
	vectors, err := uc.embedder.Embed(ctx, questions)
	if err != nil {
		return nil, fmt.Errorf("embed representative questions: %w", err)
	}
	if len(vectors) != len(questions) {
		return nil, domain.WrapError(
			domain.ErrInvalidInput,
			"embed representative questions",
			fmt.Errorf("vectors/questions mismatch: %d/%d", len(vectors), len(questions)),
		)
	}

	// A chunk picked for an earlier section is skipped. A section searching
	// the whole pool then takes its next best chunk or contributes nothing.
	picked := make(map[string]bool, len(questions))
	var selected []domain.RetrievedChunk
	for i, q := range drhp.RepresentativeQueries {
		pool := chunksInSection(chunks, q.Section)
		if len(pool) == 0 {
			pool = chunks
		}
		for _, candidate := range uc.score(vectors[i], pool) {
			if picked[candidate.ChunkID] {
				continue
			}
			picked[candidate.ChunkID] = true
			selected = append(selected, candidate)
			break
		}
	}

	result.Chunks = orderByPage(selected)
	result.Status = statusFor(result.Chunks)
	return result, nil
}

// Stats summarizes what is stored for a document without embedding anything.
func (uc *RetrieveUseCase) Stats(ctx context.Context, documentID string) (*domain.IndexStats, error) {
	chunks, err := uc.load(ctx, documentID)
	if err != nil {
		return nil, err
	}
	stats := &domain.IndexStats{
		DocumentID:  documentID,
		TotalChunks: len(chunks),
		Sections:    make(map[domain.SectionTag]int),
	}
	for i, ch := range chunks {
		stats.Sections[ch.Section]++
		if i == 0 || ch.PageNumber < stats.FirstPage {
			stats.FirstPage = ch.PageNumber
		}
		if ch.PageNumber > stats.LastPage {
			stats.LastPage = ch.PageNumber
		}
	}
	return stats, nil
}

func (uc *RetrieveUseCase) load(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	if strings.TrimSpace(documentID) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "load chunks", errors.New("document id is required"))
	}
	chunks, err := uc.chunks.ListChunks(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	return chunks, nil
}

// score returns the chunks at or above the similarity floor, best first.
func (uc *RetrieveUseCase) score(query []float32, chunks []domain.Chunk) []domain.RetrievedChunk {
	out := make([]domain.RetrievedChunk, 0, len(chunks))
	for _, ch := range chunks {
		sim := cosineSimilarity(query, ch.Vector)
		if sim < uc.minSimilarity {
			continue
		}
		out = append(out, domain.RetrievedChunk{
			ChunkID:    ch.ID,
			DocumentID: ch.DocumentID,
			PageNumber: ch.PageNumber,
			Section:    ch.Section,
			Index:      ch.Index,
			Text:       ch.Text,
			Similarity: sim,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		return out[i].Index < out[j].Index
	})
	return out
}

func chunksInSection(chunks []domain.Chunk, section domain.SectionTag) []domain.Chunk {
	var out []domain.Chunk
	for _, ch := range chunks {
		if ch.Section == section {
			out = append(out, ch)
		}
	}
	return out
}

// orderByPage restores reading order for the selected passages.
func orderByPage(chunks []domain.RetrievedChunk) []domain.RetrievedChunk {
	out := append([]domain.RetrievedChunk{}, chunks...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].PageNumber != out[j].PageNumber {
			return out[i].PageNumber < out[j].PageNumber
		}
		return out[i].Similarity > out[j].Similarity
	})
	return out
}

func statusFor(chunks []domain.RetrievedChunk) domain.RetrievalStatus {
	if len(chunks) == 0 {
		return domain.RetrievalNoRelevant
	}
	return domain.RetrievalOK
}

// cosineSimilarity is 0 for empty, mismatched or zero-magnitude vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	switch {
	case sim > 1:
		return 1
	case sim < -1:
		return -1
	}
	return sim
}
