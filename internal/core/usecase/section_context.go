package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kirillkom/drhp-retrieval/internal/core/domain"
	"github.com/kirillkom/drhp-retrieval/internal/core/drhp"
	"github.com/kirillkom/drhp-retrieval/internal/core/ports"
)

const DefaultSectionContextMaxChars = 10000

// SectionContextUseCase answers from the stored section texts by keyword
// routing. It never calls the embedder.
type SectionContextUseCase struct {
	repo     ports.DocumentRepository
	maxChars int
}

func NewSectionContextUseCase(repo ports.DocumentRepository, maxChars int) *SectionContextUseCase {
	if maxChars <= 0 {
		maxChars = DefaultSectionContextMaxChars
	}
	return &SectionContextUseCase{repo: repo, maxChars: maxChars}
}

func (uc *SectionContextUseCase) Context(ctx context.Context, documentID, question string) (*domain.SectionContext, error) {
	if strings.TrimSpace(question) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "section context", errors.New("question is required"))
	}
	result := &domain.SectionContext{
		DocumentID: documentID,
		Status:     domain.RetrievalNotIndexed,
		Sections:   []domain.SectionTag{},
	}

	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		if domain.IsKind(err, domain.ErrDocumentNotFound) {
			return result, nil
		}
		return nil, fmt.Errorf("fetch document by id: %w", err)
	}

	text, used := drhp.BuildSectionContext(doc, drhp.Route(question), uc.maxChars)
	if text == "" {
		return result, nil
	}
	result.Status = domain.RetrievalOK
	result.Quality = doc.Quality
	result.Sections = used
	result.Context = text
	return result, nil
}
