package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kirillkom/drhp-retrieval/internal/core/domain"
)

func readyDoc() *domain.Document {
	return &domain.Document{
		ID:     "acme",
		Status: domain.StatusReady,
		Sections: domain.SectionTexts{
			RiskFactors: "Dependence on a single supplier.",
			Financials:  "Revenue grew 30% year on year.",
			Litigation:  "Two tax disputes are pending.",
		},
		SectionsFound: []domain.SectionTag{domain.SectionRiskFactors, domain.SectionFinancials, domain.SectionLitigation},
		Quality:       domain.QualityPartial,
	}
}

func TestSectionContextRoutesQuestion(t *testing.T) {
	uc := NewSectionContextUseCase(newRepoFake(readyDoc()), 0)

	result, err := uc.Context(context.Background(), "acme", "how is revenue growth?")
	if err != nil {
		t.Fatalf("Context() error = %v", err)
	}
	if result.Status != domain.RetrievalOK || result.Quality != domain.QualityPartial {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(result.Sections) == 0 || result.Sections[0] != domain.SectionFinancials {
		t.Fatalf("expected financials first, got %v", result.Sections)
	}
	if !strings.Contains(result.Context, "## Financials (from DRHP)") {
		t.Fatalf("expected financials block, got %q", result.Context)
	}
	if strings.Index(result.Context, "## Financials") > strings.Index(result.Context, "## Risk Factors") {
		t.Fatalf("financials must come before risk factors")
	}
}

func TestSectionContextRespectsBudget(t *testing.T) {
	uc := NewSectionContextUseCase(newRepoFake(readyDoc()), 70)

	result, err := uc.Context(context.Background(), "how is revenue growth?", "how is revenue growth?")
	if err != nil {
		t.Fatalf("Context() error = %v", err)
	}
	if result.Status != domain.RetrievalNotIndexed {
		t.Fatalf("unknown document should be not_indexed, got %s", result.Status)
	}

	result, err = uc.Context(context.Background(), "acme", "how is revenue growth?")
	if err != nil {
		t.Fatalf("Context() error = %v", err)
	}
	if len(result.Sections) != 1 || result.Sections[0] != domain.SectionFinancials {
		t.Fatalf("expected only financials within budget, got %v", result.Sections)
	}
}

func TestSectionContextNoSectionText(t *testing.T) {
	doc := &domain.Document{ID: "acme", Status: domain.StatusUnindexable}
	uc := NewSectionContextUseCase(newRepoFake(doc), 0)

	result, err := uc.Context(context.Background(), "acme", "any risks?")
	if err != nil {
		t.Fatalf("Context() error = %v", err)
	}
	if result.Status != domain.RetrievalNotIndexed || result.Context != "" {
		t.Fatalf("expected not_indexed, got %+v", result)
	}
}

func TestSectionContextErrors(t *testing.T) {
	repo := newRepoFake(readyDoc())
	uc := NewSectionContextUseCase(repo, 0)
	if _, err := uc.Context(context.Background(), "acme", " "); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}

	repo.getErr = errors.New("db down")
	if _, err := uc.Context(context.Background(), "acme", "risks"); err == nil {
		t.Fatalf("expected repository error")
	}
}
