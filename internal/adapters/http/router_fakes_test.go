package httpadapter

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/kirillkom/drhp-retrieval/internal/config"
	"github.com/kirillkom/drhp-retrieval/internal/core/domain"
)

type ingestFake struct {
	err      error
	lastName string
}

func (f *ingestFake) Upload(_ context.Context, name string, body io.Reader) (*domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload", io.EOF)
	}
	f.lastName = name

	now := time.Now().UTC()
	return &domain.Document{
		ID:          "doc-1",
		Name:        name,
		StoragePath: "doc-1.pdf",
		Status:      domain.StatusUploaded,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

type retrieverFake struct {
	result *domain.RetrievalResult
	err    error

	lastQuestion string
	lastTopK     int
}

func (f *retrieverFake) Retrieve(_ context.Context, documentID, question string, topK int) (*domain.RetrievalResult, error) {
	f.lastQuestion = question
	f.lastTopK = topK
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &domain.RetrievalResult{DocumentID: documentID, Question: question, Status: domain.RetrievalNotIndexed, Chunks: []domain.RetrievedChunk{}}, nil
}

func (f *retrieverFake) RetrieveRepresentative(ctx context.Context, documentID string) (*domain.RetrievalResult, error) {
	return f.Retrieve(ctx, documentID, "representative", 0)
}

func (f *retrieverFake) Stats(_ context.Context, documentID string) (*domain.IndexStats, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.IndexStats{
		DocumentID:  documentID,
		TotalChunks: 2,
		Sections:    map[domain.SectionTag]int{domain.SectionRiskFactors: 2},
		FirstPage:   3,
		LastPage:    4,
	}, nil
}

type sectionsFake struct {
	err error
}

func (f sectionsFake) Context(_ context.Context, documentID, question string) (*domain.SectionContext, error) {
	if f.err != nil {
		return nil, f.err
	}
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "section context", errors.New("question is required"))
	}
	return &domain.SectionContext{
		DocumentID: documentID,
		Status:     domain.RetrievalOK,
		Quality:    domain.QualityPartial,
		Sections:   []domain.SectionTag{domain.SectionRiskFactors},
		Context:    "## Risk Factors (from DRHP)\nsupplier concentration",
	}, nil
}

type docsFake struct {
	err error
}

func (f docsFake) GetByID(_ context.Context, id string) (*domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Document{ID: id, Name: "Acme", StoragePath: id + ".pdf", Status: domain.StatusReady, Quality: domain.QualityFull}, nil
}

func newTestHandler(cfg config.Config) http.Handler {
	return NewRouter(cfg, &ingestFake{}, &retrieverFake{}, sectionsFake{}, docsFake{}).Handler()
}
