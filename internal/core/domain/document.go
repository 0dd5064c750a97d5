package domain

import (
	"fmt"
	"time"
)

type DocumentStatus string

const (
	StatusUploaded    DocumentStatus = "uploaded"
	StatusProcessing  DocumentStatus = "processing"
	StatusReady       DocumentStatus = "ready"
	StatusUnindexable DocumentStatus = "unindexable"
	StatusFailed      DocumentStatus = "failed"
)

type SectionTag string

const (
	SectionRiskFactors SectionTag = "risk_factors"
	SectionObjects     SectionTag = "objects"
	SectionFinancials  SectionTag = "financials"
	SectionPromoters   SectionTag = "promoters"
	SectionLitigation  SectionTag = "litigation"
	SectionOverview    SectionTag = "overview"
	SectionGeneral     SectionTag = "general"
)

// CanonicalSections is the storage order of the six named prospectus sections.
var CanonicalSections = []SectionTag{
	SectionRiskFactors,
	SectionObjects,
	SectionFinancials,
	SectionPromoters,
	SectionLitigation,
	SectionOverview,
}

type Quality string

const (
	QualityFull    Quality = "full"
	QualityPartial Quality = "partial"
	QualityLimited Quality = "limited"
)

// SectionTexts holds the capped per-section text of a prospectus.
type SectionTexts struct {
	RiskFactors string `json:"risk_factors,omitempty"`
	Objects     string `json:"objects,omitempty"`
	Financials  string `json:"financials,omitempty"`
	Promoters   string `json:"promoters,omitempty"`
	Litigation  string `json:"litigation,omitempty"`
	Overview    string `json:"overview,omitempty"`
}

func (s SectionTexts) Get(tag SectionTag) string {
	switch tag {
	case SectionRiskFactors:
		return s.RiskFactors
	case SectionObjects:
		return s.Objects
	case SectionFinancials:
		return s.Financials
	case SectionPromoters:
		return s.Promoters
	case SectionLitigation:
		return s.Litigation
	case SectionOverview:
		return s.Overview
	default:
		return ""
	}
}

func (s *SectionTexts) Set(tag SectionTag, text string) {
	switch tag {
	case SectionRiskFactors:
		s.RiskFactors = text
	case SectionObjects:
		s.Objects = text
	case SectionFinancials:
		s.Financials = text
	case SectionPromoters:
		s.Promoters = text
	case SectionLitigation:
		s.Litigation = text
	case SectionOverview:
		s.Overview = text
	}
}

// FinancialFacts are numeric figures (in crore) pulled from the prospectus text.
type FinancialFacts struct {
	RevenueCr []float64 `json:"revenue_cr,omitempty"`
	ProfitCr  []float64 `json:"profit_cr,omitempty"`
}

func (f FinancialFacts) Count() int {
	return len(f.RevenueCr) + len(f.ProfitCr)
}

type Document struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	StoragePath   string         `json:"storage_path"`
	PageCount     int            `json:"page_count"`
	Sections      SectionTexts   `json:"sections"`
	Quality       Quality        `json:"quality"`
	SectionsFound []SectionTag   `json:"sections_found"`
	Facts         FinancialFacts `json:"facts"`
	Status        DocumentStatus `json:"status"`
	Error         string         `json:"error,omitempty"`
	ProcessedAt   *time.Time     `json:"processed_at,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// Analysis is the full set of derived fields written when a document is (re-)processed.
type Analysis struct {
	PageCount     int
	Sections      SectionTexts
	Quality       Quality
	SectionsFound []SectionTag
	Facts         FinancialFacts
	Status        DocumentStatus
	Error         string
	ProcessedAt   time.Time
}

type Chunk struct {
	ID            string     `json:"chunk_id"`
	DocumentID    string     `json:"document_id"`
	PageNumber    int        `json:"page_number"`
	Section       SectionTag `json:"section"`
	Index         int        `json:"chunk_index"`
	Text          string     `json:"text"`
	TokenEstimate int        `json:"token_estimate"`
	Vector        []float32  `json:"-"`
	IndexedAt     time.Time  `json:"indexed_at"`
}

func ChunkID(documentID string, index int) string {
	return fmt.Sprintf("%s_chunk_%04d", documentID, index)
}

type Page struct {
	Number int
	Text   string
}

// ExtractionResult is either a list of pages or a document-level failure.
type ExtractionResult struct {
	Pages        []Page
	TotalPages   int
	SkippedPages int
	Failed       bool
	Reason       string
}

func (r ExtractionResult) Empty() bool {
	return r.Failed || len(r.Pages) == 0
}

// IndexReport summarizes one processing run of a document.
type IndexReport struct {
	DocumentID   string         `json:"document_id"`
	Status       DocumentStatus `json:"status"`
	Pages        int            `json:"pages"`
	ChunksStored int            `json:"chunks_stored"`
	Skipped      bool           `json:"skipped"`
	Quality      Quality        `json:"quality,omitempty"`
	Reason       string         `json:"reason,omitempty"`
}
