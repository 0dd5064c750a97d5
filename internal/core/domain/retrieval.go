package domain

type RetrievalStatus string

const (
	RetrievalOK         RetrievalStatus = "ok"
	RetrievalNotIndexed RetrievalStatus = "not_indexed"
	RetrievalNoRelevant RetrievalStatus = "no_relevant"
)

type RetrievedChunk struct {
	ChunkID    string     `json:"chunk_id"`
	DocumentID string     `json:"document_id"`
	PageNumber int        `json:"page_number"`
	Section    SectionTag `json:"section"`
	Index      int        `json:"chunk_index"`
	Text       string     `json:"text"`
	Similarity float64    `json:"similarity"`
}

type RetrievalResult struct {
	DocumentID string           `json:"document_id"`
	Question   string           `json:"question,omitempty"`
	Status     RetrievalStatus  `json:"status"`
	Chunks     []RetrievedChunk `json:"chunks"`
}

type IndexStats struct {
	DocumentID  string             `json:"document_id"`
	TotalChunks int                `json:"total_chunks"`
	Sections    map[SectionTag]int `json:"sections"`
	FirstPage   int                `json:"first_page,omitempty"`
	LastPage    int                `json:"last_page,omitempty"`
}

// SectionContext is the keyword-routed, section-store answer context.
type SectionContext struct {
	DocumentID string          `json:"document_id"`
	Status     RetrievalStatus `json:"status"`
	Quality    Quality         `json:"quality,omitempty"`
	Sections   []SectionTag    `json:"sections"`
	Context    string          `json:"context"`
}
