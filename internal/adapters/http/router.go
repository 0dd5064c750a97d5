package httpadapter

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/drhp-retrieval/internal/config"
	"github.com/kirillkom/drhp-retrieval/internal/core/domain"
	"github.com/kirillkom/drhp-retrieval/internal/core/drhp"
	"github.com/kirillkom/drhp-retrieval/internal/core/ports"
)

const (
	serviceName        = "api"
	multipartMemoryMax = 32 << 20
	backpressureWait   = 250 * time.Millisecond
)

// RetrievalRecorder receives one observation per retrieval request.
type RetrievalRecorder interface {
	RecordRetrieval(service, endpoint, status string, passages int, topSimilarity float64, duration time.Duration)
}

// MetricsProvider exposes request metrics and their scrape endpoint.
type MetricsProvider interface {
	RetrievalRecorder
	Middleware(service string, next http.Handler) http.Handler
	Handler() http.Handler
}

type Router struct {
	cfg       config.Config
	ingest    ports.DocumentIngestor
	retriever ports.PassageRetriever
	sections  ports.SectionContextProvider
	docs      ports.DocumentReader
	metrics   MetricsProvider
	logger    *slog.Logger
}

func NewRouter(
	cfg config.Config,
	ingest ports.DocumentIngestor,
	retriever ports.PassageRetriever,
	sections ports.SectionContextProvider,
	docs ports.DocumentReader,
) *Router {
	return &Router{
		cfg:       cfg,
		ingest:    ingest,
		retriever: retriever,
		sections:  sections,
		docs:      docs,
		logger:    slog.Default(),
	}
}

// WithMetrics enables request metrics and the /metrics endpoint.
func (rt *Router) WithMetrics(m MetricsProvider) *Router {
	rt.metrics = m
	return rt
}

// WithLogger sets the access log destination.
func (rt *Router) WithLogger(logger *slog.Logger) *Router {
	if logger != nil {
		rt.logger = logger
	}
	return rt
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("POST /v1/documents", rt.uploadDocument)
	mux.HandleFunc("GET /v1/documents/{id}", rt.getDocumentByID)
	mux.HandleFunc("GET /v1/documents/{id}/stats", rt.indexStats)
	mux.HandleFunc("POST /v1/documents/{id}/retrieve", rt.retrieve)
	mux.HandleFunc("GET /v1/documents/{id}/representative", rt.representative)
	mux.HandleFunc("POST /v1/documents/{id}/sections", rt.sectionContext)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, backpressureWait)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler, rt.logger)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if rt.cfg.APIMaxUploadMB > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, int64(rt.cfg.APIMaxUploadMB)<<20)
	}
	if err := r.ParseMultipartForm(multipartMemoryMax); err != nil {
		if isBodyTooLarge(err) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload exceeds size limit")
			return
		}
		writeError(w, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	defer file.Close()

	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		name = fileHeader.Filename
	}

	doc, err := rt.ingest.Upload(r.Context(), name, file)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, doc)
}

func (rt *Router) getDocumentByID(w http.ResponseWriter, r *http.Request) {
	doc, err := rt.docs.GetByID(r.Context(), noteDocument(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) indexStats(w http.ResponseWriter, r *http.Request) {
	stats, err := rt.retriever.Stats(r.Context(), noteDocument(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type retrieveRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k"`
}

type retrievalResponse struct {
	*domain.RetrievalResult
	Context string `json:"context"`
}

func (rt *Router) retrieve(w http.ResponseWriter, r *http.Request) {
	var req retrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	start := time.Now()
	result, err := rt.retriever.Retrieve(r.Context(), noteDocument(r), req.Question, req.TopK)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	noteOutcome(r.Context(), result.Status, len(result.Chunks))
	rt.recordRetrieval("retrieve", result, time.Since(start))
	writeJSON(w, http.StatusOK, retrievalResponse{
		RetrievalResult: result,
		Context:         drhp.BuildPassageContext(rt.qualityOf(r, result.DocumentID), result),
	})
}

func (rt *Router) representative(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	result, err := rt.retriever.RetrieveRepresentative(r.Context(), noteDocument(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	noteOutcome(r.Context(), result.Status, len(result.Chunks))
	rt.recordRetrieval("representative", result, time.Since(start))
	writeJSON(w, http.StatusOK, retrievalResponse{
		RetrievalResult: result,
		Context:         drhp.BuildPassageContext(rt.qualityOf(r, result.DocumentID), result),
	})
}

func (rt *Router) sectionContext(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	result, err := rt.sections.Context(r.Context(), noteDocument(r), req.Question)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	noteOutcome(r.Context(), result.Status, len(result.Sections))
	writeJSON(w, http.StatusOK, result)
}

// qualityOf is best effort: a missing document row only weakens the note.
func (rt *Router) qualityOf(r *http.Request, documentID string) domain.Quality {
	if rt.docs == nil {
		return ""
	}
	doc, err := rt.docs.GetByID(r.Context(), documentID)
	if err != nil {
		return ""
	}
	return doc.Quality
}

func (rt *Router) recordRetrieval(endpoint string, result *domain.RetrievalResult, elapsed time.Duration) {
	if rt.metrics == nil || result == nil {
		return
	}
	top := 0.0
	for _, c := range result.Chunks {
		if c.Similarity > top {
			top = c.Similarity
		}
	}
	rt.metrics.RecordRetrieval(serviceName, endpoint, string(result.Status), len(result.Chunks), top, elapsed)
}

func isBodyTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	return errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, mapErrorToHTTPStatus(err), err.Error())
}
