package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func scrape(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	return string(body)
}

func TestNormalizePathCollapsesDocumentIDs(t *testing.T) {
	cases := map[string]string{
		"/v1/documents/acme":          "/v1/documents/{document_id}",
		"/v1/documents/acme/retrieve": "/v1/documents/{document_id}/retrieve",
		"/v1/documents":               "/v1/documents",
		"/healthz":                    "/healthz",
	}
	for in, want := range cases {
		if got := normalizePath(in); got != want {
			t.Fatalf("normalizePath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestHTTPMetricsRecordRetrievalAndRequests(t *testing.T) {
	m := NewHTTPServerMetrics("drhp-api")
	m.RecordRetrieval("drhp-api", "retrieve", "ok", 3, 0.71, 20*time.Millisecond)
	m.RecordRetrieval("drhp-api", "retrieve", "not_indexed", 0, 0, time.Millisecond)
	m.RetryAttempt("ollama.embed")

	handler := m.Middleware("drhp-api", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/v1/documents", nil))

	body := scrape(t, m.Handler())
	for _, want := range []string{
		`drhp_retrieval_requests_total{endpoint="retrieve",service="drhp-api",status="not_indexed"} 1`,
		`drhp_retrieval_no_context_total{endpoint="retrieve",service="drhp-api"} 1`,
		`drhp_retrieval_hit_total{endpoint="retrieve",service="drhp-api"} 1`,
		`drhp_remote_retries_total{operation="ollama.embed",service="drhp-api"} 1`,
		`drhp_http_requests_total{method="POST",path="/v1/documents",service="drhp-api",status="202"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics output missing %q", want)
		}
	}
}

func TestWorkerMetricsFinishDocument(t *testing.T) {
	m := NewWorkerMetrics("drhp-worker")
	m.StartDocument()
	m.FinishDocument("drhp-worker", "ready", 120, 2*time.Second, nil)
	m.StartDocument()
	m.FinishDocument("drhp-worker", "ready", 0, time.Second, io.ErrUnexpectedEOF)

	body := scrape(t, m.Handler())
	for _, want := range []string{
		`drhp_worker_document_process_total{service="drhp-worker",status="ready"} 1`,
		`drhp_worker_document_process_total{service="drhp-worker",status="error"} 1`,
		`drhp_worker_chunks_stored_count{service="drhp-worker"} 1`,
		`drhp_worker_document_process_in_flight{service="drhp-worker"} 0`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics output missing %q", want)
		}
	}
}
