package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/nyayasetu/legal-rag/internal/core/domain"
	"github.com/nyayasetu/legal-rag/internal/core/ports"
)

type Router struct {
	ingestor  ports.CorpusIngestor
	answerer  ports.QuestionAnswerer
	catalog   ports.CorpusReader
	corpusDir string
	webSearch bool
}

func NewRouter(
	ingestor ports.CorpusIngestor,
	answerer ports.QuestionAnswerer,
	catalog ports.CorpusReader,
	corpusDir string,
	webSearch bool,
) *Router {
	return &Router{
		ingestor:  ingestor,
		answerer:  answerer,
		catalog:   catalog,
		corpusDir: corpusDir,
		webSearch: webSearch,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", rt.health)
	mux.HandleFunc("/api/ask", rt.ask)
	mux.HandleFunc("/api/ingest", rt.ingest)
	mux.HandleFunc("/api/documents", rt.listDocuments)
	return requestIDMiddleware(accessLogMiddleware(mux))
}

func (rt *Router) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	loaded, err := rt.answerer.CollectionSize(r.Context())
	ready := err == nil

	status := "ok"
	if !ready {
		status = "degraded"
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":             status,
		"documents_loaded":   loaded,
		"model_ready":        ready,
		"web_search_enabled": rt.webSearch,
	})
}

type askRequest struct {
	Question     string `json:"question"`
	TopK         int    `json:"top_k"`
	UseWebSearch bool   `json:"use_web_search"`
}

type askResponse struct {
	Answer           string              `json:"answer"`
	Sources          []domain.Source     `json:"sources"`
	WebSources       []domain.WebSnippet `json:"web_sources,omitempty"`
	UsedWebSearch    bool                `json:"used_web_search"`
	ProcessingTimeMS int64               `json:"processing_time_ms"`
}

func (rt *Router) ask(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
		return
	}

	answer, err := rt.answerer.Answer(r.Context(), req.Question, req.TopK, req.UseWebSearch)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, askResponse{
		Answer:           answer.Text,
		Sources:          answer.Sources,
		WebSources:       answer.WebSources,
		UsedWebSearch:    answer.UsedWebSearch,
		ProcessingTimeMS: answer.Elapsed.Milliseconds(),
	})
}

type ingestRequest struct {
	Force bool `json:"force"`
}

func (rt *Router) ingest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req ingestRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
			return
		}
	}

	chunks, err := rt.ingestor.IngestCorpus(r.Context(), rt.corpusDir, req.Force)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"chunks": chunks})
}

func (rt *Router) listDocuments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	files, err := rt.catalog.ListFiles(r.Context())
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	if files == nil {
		files = []domain.CorpusFile{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"documents": files})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
