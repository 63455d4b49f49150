// Package api provides the REST surface over sessions. Every mutating
// endpoint runs an orchestrator call and persists the resulting session
// state, so interrupts can be resumed by a later request or another client.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/YalmanchiliTejas/Product-manager/internal/cache"
	"github.com/YalmanchiliTejas/Product-manager/internal/docload"
	"github.com/YalmanchiliTejas/Product-manager/internal/models"
	"github.com/YalmanchiliTejas/Product-manager/internal/orchestrator"
	"github.com/YalmanchiliTejas/Product-manager/internal/session"
)

// Server provides the REST API handlers.
type Server struct {
	sessions *session.Manager
	orch     *orchestrator.Orchestrator
	cache    *cache.Service
}

// NewServer creates a new API server. cache may be nil.
func NewServer(sm *session.Manager, orch *orchestrator.Orchestrator, c *cache.Service) *Server {
	return &Server{sessions: sm, orch: orch, cache: c}
}

// Router returns an http.Handler for the API routes.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/sessions", s.createSession)
	mux.HandleFunc("GET /api/v1/sessions", s.listSessions)
	mux.HandleFunc("GET /api/v1/sessions/{id}", s.getSession)
	mux.HandleFunc("DELETE /api/v1/sessions/{id}", s.endSession)

	mux.HandleFunc("POST /api/v1/sessions/{id}/ask", s.ask)
	mux.HandleFunc("POST /api/v1/sessions/{id}/confirm", s.confirm)
	mux.HandleFunc("POST /api/v1/sessions/{id}/review", s.review)

	mux.HandleFunc("GET /api/v1/sessions/{id}/tasks", s.getTasks)
	mux.HandleFunc("GET /api/v1/sessions/{id}/document", s.getDocument)
	mux.HandleFunc("GET /api/v1/sessions/{id}/tickets", s.getTickets)
	mux.HandleFunc("GET /api/v1/sessions/{id}/messages", s.getMessages)

	mux.HandleFunc("GET /api/v1/cache/stats", s.cacheStats)

	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// --- Sessions ---

type createSessionRequest struct {
	ProjectID     string `json:"project_id"`
	UserID        string `json:"user_id"`
	MarketContext string `json:"market_context"`
	DocumentsDir  string `json:"documents_dir"`
	Documents     []struct {
		Filename string `json:"filename"`
		Content  string `json:"content"`
	} `json:"documents"`
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	var docs []models.SourceDocument
	for _, d := range req.Documents {
		if d.Filename == "" || d.Content == "" {
			writeError(w, http.StatusBadRequest, "each document needs a filename and content")
			return
		}
		docs = append(docs, docload.FromContent(d.Filename, d.Content))
	}
	if req.DocumentsDir != "" {
		loaded, err := docload.LoadDir(req.DocumentsDir)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		docs = append(docs, loaded...)
	}

	sess, err := s.sessions.Create(r.Context(), req.ProjectID, req.UserID, docs)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	sess.MarketContext = req.MarketContext

	if err := s.orch.Start(sess); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persist(r, sess)
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	projectID := r.URL.Query().Get("project_id")
	list, err := s.sessions.List(r.Context(), projectID, 50)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) endSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.End(r.Context(), r.PathValue("id"))
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// --- Orchestrator resume points ---

type textRequest struct {
	Question    string `json:"question"`
	Response    string `json:"response"`
	AutoConfirm bool   `json:"auto_confirm"`
}

func (s *Server) ask(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req textRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	if err := s.orch.Ask(r.Context(), sess, req.Question, req.AutoConfirm); err != nil {
		s.writeOrchestratorError(w, err)
		return
	}
	s.persist(r, sess)
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) confirm(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req textRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if err := s.orch.Confirm(r.Context(), sess, req.Response); err != nil {
		s.writeOrchestratorError(w, err)
		return
	}
	s.persist(r, sess)
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) review(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req textRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if err := s.orch.ReviewDocument(r.Context(), sess, req.Response); err != nil {
		s.writeOrchestratorError(w, err)
		return
	}
	s.persist(r, sess)
	writeJSON(w, http.StatusOK, sess)
}

// --- Read-only views ---

func (s *Server) getTasks(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"phase": sess.Phase,
		"tasks": sess.Tasks,
	})
}

func (s *Server) getDocument(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if sess.Document == nil {
		writeError(w, http.StatusNotFound, "no document generated yet")
		return
	}
	writeJSON(w, http.StatusOK, sess.Document)
}

func (s *Server) getTickets(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Tickets)
}

func (s *Server) getMessages(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Messages)
}

// --- Cache ---

func (s *Server) cacheStats(w http.ResponseWriter, r *http.Request) {
	if s.cache == nil {
		writeJSON(w, http.StatusOK, cache.Stats{})
		return
	}
	writeJSON(w, http.StatusOK, s.cache.Stats())
}

// --- Helpers ---

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*models.Session, bool) {
	sess, err := s.sessions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return nil, false
	}
	return sess, true
}

// writeOrchestratorError maps caller-misuse errors to 4xx; anything else
// would be a bug since the orchestrator recovers internal failures itself.
func (s *Server) writeOrchestratorError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, orchestrator.ErrSessionEnded),
		errors.Is(err, orchestrator.ErrNoPendingDocument):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) persist(r *http.Request, sess *models.Session) {
	if err := s.sessions.Save(r.Context(), sess); err != nil {
		slog.Warn("persist session state", "session_id", sess.ID, "error", err)
	}
}
