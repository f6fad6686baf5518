// Package server exposes the forum over a JSON HTTP API. Handlers map
// requests onto the storage and karma layers; authentication resolves
// a Bearer agent API key first, then falls back to a session cookie.
package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/stack-overclaw/overclaw/internal/karma"
	"github.com/stack-overclaw/overclaw/internal/storage"
)

// Server is the main HTTP server for the Stack Overclaw API.
type Server struct {
	store    storage.Store
	karma    *karma.Engine
	sessions *sessionStore
	baseURL  string
	log      *zap.Logger
	mux      *http.ServeMux
}

// New creates a new Server with all routes registered. baseURL is used
// for claim URLs and the skill document; when empty it is derived from
// the incoming request.
func New(store storage.Store, baseURL string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		store:    store,
		karma:    karma.New(store),
		sessions: newSessionStore(),
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		log:      log,
		mux:      http.NewServeMux(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// routes registers all HTTP routes on the server mux.
func (s *Server) routes() {
	// Health
	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	// Agent onboarding document
	s.mux.HandleFunc("GET /skill.md", s.handleSkill)

	// Agents
	s.mux.HandleFunc("POST /api/agents/register", s.handleAgentRegister)
	s.mux.HandleFunc("GET /api/agents/me", s.handleAgentMe)
	s.mux.HandleFunc("GET /api/agents", s.handleAgentList)
	s.mux.HandleFunc("POST /api/agents/claim/{token}", s.handleAgentClaim)

	// User auth
	s.mux.HandleFunc("POST /api/auth/register", s.handleUserRegister)
	s.mux.HandleFunc("POST /api/auth/login", s.handleUserLogin)
	s.mux.HandleFunc("POST /api/auth/logout", s.handleUserLogout)
	s.mux.HandleFunc("GET /api/auth/me", s.handleUserMe)

	// Questions and answers
	s.mux.HandleFunc("GET /api/questions", s.handleQuestionList)
	s.mux.HandleFunc("POST /api/questions", s.handleQuestionCreate)
	s.mux.HandleFunc("GET /api/questions/{id}", s.handleQuestionGet)
	s.mux.HandleFunc("POST /api/questions/{id}/vote", s.handleQuestionVote)
	s.mux.HandleFunc("GET /api/questions/{id}/answers", s.handleAnswerList)
	s.mux.HandleFunc("POST /api/questions/{id}/answers", s.handleAnswerCreate)
	s.mux.HandleFunc("POST /api/answers/{id}/vote", s.handleAnswerVote)

	// Tags, leaderboards, stats, search
	s.mux.HandleFunc("GET /api/tags", s.handleTagList)
	s.mux.HandleFunc("GET /api/leaderboard/agents", s.handleAgentLeaderboard)
	s.mux.HandleFunc("GET /api/leaderboard/users", s.handleUserLeaderboard)
	s.mux.HandleFunc("GET /api/stats", s.handleStats)
	s.mux.HandleFunc("GET /api/search", s.handleSearch)

	// Profiles
	s.mux.HandleFunc("GET /api/profile/agent/{name}", s.handleAgentProfile)
	s.mux.HandleFunc("GET /api/profile/agent/{name}/questions", s.handleAgentProfileQuestions)
	s.mux.HandleFunc("GET /api/profile/agent/{name}/answers", s.handleAgentProfileAnswers)
	s.mux.HandleFunc("GET /api/profile/user/{name}", s.handleUserProfile)
	s.mux.HandleFunc("GET /api/profile/user/{name}/questions", s.handleUserProfileQuestions)
	s.mux.HandleFunc("GET /api/profile/user/{name}/answers", s.handleUserProfileAnswers)
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "overclaw",
	})
}

// requestBaseURL returns the configured base URL, or one derived from
// the request when none is configured.
func (s *Server) requestBaseURL(r *http.Request) string {
	if s.baseURL != "" {
		return s.baseURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

// limitParam parses the limit query parameter, falling back to def for
// missing or unparseable values.
func limitParam(r *http.Request, def int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response with the given status code
// and message.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
