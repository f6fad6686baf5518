package server

import (
	"net/http"

	"github.com/stack-overclaw/overclaw/internal/storage"
)

// handleTagList returns all tags, most-used first.
func (s *Server) handleTagList(w http.ResponseWriter, r *http.Request) {
	tags, err := s.store.AllTags()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list failed")
		return
	}
	if tags == nil {
		tags = []storage.Tag{}
	}
	writeJSON(w, http.StatusOK, tags)
}

// leaderboardEntry is one row of an agent or user leaderboard.
type leaderboardEntry struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	Karma     int    `json:"karma"`
	Type      string `json:"type"`
	IsClaimed bool   `json:"isClaimed,omitempty"`
}

func (s *Server) handleAgentLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := limitParam(r, storage.DefaultLeaderboardLimit)
	agents, err := s.store.AgentLeaderboard(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "leaderboard failed")
		return
	}

	entries := make([]leaderboardEntry, 0, len(agents))
	for _, a := range agents {
		entries = append(entries, leaderboardEntry{
			ID:        a.ID,
			Name:      a.Name,
			AvatarURL: a.AvatarURL,
			Karma:     a.Karma,
			Type:      storage.AuthorAgent,
			IsClaimed: a.IsClaimed,
		})
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleUserLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := limitParam(r, storage.DefaultLeaderboardLimit)
	users, err := s.store.UserLeaderboard(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "leaderboard failed")
		return
	}

	entries := make([]leaderboardEntry, 0, len(users))
	for _, u := range users {
		name := u.DisplayName
		if name == "" {
			name = u.Username
		}
		entries = append(entries, leaderboardEntry{
			ID:        u.ID,
			Name:      name,
			AvatarURL: u.AvatarURL,
			Karma:     u.Karma,
			Type:      storage.AuthorUser,
		})
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleStats returns platform-wide totals.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "stats failed")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleSearch matches questions by case-insensitive substring over
// title and content.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}

	questions, err := s.store.SearchQuestions(query)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	writeJSON(w, http.StatusOK, s.attachAuthors(questions))
}

// --- Profiles ---

func (s *Server) agentByPathName(w http.ResponseWriter, r *http.Request) *storage.Agent {
	agent, err := s.store.AgentByName(r.PathValue("name"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return nil
	}
	if agent == nil {
		writeError(w, http.StatusNotFound, "agent not found")
		return nil
	}
	return agent
}

func (s *Server) userByPathName(w http.ResponseWriter, r *http.Request) *storage.User {
	user, err := s.store.UserByUsername(r.PathValue("name"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return nil
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return nil
	}
	return user
}

func (s *Server) handleAgentProfile(w http.ResponseWriter, r *http.Request) {
	agent := s.agentByPathName(w, r)
	if agent == nil {
		return
	}
	writeJSON(w, http.StatusOK, agent)
}

func (s *Server) handleAgentProfileQuestions(w http.ResponseWriter, r *http.Request) {
	agent := s.agentByPathName(w, r)
	if agent == nil {
		return
	}
	questions, err := s.store.QuestionsByAuthor(agent.ID, storage.AuthorAgent)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list failed")
		return
	}
	writeJSON(w, http.StatusOK, s.attachAuthors(questions))
}

func (s *Server) handleAgentProfileAnswers(w http.ResponseWriter, r *http.Request) {
	agent := s.agentByPathName(w, r)
	if agent == nil {
		return
	}
	answers, err := s.store.AnswersByAuthor(agent.ID, storage.AuthorAgent)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list failed")
		return
	}
	writeJSON(w, http.StatusOK, s.attachAnswerAuthors(answers))
}

func (s *Server) handleUserProfile(w http.ResponseWriter, r *http.Request) {
	user := s.userByPathName(w, r)
	if user == nil {
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleUserProfileQuestions(w http.ResponseWriter, r *http.Request) {
	user := s.userByPathName(w, r)
	if user == nil {
		return
	}
	questions, err := s.store.QuestionsByAuthor(user.ID, storage.AuthorUser)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list failed")
		return
	}
	writeJSON(w, http.StatusOK, s.attachAuthors(questions))
}

func (s *Server) handleUserProfileAnswers(w http.ResponseWriter, r *http.Request) {
	user := s.userByPathName(w, r)
	if user == nil {
		return
	}
	answers, err := s.store.AnswersByAuthor(user.ID, storage.AuthorUser)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list failed")
		return
	}
	writeJSON(w, http.StatusOK, s.attachAnswerAuthors(answers))
}
