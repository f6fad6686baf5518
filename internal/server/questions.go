package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/stack-overclaw/overclaw/internal/karma"
	"github.com/stack-overclaw/overclaw/internal/storage"
)

// authorInfo is the author summary attached to questions and answers.
type authorInfo struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	Karma     int    `json:"karma"`
	Type      string `json:"type"`
}

type questionWithAuthor struct {
	storage.Question
	Author authorInfo `json:"author"`
}

type answerWithAuthor struct {
	storage.Answer
	Author authorInfo `json:"author"`
}

// authorSummary looks up the author behind a post. Deleted or unknown
// authors degrade to a placeholder rather than failing the response.
func (s *Server) authorSummary(authorID, authorType string) authorInfo {
	if authorType == storage.AuthorAgent {
		agent, err := s.store.AgentByID(authorID)
		if err != nil || agent == nil {
			return authorInfo{Name: "Unknown Agent", Type: storage.AuthorAgent}
		}
		return authorInfo{
			ID:        agent.ID,
			Name:      agent.Name,
			AvatarURL: agent.AvatarURL,
			Karma:     agent.Karma,
			Type:      storage.AuthorAgent,
		}
	}

	user, err := s.store.UserByID(authorID)
	if err != nil || user == nil {
		return authorInfo{Name: "Unknown User", Type: storage.AuthorUser}
	}
	name := user.DisplayName
	if name == "" {
		name = user.Username
	}
	return authorInfo{
		ID:        user.ID,
		Name:      name,
		AvatarURL: user.AvatarURL,
		Karma:     user.Karma,
		Type:      storage.AuthorUser,
	}
}

func (s *Server) attachAuthors(questions []storage.Question) []questionWithAuthor {
	out := make([]questionWithAuthor, 0, len(questions))
	for _, q := range questions {
		out = append(out, questionWithAuthor{
			Question: q,
			Author:   s.authorSummary(q.AuthorID, q.AuthorType),
		})
	}
	return out
}

func (s *Server) attachAnswerAuthors(answers []storage.Answer) []answerWithAuthor {
	out := make([]answerWithAuthor, 0, len(answers))
	for _, a := range answers {
		out = append(out, answerWithAuthor{
			Answer: a,
			Author: s.authorSummary(a.AuthorID, a.AuthorType),
		})
	}
	return out
}

// --- Question handlers ---

// handleQuestionList returns the question feed: optional tag filter,
// sort one of newest (default), active, or hot, truncated to limit.
func (s *Server) handleQuestionList(w http.ResponseWriter, r *http.Request) {
	sort := r.URL.Query().Get("sort")
	if sort == "" {
		sort = storage.SortNewest
	}
	limit := limitParam(r, storage.DefaultQuestionLimit)
	tag := r.URL.Query().Get("tag")

	questions, err := s.store.Questions(sort, limit, tag)
	if err != nil {
		s.log.Error("list questions", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list failed")
		return
	}
	writeJSON(w, http.StatusOK, s.attachAuthors(questions))
}

// handleQuestionGet returns a single question and bumps its view count.
func (s *Server) handleQuestionGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	question, err := s.store.QuestionByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if question == nil {
		writeError(w, http.StatusNotFound, "question not found")
		return
	}

	if err := s.store.IncrementQuestionViews(id); err != nil {
		s.log.Warn("increment views", zap.String("question", id), zap.Error(err))
	}

	writeJSON(w, http.StatusOK, questionWithAuthor{
		Question: *question,
		Author:   s.authorSummary(question.AuthorID, question.AuthorType),
	})
}

type createQuestionRequest struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

// handleQuestionCreate posts a new question. Tags are normalized here:
// trimmed, deduplicated, and capped at MaxQuestionTags — the storage
// layer counts tags per occurrence and relies on this.
func (s *Server) handleQuestionCreate(w http.ResponseWriter, r *http.Request) {
	a := s.requireAuthor(w, r)
	if a == nil {
		return
	}

	var req createQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "title and content required")
		return
	}

	tags := normalizeTags(req.Tags)
	if len(tags) > storage.MaxQuestionTags {
		writeError(w, http.StatusBadRequest, "at most 5 tags allowed")
		return
	}

	question, err := s.store.CreateQuestion(
		storage.NewQuestion{Title: req.Title, Content: req.Content, Tags: tags},
		a.ID, a.Type,
	)
	if err != nil {
		s.log.Error("create question", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create question")
		return
	}

	writeJSON(w, http.StatusCreated, questionWithAuthor{
		Question: *question,
		Author:   s.authorSummary(question.AuthorID, question.AuthorType),
	})
}

// normalizeTags trims, drops empties, and dedupes preserving order.
func normalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

type voteRequest struct {
	VoteType string `json:"voteType"`
}

// handleQuestionVote casts or replaces the caller's vote on a question.
func (s *Server) handleQuestionVote(w http.ResponseWriter, r *http.Request) {
	s.handleVote(w, r, storage.TargetQuestion, "question not found")
}

// handleAnswerVote casts or replaces the caller's vote on an answer.
func (s *Server) handleAnswerVote(w http.ResponseWriter, r *http.Request) {
	s.handleVote(w, r, storage.TargetAnswer, "answer not found")
}

func (s *Server) handleVote(w http.ResponseWriter, r *http.Request, targetType, missingMsg string) {
	a := s.requireAuthor(w, r)
	if a == nil {
		return
	}

	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.VoteType != storage.VoteUp && req.VoteType != storage.VoteDown {
		writeError(w, http.StatusBadRequest, "invalid vote type")
		return
	}

	id := r.PathValue("id")
	err := s.karma.Vote(targetType, id, a.ID, a.Type, req.VoteType)
	if errors.Is(err, karma.ErrTargetNotFound) {
		writeError(w, http.StatusNotFound, missingMsg)
		return
	}
	if err != nil {
		s.log.Error("cast vote", zap.String("target", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "vote failed")
		return
	}

	msg := "Upvoted!"
	if req.VoteType == storage.VoteDown {
		msg = "Downvoted!"
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": msg})
}

// --- Answer handlers ---

// handleAnswerList returns a question's answers, sorted top (default)
// or new.
func (s *Server) handleAnswerList(w http.ResponseWriter, r *http.Request) {
	sort := r.URL.Query().Get("sort")
	if sort == "" {
		sort = storage.SortTop
	}

	answers, err := s.store.AnswersForQuestion(r.PathValue("id"), sort)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list failed")
		return
	}
	writeJSON(w, http.StatusOK, s.attachAnswerAuthors(answers))
}

type createAnswerRequest struct {
	Content string `json:"content"`
}

// handleAnswerCreate posts an answer to a question.
func (s *Server) handleAnswerCreate(w http.ResponseWriter, r *http.Request) {
	a := s.requireAuthor(w, r)
	if a == nil {
		return
	}

	questionID := r.PathValue("id")
	question, err := s.store.QuestionByID(questionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if question == nil {
		writeError(w, http.StatusNotFound, "question not found")
		return
	}

	var req createAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "content required")
		return
	}

	answer, err := s.store.CreateAnswer(
		storage.NewAnswer{QuestionID: questionID, Content: req.Content},
		a.ID, a.Type,
	)
	if err != nil {
		s.log.Error("create answer", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create answer")
		return
	}

	writeJSON(w, http.StatusCreated, answerWithAuthor{
		Answer: *answer,
		Author: s.authorSummary(answer.AuthorID, answer.AuthorType),
	})
}
