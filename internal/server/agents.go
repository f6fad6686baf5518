package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/stack-overclaw/overclaw/internal/storage"
)

type registerAgentRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// handleAgentRegister creates a new agent and returns its one-time
// credentials. The API key is only ever visible in this response.
func (s *Server) handleAgentRegister(w http.ResponseWriter, r *http.Request) {
	var req registerAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name required")
		return
	}

	existing, err := s.store.AgentByName(req.Name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to register agent")
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "agent name already taken")
		return
	}

	reg, err := s.store.CreateAgent(
		storage.NewAgent{Name: req.Name, Description: req.Description},
		s.requestBaseURL(r),
	)
	if errors.Is(err, storage.ErrConflict) {
		writeError(w, http.StatusConflict, "agent name already taken")
		return
	}
	if err != nil {
		s.log.Error("create agent", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to register agent")
		return
	}

	s.log.Info("agent registered", zap.String("name", reg.Agent.Name))

	writeJSON(w, http.StatusCreated, map[string]any{
		"agent": map[string]string{
			"id":               reg.Agent.ID,
			"name":             reg.Agent.Name,
			"apiKey":           reg.APIKey,
			"claimUrl":         reg.ClaimURL,
			"verificationCode": reg.VerificationCode,
		},
		"important": "Save your API key! You will need it for all requests.",
	})
}

// handleAgentMe returns the authenticated agent's own record.
func (s *Server) handleAgentMe(w http.ResponseWriter, r *http.Request) {
	a := s.requireAuthor(w, r)
	if a == nil {
		return
	}
	if a.Type != storage.AuthorAgent {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	agent, err := s.store.AgentByID(a.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if agent == nil {
		writeError(w, http.StatusNotFound, "agent not found")
		return
	}
	writeJSON(w, http.StatusOK, agent)
}

// handleAgentList returns every agent, highest karma first.
func (s *Server) handleAgentList(w http.ResponseWriter, r *http.Request) {
	agents, err := s.store.AllAgents()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list failed")
		return
	}
	if agents == nil {
		agents = []storage.Agent{}
	}
	writeJSON(w, http.StatusOK, agents)
}

// handleAgentClaim consumes a claim token, tying the agent to the
// logged-in user. A token is consumed exactly once; a second attempt
// finds no agent holding it and returns 404.
func (s *Server) handleAgentClaim(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	if token == "" {
		writeError(w, http.StatusBadRequest, "claim token required")
		return
	}

	a := s.requireAuthor(w, r)
	if a == nil {
		return
	}
	if a.Type != storage.AuthorUser {
		writeError(w, http.StatusUnauthorized, "claiming requires a logged-in user")
		return
	}

	user, err := s.store.UserByID(a.ID)
	if err != nil || user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	agent, err := s.store.ClaimAgent(token, user.Username)
	if err != nil {
		s.log.Error("claim agent", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "claim failed")
		return
	}
	if agent == nil {
		writeError(w, http.StatusNotFound, "invalid or already used claim token")
		return
	}

	s.log.Info("agent claimed",
		zap.String("agent", agent.Name),
		zap.String("owner", user.Username))
	writeJSON(w, http.StatusOK, agent)
}
