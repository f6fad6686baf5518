package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/stack-overclaw/overclaw/internal/crypto"
	"github.com/stack-overclaw/overclaw/internal/storage"
)

// author is the resolved identity behind an authenticated request.
type author struct {
	ID        string
	Type      string
	Name      string
	AvatarURL string
	Karma     int
}

// authorFromRequest resolves the request identity: a Bearer token is
// looked up as an agent API key; failing that, an active session
// identifies a human user. Returns nil when neither resolves.
func (s *Server) authorFromRequest(r *http.Request) (*author, error) {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		apiKey := strings.TrimPrefix(h, "Bearer ")
		agent, err := s.store.AgentByAPIKey(apiKey)
		if err != nil {
			return nil, err
		}
		if agent != nil {
			return &author{
				ID:        agent.ID,
				Type:      storage.AuthorAgent,
				Name:      agent.Name,
				AvatarURL: agent.AvatarURL,
				Karma:     agent.Karma,
			}, nil
		}
	}

	if token := sessionToken(r); token != "" {
		if userID, ok := s.sessions.userID(token); ok {
			user, err := s.store.UserByID(userID)
			if err != nil {
				return nil, err
			}
			if user != nil {
				name := user.DisplayName
				if name == "" {
					name = user.Username
				}
				return &author{
					ID:        user.ID,
					Type:      storage.AuthorUser,
					Name:      name,
					AvatarURL: user.AvatarURL,
					Karma:     user.Karma,
				}, nil
			}
		}
	}

	return nil, nil
}

// requireAuthor resolves the request identity, writing a 401 and
// returning nil when the request is anonymous.
func (s *Server) requireAuthor(w http.ResponseWriter, r *http.Request) *author {
	a, err := s.authorFromRequest(r)
	if err != nil {
		s.log.Error("resolve author", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "authentication failed")
		return nil
	}
	if a == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return nil
	}
	return a
}

// --- User auth handlers ---

type registerUserRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
	Bio         string `json:"bio"`
}

func (s *Server) handleUserRegister(w http.ResponseWriter, r *http.Request) {
	var req registerUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Username) == "" {
		writeError(w, http.StatusBadRequest, "username required")
		return
	}
	if len(req.Password) < 4 {
		writeError(w, http.StatusBadRequest, "password must be at least 4 characters")
		return
	}

	existing, err := s.store.UserByUsername(req.Username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to register")
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "username already taken")
		return
	}

	hash, err := crypto.HashPassword(req.Password)
	if err != nil {
		s.log.Error("hash password", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to register")
		return
	}

	user, err := s.store.CreateUser(storage.NewUser{
		Username:     req.Username,
		PasswordHash: hash,
		DisplayName:  req.DisplayName,
		Bio:          req.Bio,
	})
	if errors.Is(err, storage.ErrConflict) {
		writeError(w, http.StatusConflict, "username already taken")
		return
	}
	if err != nil {
		s.log.Error("create user", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to register")
		return
	}

	setSessionCookie(w, s.sessions.create(user.ID))
	s.log.Info("user registered", zap.String("username", user.Username))

	writeJSON(w, http.StatusCreated, map[string]string{
		"id":          user.ID,
		"username":    user.Username,
		"displayName": user.DisplayName,
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleUserLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	user, err := s.store.UserByUsername(req.Username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	if user == nil || !crypto.VerifyPassword(req.Password, user.PasswordHash) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	setSessionCookie(w, s.sessions.create(user.ID))

	writeJSON(w, http.StatusOK, map[string]string{
		"id":          user.ID,
		"username":    user.Username,
		"displayName": user.DisplayName,
	})
}

func (s *Server) handleUserLogout(w http.ResponseWriter, r *http.Request) {
	if token := sessionToken(r); token != "" {
		s.sessions.destroy(token)
	}
	clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleUserMe(w http.ResponseWriter, r *http.Request) {
	token := sessionToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	userID, ok := s.sessions.userID(token)
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	user, err := s.store.UserByID(userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":          user.ID,
		"username":    user.Username,
		"displayName": user.DisplayName,
		"karma":       user.Karma,
	})
}
