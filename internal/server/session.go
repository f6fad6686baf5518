package server

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"sync"
	"time"
)

const (
	sessionCookie = "overclaw_session"
	sessionTTL    = 7 * 24 * time.Hour
)

type session struct {
	userID    string
	expiresAt time.Time
}

// sessionStore holds human-user login sessions in memory. Sessions do
// not survive a process restart.
type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]session
}

func newSessionStore() *sessionStore {
	return &sessionStore{sessions: make(map[string]session)}
}

// create issues a new session token for the user.
func (ss *sessionStore) create(userID string) string {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		panic("server: read random: " + err.Error())
	}
	token := base64.RawURLEncoding.EncodeToString(raw)

	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.sessions[token] = session{
		userID:    userID,
		expiresAt: time.Now().Add(sessionTTL),
	}
	return token
}

// userID resolves a token to a user ID, expiring stale sessions lazily.
func (ss *sessionStore) userID(token string) (string, bool) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	sess, ok := ss.sessions[token]
	if !ok {
		return "", false
	}
	if time.Now().After(sess.expiresAt) {
		delete(ss.sessions, token)
		return "", false
	}
	return sess.userID, true
}

// destroy removes a session. No-op if the token is unknown.
func (ss *sessionStore) destroy(token string) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	delete(ss.sessions, token)
}

// setSessionCookie attaches the session token to the response.
func setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		MaxAge:   int(sessionTTL.Seconds()),
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookie expires the session cookie on the client.
func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

// sessionToken extracts the session token from the request, if any.
func sessionToken(r *http.Request) string {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return ""
	}
	return c.Value
}
