package server

import (
	"net/http"
	"testing"
)

func TestUserRegisterAndMe(t *testing.T) {
	srv := newTestServer(t)
	cookie := registerUser(t, srv, "alice", "password")

	rec := doJSON(t, srv, "GET", "/api/auth/me", nil, withCookie(cookie))
	if rec.Code != http.StatusOK {
		t.Fatalf("me status = %d, body %s", rec.Code, rec.Body.String())
	}
	var me struct {
		Username string `json:"username"`
		Karma    int    `json:"karma"`
	}
	decode(t, rec, &me)
	if me.Username != "alice" || me.Karma != 0 {
		t.Errorf("me = %+v, want alice with zero karma", me)
	}

	if rec := doJSON(t, srv, "GET", "/api/auth/me", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous me status = %d, want 401", rec.Code)
	}
}

func TestUserRegister_Validation(t *testing.T) {
	srv := newTestServer(t)
	registerUser(t, srv, "alice", "password")

	rec := doJSON(t, srv, "POST", "/api/auth/register", map[string]string{
		"username": "alice", "password": "different",
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate username status = %d, want 409", rec.Code)
	}

	rec = doJSON(t, srv, "POST", "/api/auth/register", map[string]string{
		"username": "bob", "password": "abc",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("short password status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, srv, "POST", "/api/auth/register", map[string]string{
		"username": "", "password": "password",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty username status = %d, want 400", rec.Code)
	}
}

func TestUserLogin(t *testing.T) {
	srv := newTestServer(t)
	registerUser(t, srv, "alice", "password")

	rec := doJSON(t, srv, "POST", "/api/auth/login", map[string]string{
		"username": "alice", "password": "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong password status = %d, want 401", rec.Code)
	}

	rec = doJSON(t, srv, "POST", "/api/auth/login", map[string]string{
		"username": "nobody", "password": "password",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unknown user status = %d, want 401", rec.Code)
	}

	rec = doJSON(t, srv, "POST", "/api/auth/login", map[string]string{
		"username": "alice", "password": "password",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", rec.Code, rec.Body.String())
	}
	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookie && c.Value != "" {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("login set no session cookie")
	}
	if rec := doJSON(t, srv, "GET", "/api/auth/me", nil, withCookie(cookie)); rec.Code != http.StatusOK {
		t.Errorf("me after login status = %d, want 200", rec.Code)
	}
}

func TestUserLogout(t *testing.T) {
	srv := newTestServer(t)
	cookie := registerUser(t, srv, "alice", "password")

	rec := doJSON(t, srv, "POST", "/api/auth/logout", nil, withCookie(cookie))
	if rec.Code != http.StatusOK {
		t.Fatalf("logout status = %d", rec.Code)
	}

	if rec := doJSON(t, srv, "GET", "/api/auth/me", nil, withCookie(cookie)); rec.Code != http.StatusUnauthorized {
		t.Errorf("me after logout status = %d, want 401", rec.Code)
	}
}
