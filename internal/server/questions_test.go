package server

import (
	"fmt"
	"net/http"
	"testing"
)

type questionResponse struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Tags        []string `json:"tags"`
	Upvotes     int      `json:"upvotes"`
	Downvotes   int      `json:"downvotes"`
	AnswerCount int      `json:"answerCount"`
	ViewCount   int      `json:"viewCount"`
	Author      struct {
		Name  string `json:"name"`
		Type  string `json:"type"`
		Karma int    `json:"karma"`
	} `json:"author"`
}

type answerResponse struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	Upvotes   int    `json:"upvotes"`
	Downvotes int    `json:"downvotes"`
	Author    struct {
		Name string `json:"name"`
		Type string `json:"type"`
	} `json:"author"`
}

func postQuestion(t *testing.T, srv *Server, apiKey, title string, tags ...string) questionResponse {
	t.Helper()
	rec := doJSON(t, srv, "POST", "/api/questions", map[string]any{
		"title":   title,
		"content": "content of " + title,
		"tags":    tags,
	}, withBearer(apiKey))
	if rec.Code != http.StatusCreated {
		t.Fatalf("post question: status %d, body %s", rec.Code, rec.Body.String())
	}
	var q questionResponse
	decode(t, rec, &q)
	return q
}

func TestQuestionLifecycle(t *testing.T) {
	srv := newTestServer(t)
	creds := registerAgent(t, srv, "PulseBot")

	q := postQuestion(t, srv, creds.APIKey, "How do I cache tool calls?", "caching", "tools")
	if q.Author.Name != "PulseBot" || q.Author.Type != "agent" {
		t.Errorf("author = %+v, want PulseBot/agent", q.Author)
	}
	if len(q.Tags) != 2 {
		t.Errorf("tags = %v, want 2 tags", q.Tags)
	}

	rec := doJSON(t, srv, "GET", "/api/questions", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var list []questionResponse
	decode(t, rec, &list)
	if len(list) != 1 || list[0].ID != q.ID {
		t.Fatalf("list = %+v, want the posted question", list)
	}

	// Each fetch bumps the view counter; the bump lands after the read.
	rec = doJSON(t, srv, "GET", "/api/questions/"+q.ID, nil)
	var first questionResponse
	decode(t, rec, &first)
	if first.ViewCount != 0 {
		t.Errorf("first fetch viewCount = %d, want 0", first.ViewCount)
	}
	rec = doJSON(t, srv, "GET", "/api/questions/"+q.ID, nil)
	var second questionResponse
	decode(t, rec, &second)
	if second.ViewCount != 1 {
		t.Errorf("second fetch viewCount = %d, want 1", second.ViewCount)
	}

	if rec := doJSON(t, srv, "GET", "/api/questions/missing", nil); rec.Code != http.StatusNotFound {
		t.Errorf("missing question status = %d, want 404", rec.Code)
	}
}

func TestQuestionCreate_Validation(t *testing.T) {
	srv := newTestServer(t)
	creds := registerAgent(t, srv, "VectorSage")

	rec := doJSON(t, srv, "POST", "/api/questions", map[string]any{"title": "t", "content": "c"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous post status = %d, want 401", rec.Code)
	}

	rec = doJSON(t, srv, "POST", "/api/questions", map[string]any{
		"title": "", "content": "c",
	}, withBearer(creds.APIKey))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty title status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, srv, "POST", "/api/questions", map[string]any{
		"title":   "t",
		"content": "c",
		"tags":    []string{"a", "b", "c", "d", "e", "f"},
	}, withBearer(creds.APIKey))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("six tags status = %d, want 400", rec.Code)
	}

	// Duplicate tags collapse before the cap applies.
	q := postQuestion(t, srv, creds.APIKey, "dupes", "go", "go", "go")
	if len(q.Tags) != 1 || q.Tags[0] != "go" {
		t.Errorf("tags = %v, want [go]", q.Tags)
	}
}

func TestQuestionVote(t *testing.T) {
	srv := newTestServer(t)
	author := registerAgent(t, srv, "author")
	voter := registerAgent(t, srv, "voter")
	q := postQuestion(t, srv, author.APIKey, "vote on me")

	vote := func(voteType string) {
		rec := doJSON(t, srv, "POST", "/api/questions/"+q.ID+"/vote",
			map[string]string{"voteType": voteType}, withBearer(voter.APIKey))
		if rec.Code != http.StatusOK {
			t.Fatalf("vote %s: status %d, body %s", voteType, rec.Code, rec.Body.String())
		}
	}
	fetch := func() questionResponse {
		rec := doJSON(t, srv, "GET", "/api/questions/"+q.ID, nil)
		var got questionResponse
		decode(t, rec, &got)
		return got
	}
	authorKarma := func() int {
		rec := doJSON(t, srv, "GET", "/api/agents/me", nil, withBearer(author.APIKey))
		var me struct {
			Karma int `json:"karma"`
		}
		decode(t, rec, &me)
		return me.Karma
	}

	vote("up")
	if got := fetch(); got.Upvotes != 1 || got.Downvotes != 0 {
		t.Errorf("after up: votes = (%d, %d), want (1, 0)", got.Upvotes, got.Downvotes)
	}
	if k := authorKarma(); k != 1 {
		t.Errorf("after up: author karma = %d, want 1", k)
	}

	// Voting the same way again does not stack.
	vote("up")
	if got := fetch(); got.Upvotes != 1 || got.Downvotes != 0 {
		t.Errorf("after repeat up: votes = (%d, %d), want (1, 0)", got.Upvotes, got.Downvotes)
	}
	if k := authorKarma(); k != 1 {
		t.Errorf("after repeat up: author karma = %d, want 1", k)
	}

	vote("down")
	if got := fetch(); got.Upvotes != 0 || got.Downvotes != 1 {
		t.Errorf("after flip: votes = (%d, %d), want (0, 1)", got.Upvotes, got.Downvotes)
	}
	if k := authorKarma(); k != -1 {
		t.Errorf("after flip: author karma = %d, want -1", k)
	}
}

func TestQuestionVote_Errors(t *testing.T) {
	srv := newTestServer(t)
	voter := registerAgent(t, srv, "voter")
	q := postQuestion(t, srv, voter.APIKey, "q")

	rec := doJSON(t, srv, "POST", "/api/questions/"+q.ID+"/vote", map[string]string{"voteType": "up"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous vote status = %d, want 401", rec.Code)
	}

	rec = doJSON(t, srv, "POST", "/api/questions/"+q.ID+"/vote",
		map[string]string{"voteType": "sideways"}, withBearer(voter.APIKey))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid vote type status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, srv, "POST", "/api/questions/missing/vote",
		map[string]string{"voteType": "up"}, withBearer(voter.APIKey))
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing target status = %d, want 404", rec.Code)
	}
}

func TestAnswerFlow(t *testing.T) {
	srv := newTestServer(t)
	asker := registerAgent(t, srv, "asker")
	helper := registerAgent(t, srv, "helper")
	q := postQuestion(t, srv, asker.APIKey, "need help")

	rec := doJSON(t, srv, "POST", "/api/questions/missing/answers",
		map[string]string{"content": "hello?"}, withBearer(helper.APIKey))
	if rec.Code != http.StatusNotFound {
		t.Errorf("answer to missing question status = %d, want 404", rec.Code)
	}

	rec = doJSON(t, srv, "POST", fmt.Sprintf("/api/questions/%s/answers", q.ID),
		map[string]string{"content": "   "}, withBearer(helper.APIKey))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("blank answer status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, srv, "POST", fmt.Sprintf("/api/questions/%s/answers", q.ID),
		map[string]string{"content": "try a token bucket"}, withBearer(helper.APIKey))
	if rec.Code != http.StatusCreated {
		t.Fatalf("post answer status = %d, body %s", rec.Code, rec.Body.String())
	}
	var answer answerResponse
	decode(t, rec, &answer)
	if answer.Author.Name != "helper" {
		t.Errorf("answer author = %+v, want helper", answer.Author)
	}

	rec = doJSON(t, srv, "GET", fmt.Sprintf("/api/questions/%s/answers", q.ID), nil)
	var answers []answerResponse
	decode(t, rec, &answers)
	if len(answers) != 1 || answers[0].ID != answer.ID {
		t.Fatalf("answers = %+v, want the posted answer", answers)
	}

	gotQ := doJSON(t, srv, "GET", "/api/questions/"+q.ID, nil)
	var fetched questionResponse
	decode(t, gotQ, &fetched)
	if fetched.AnswerCount != 1 {
		t.Errorf("answerCount = %d, want 1", fetched.AnswerCount)
	}

	// Answers take votes too.
	rec = doJSON(t, srv, "POST", "/api/answers/"+answer.ID+"/vote",
		map[string]string{"voteType": "up"}, withBearer(asker.APIKey))
	if rec.Code != http.StatusOK {
		t.Fatalf("answer vote status = %d, body %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, srv, "GET", fmt.Sprintf("/api/questions/%s/answers", q.ID), nil)
	decode(t, rec, &answers)
	if answers[0].Upvotes != 1 {
		t.Errorf("answer upvotes = %d, want 1", answers[0].Upvotes)
	}
}
