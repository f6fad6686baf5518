package storage

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

// setupSQLite creates a temporary SQLite-backed store.
func setupSQLite(t *testing.T) Store {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// forEachStore runs a subtest against both backends; they must behave
// identically.
func forEachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("sqlite", func(t *testing.T) { fn(t, setupSQLite(t)) })
	t.Run("memory", func(t *testing.T) { fn(t, NewMemoryStore()) })
}

const testBaseURL = "http://localhost:8080"

func mustCreateAgent(t *testing.T, s Store, name string) *RegisteredAgent {
	t.Helper()
	reg, err := s.CreateAgent(NewAgent{Name: name, Description: "test agent"}, testBaseURL)
	if err != nil {
		t.Fatalf("CreateAgent(%q): %v", name, err)
	}
	return reg
}

func mustCreateQuestion(t *testing.T, s Store, authorID, title string, tags ...string) *Question {
	t.Helper()
	q, err := s.CreateQuestion(NewQuestion{Title: title, Content: "content of " + title, Tags: tags}, authorID, AuthorAgent)
	if err != nil {
		t.Fatalf("CreateQuestion(%q): %v", title, err)
	}
	return q
}

func mustCreateAnswer(t *testing.T, s Store, questionID, authorID, content string) *Answer {
	t.Helper()
	a, err := s.CreateAnswer(NewAnswer{QuestionID: questionID, Content: content}, authorID, AuthorAgent)
	if err != nil {
		t.Fatalf("CreateAnswer: %v", err)
	}
	return a
}

func TestCreateAgent_Credentials(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		reg := mustCreateAgent(t, s, "SignalClaw")

		if !strings.HasPrefix(reg.APIKey, "soc_") || len(reg.APIKey) != len("soc_")+48 {
			t.Errorf("APIKey = %q, want soc_ + 48 hex chars", reg.APIKey)
		}
		wantPrefix := testBaseURL + "/claim/soc_claim_"
		if !strings.HasPrefix(reg.ClaimURL, wantPrefix) {
			t.Errorf("ClaimURL = %q, want prefix %q", reg.ClaimURL, wantPrefix)
		}
		if reg.VerificationCode == "" {
			t.Error("VerificationCode is empty")
		}
		if !reg.Agent.IsActive || reg.Agent.IsClaimed {
			t.Errorf("new agent flags = claimed %v active %v, want unclaimed active",
				reg.Agent.IsClaimed, reg.Agent.IsActive)
		}

		byKey, err := s.AgentByAPIKey(reg.APIKey)
		if err != nil {
			t.Fatalf("AgentByAPIKey: %v", err)
		}
		if byKey == nil || byKey.ID != reg.Agent.ID {
			t.Errorf("AgentByAPIKey returned %+v, want agent %s", byKey, reg.Agent.ID)
		}

		byName, err := s.AgentByName("SignalClaw")
		if err != nil {
			t.Fatalf("AgentByName: %v", err)
		}
		if byName == nil || byName.ID != reg.Agent.ID {
			t.Errorf("AgentByName returned %+v, want agent %s", byName, reg.Agent.ID)
		}
	})
}

func TestCreateAgent_NameConflict(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		mustCreateAgent(t, s, "Guardrail")
		_, err := s.CreateAgent(NewAgent{Name: "Guardrail"}, testBaseURL)
		if !errors.Is(err, ErrConflict) {
			t.Fatalf("duplicate CreateAgent error = %v, want ErrConflict", err)
		}
	})
}

func TestAgentLookup_Miss(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		a, err := s.AgentByID("no-such-id")
		if err != nil {
			t.Fatalf("AgentByID: %v", err)
		}
		if a != nil {
			t.Errorf("AgentByID miss = %+v, want nil", a)
		}
	})
}

func TestClaimAgent_SingleUse(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		reg := mustCreateAgent(t, s, "ThreadWeaver")
		token := reg.Agent.ClaimToken

		claimed, err := s.ClaimAgent(token, "alice")
		if err != nil {
			t.Fatalf("ClaimAgent: %v", err)
		}
		if claimed == nil {
			t.Fatal("first claim returned nil")
		}
		if !claimed.IsClaimed || claimed.OwnerUsername != "alice" || claimed.ClaimToken != "" {
			t.Errorf("claimed agent = %+v, want claimed by alice with cleared token", claimed)
		}

		again, err := s.ClaimAgent(token, "bob")
		if err != nil {
			t.Fatalf("second ClaimAgent: %v", err)
		}
		if again != nil {
			t.Errorf("second claim with consumed token = %+v, want nil", again)
		}
	})
}

func TestCreateUser_ConflictAndLookup(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		u, err := s.CreateUser(NewUser{Username: "alice", PasswordHash: "hash", DisplayName: "Alice"})
		if err != nil {
			t.Fatalf("CreateUser: %v", err)
		}

		_, err = s.CreateUser(NewUser{Username: "alice", PasswordHash: "other"})
		if !errors.Is(err, ErrConflict) {
			t.Fatalf("duplicate CreateUser error = %v, want ErrConflict", err)
		}

		got, err := s.UserByUsername("alice")
		if err != nil {
			t.Fatalf("UserByUsername: %v", err)
		}
		if got == nil || got.ID != u.ID || got.PasswordHash != "hash" {
			t.Errorf("UserByUsername = %+v, want user %s", got, u.ID)
		}
	})
}

func TestTagCount_Monotonic(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		agent := mustCreateAgent(t, s, "Toolsmith").Agent

		const n = 4
		for i := 0; i < n; i++ {
			mustCreateQuestion(t, s, agent.ID, "question", "foo", "bar")
		}

		tags, err := s.AllTags()
		if err != nil {
			t.Fatalf("AllTags: %v", err)
		}
		counts := make(map[string]int)
		for _, tag := range tags {
			counts[tag.Name] = tag.QuestionCount
		}
		if counts["foo"] != n || counts["bar"] != n {
			t.Errorf("tag counts = %v, want foo=%d bar=%d", counts, n, n)
		}
	})
}

func TestIncrementTagCount_CreatesAtOne(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		if err := s.IncrementTagCount("fresh"); err != nil {
			t.Fatalf("IncrementTagCount: %v", err)
		}
		tags, err := s.AllTags()
		if err != nil {
			t.Fatalf("AllTags: %v", err)
		}
		if len(tags) != 1 || tags[0].Name != "fresh" || tags[0].QuestionCount != 1 {
			t.Errorf("tags = %+v, want single tag fresh with count 1", tags)
		}
	})
}

func TestAnswerCount_Invariant(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		agent := mustCreateAgent(t, s, "PulseBot").Agent
		q := mustCreateQuestion(t, s, agent.ID, "how?")

		for i := 0; i < 3; i++ {
			mustCreateAnswer(t, s, q.ID, agent.ID, "an answer")

			got, err := s.QuestionByID(q.ID)
			if err != nil {
				t.Fatalf("QuestionByID: %v", err)
			}
			answers, err := s.AnswersForQuestion(q.ID, SortNew)
			if err != nil {
				t.Fatalf("AnswersForQuestion: %v", err)
			}
			if got.AnswerCount != len(answers) {
				t.Fatalf("answerCount = %d, stored answers = %d", got.AnswerCount, len(answers))
			}
		}

		got, _ := s.QuestionByID(q.ID)
		if got.AnswerCount != 3 {
			t.Errorf("answerCount = %d, want 3", got.AnswerCount)
		}
		if !got.UpdatedAt.After(q.UpdatedAt) {
			t.Errorf("updatedAt %v not bumped past %v by new answers", got.UpdatedAt, q.UpdatedAt)
		}
	})
}

func TestQuestions_HotSort(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		agent := mustCreateAgent(t, s, "VectorSage").Agent

		// Hot scores: a = 8+6 = 14, b = 5+10 = 15, c = 5+2 = 7.
		cases := []struct {
			title    string
			up, down int
			answers  int
		}{
			{"a", 10, 2, 3},
			{"b", 5, 0, 5},
			{"c", 20, 15, 1},
		}
		for _, tc := range cases {
			q := mustCreateQuestion(t, s, agent.ID, tc.title)
			if err := s.UpdateQuestionVotes(q.ID, tc.up, tc.down); err != nil {
				t.Fatalf("UpdateQuestionVotes: %v", err)
			}
			for i := 0; i < tc.answers; i++ {
				mustCreateAnswer(t, s, q.ID, agent.ID, "ans")
			}
		}

		got, err := s.Questions(SortHot, 0, "")
		if err != nil {
			t.Fatalf("Questions(hot): %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("got %d questions, want 3", len(got))
		}
		titles := []string{got[0].Title, got[1].Title, got[2].Title}
		if titles[0] != "b" || titles[1] != "a" || titles[2] != "c" {
			t.Errorf("hot order = %v, want [b a c]", titles)
		}
	})
}

func TestQuestions_TagFilterAndLimit(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		agent := mustCreateAgent(t, s, "PatchPilot").Agent
		mustCreateQuestion(t, s, agent.ID, "first", "go")
		mustCreateQuestion(t, s, agent.ID, "second", "rust")
		mustCreateQuestion(t, s, agent.ID, "third", "go", "testing")

		goQs, err := s.Questions(SortNewest, 10, "go")
		if err != nil {
			t.Fatalf("Questions(tag=go): %v", err)
		}
		if len(goQs) != 2 {
			t.Fatalf("got %d questions tagged go, want 2", len(goQs))
		}
		if goQs[0].Title != "third" || goQs[1].Title != "first" {
			t.Errorf("newest order = [%s %s], want [third first]", goQs[0].Title, goQs[1].Title)
		}

		limited, err := s.Questions(SortNewest, 2, "")
		if err != nil {
			t.Fatalf("Questions(limit=2): %v", err)
		}
		if len(limited) != 2 {
			t.Errorf("got %d questions with limit 2, want 2", len(limited))
		}
	})
}

func TestQuestions_ActiveSort(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		agent := mustCreateAgent(t, s, "StackSprinter").Agent
		first := mustCreateQuestion(t, s, agent.ID, "older")
		mustCreateQuestion(t, s, agent.ID, "newer")

		// Answering bumps updatedAt, making the older question active.
		mustCreateAnswer(t, s, first.ID, agent.ID, "bump")

		got, err := s.Questions(SortActive, 10, "")
		if err != nil {
			t.Fatalf("Questions(active): %v", err)
		}
		if got[0].Title != "older" {
			t.Errorf("active order starts with %q, want %q", got[0].Title, "older")
		}
	})
}

func TestAnswers_TopSort(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		agent := mustCreateAgent(t, s, "LogMiner").Agent
		q := mustCreateQuestion(t, s, agent.ID, "which answer wins?")

		accepted := mustCreateAnswer(t, s, q.ID, agent.ID, "accepted")
		popular := mustCreateAnswer(t, s, q.ID, agent.ID, "popular")

		if err := s.UpdateAnswerVotes(accepted.ID, 2, 0); err != nil {
			t.Fatalf("UpdateAnswerVotes: %v", err)
		}
		if err := s.UpdateAnswerVotes(popular.ID, 50, 0); err != nil {
			t.Fatalf("UpdateAnswerVotes: %v", err)
		}
		if err := s.AcceptAnswer(q.ID, accepted.ID); err != nil {
			t.Fatalf("AcceptAnswer: %v", err)
		}

		top, err := s.AnswersForQuestion(q.ID, SortTop)
		if err != nil {
			t.Fatalf("AnswersForQuestion(top): %v", err)
		}
		if top[0].ID != accepted.ID {
			t.Errorf("top answer = %q, want accepted answer despite lower score", top[0].Content)
		}

		gotQ, _ := s.QuestionByID(q.ID)
		if !gotQ.IsSolved || gotQ.AcceptedAnswerID != accepted.ID {
			t.Errorf("question after accept = solved %v accepted %q", gotQ.IsSolved, gotQ.AcceptedAnswerID)
		}
		gotA, _ := s.AnswerByID(accepted.ID)
		if !gotA.IsAccepted {
			t.Error("accepted answer not flagged")
		}
	})
}

func TestSearchQuestions(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		agent := mustCreateAgent(t, s, "SchemaScout").Agent
		mustCreateQuestion(t, s, agent.ID, "Persistent Memory")
		mustCreateQuestion(t, s, agent.ID, "Vector DB")

		got, err := s.SearchQuestions("memory")
		if err != nil {
			t.Fatalf("SearchQuestions: %v", err)
		}
		if len(got) != 1 || got[0].Title != "Persistent Memory" {
			t.Errorf("search(memory) = %d results, want only Persistent Memory", len(got))
		}

		// Content matches too: helper questions embed their title.
		got, err = s.SearchQuestions("VECTOR")
		if err != nil {
			t.Fatalf("SearchQuestions: %v", err)
		}
		if len(got) != 1 || got[0].Title != "Vector DB" {
			t.Errorf("search(VECTOR) = %d results, want only Vector DB", len(got))
		}
	})
}

func TestLeaderboards(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		low := mustCreateAgent(t, s, "low").Agent
		high := mustCreateAgent(t, s, "high").Agent
		if err := s.UpdateAgentKarma(low.ID, 1); err != nil {
			t.Fatalf("UpdateAgentKarma: %v", err)
		}
		if err := s.UpdateAgentKarma(high.ID, 10); err != nil {
			t.Fatalf("UpdateAgentKarma: %v", err)
		}

		board, err := s.AgentLeaderboard(1)
		if err != nil {
			t.Fatalf("AgentLeaderboard: %v", err)
		}
		if len(board) != 1 || board[0].Name != "high" {
			t.Errorf("leaderboard = %+v, want [high]", board)
		}

		u1, _ := s.CreateUser(NewUser{Username: "u1", PasswordHash: "x"})
		u2, _ := s.CreateUser(NewUser{Username: "u2", PasswordHash: "x"})
		s.UpdateUserKarma(u1.ID, -2)
		s.UpdateUserKarma(u2.ID, 5)

		users, err := s.UserLeaderboard(10)
		if err != nil {
			t.Fatalf("UserLeaderboard: %v", err)
		}
		if len(users) != 2 || users[0].Username != "u2" {
			t.Errorf("user leaderboard = %+v, want u2 first", users)
		}
		if users[1].Karma != -2 {
			t.Errorf("karma = %d, want -2 (negative karma is kept)", users[1].Karma)
		}
	})
}

func TestStats(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		agent := mustCreateAgent(t, s, "counter").Agent
		q := mustCreateQuestion(t, s, agent.ID, "q")
		mustCreateAnswer(t, s, q.ID, agent.ID, "a")
		mustCreateAnswer(t, s, q.ID, agent.ID, "b")

		stats, err := s.Stats()
		if err != nil {
			t.Fatalf("Stats: %v", err)
		}
		want := Stats{Agents: 1, Questions: 1, Answers: 2}
		if *stats != want {
			t.Errorf("stats = %+v, want %+v", *stats, want)
		}
	})
}

func TestProfileListings(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		asker := mustCreateAgent(t, s, "asker").Agent
		other := mustCreateAgent(t, s, "other").Agent

		mustCreateQuestion(t, s, asker.ID, "mine 1")
		mustCreateQuestion(t, s, other.ID, "theirs")
		q := mustCreateQuestion(t, s, asker.ID, "mine 2")
		mustCreateAnswer(t, s, q.ID, other.ID, "their answer")

		qs, err := s.QuestionsByAuthor(asker.ID, AuthorAgent)
		if err != nil {
			t.Fatalf("QuestionsByAuthor: %v", err)
		}
		if len(qs) != 2 || qs[0].Title != "mine 2" {
			t.Errorf("questions by author = %+v, want [mine 2, mine 1]", qs)
		}

		as, err := s.AnswersByAuthor(other.ID, AuthorAgent)
		if err != nil {
			t.Fatalf("AnswersByAuthor: %v", err)
		}
		if len(as) != 1 || as[0].QuestionID != q.ID {
			t.Errorf("answers by author = %+v, want the one answer", as)
		}
	})
}

func TestVotes_CRUD(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		v, err := s.CreateVote("target-1", TargetQuestion, "voter-1", AuthorAgent, VoteUp)
		if err != nil {
			t.Fatalf("CreateVote: %v", err)
		}

		got, err := s.VoteFor("target-1", "voter-1")
		if err != nil {
			t.Fatalf("VoteFor: %v", err)
		}
		if got == nil || got.ID != v.ID || got.VoteType != VoteUp {
			t.Errorf("VoteFor = %+v, want vote %s", got, v.ID)
		}

		if err := s.DeleteVote(v.ID); err != nil {
			t.Fatalf("DeleteVote: %v", err)
		}
		got, err = s.VoteFor("target-1", "voter-1")
		if err != nil {
			t.Fatalf("VoteFor after delete: %v", err)
		}
		if got != nil {
			t.Errorf("VoteFor after delete = %+v, want nil", got)
		}
	})
}

func TestIncrementQuestionViews(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		agent := mustCreateAgent(t, s, "viewer").Agent
		q := mustCreateQuestion(t, s, agent.ID, "seen")

		for i := 0; i < 3; i++ {
			if err := s.IncrementQuestionViews(q.ID); err != nil {
				t.Fatalf("IncrementQuestionViews: %v", err)
			}
		}
		// Missing IDs are a silent no-op.
		if err := s.IncrementQuestionViews("missing"); err != nil {
			t.Fatalf("IncrementQuestionViews(missing): %v", err)
		}

		got, _ := s.QuestionByID(q.ID)
		if got.ViewCount != 3 {
			t.Errorf("viewCount = %d, want 3", got.ViewCount)
		}
	})
}

func TestComments(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		agent := mustCreateAgent(t, s, "commenter").Agent
		q := mustCreateQuestion(t, s, agent.ID, "q")

		_, err := s.CreateComment(NewComment{TargetID: q.ID, TargetType: TargetQuestion, Content: "nice"}, agent.ID, AuthorAgent)
		if err != nil {
			t.Fatalf("CreateComment: %v", err)
		}

		comments, err := s.CommentsForTarget(q.ID, TargetQuestion)
		if err != nil {
			t.Fatalf("CommentsForTarget: %v", err)
		}
		if len(comments) != 1 || comments[0].Content != "nice" {
			t.Errorf("comments = %+v, want one comment", comments)
		}

		none, err := s.CommentsForTarget(q.ID, TargetAnswer)
		if err != nil {
			t.Fatalf("CommentsForTarget: %v", err)
		}
		if len(none) != 0 {
			t.Errorf("comments for wrong target type = %+v, want none", none)
		}
	})
}
