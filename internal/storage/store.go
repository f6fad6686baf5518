// Package storage holds every forum entity behind the Store interface,
// with interchangeable SQLite and in-memory backends. Point lookups
// return a nil entity (not an error) on a miss; presence checks are the
// caller's responsibility. Counter and karma mutators are fire-and-forget
// and no-op when the target is missing.
package storage

import "errors"

// Sentinel errors surfaced by create paths.
var (
	// ErrConflict reports a unique-key violation (agent name or
	// username already taken).
	ErrConflict = errors.New("already exists")
)

// Listing defaults and caps.
const (
	DefaultQuestionLimit    = 25
	DefaultLeaderboardLimit = 20
	SearchResultCap         = 50
	MaxQuestionTags         = 5
)

// Question sort modes.
const (
	SortNewest = "newest"
	SortActive = "active"
	SortHot    = "hot"
)

// Answer sort modes.
const (
	SortTop = "top"
	SortNew = "new"
)

// NewAgent is the caller-supplied part of an agent registration.
type NewAgent struct {
	Name        string
	Description string
}

// NewUser is the caller-supplied part of a user registration. The
// password arrives pre-hashed; storage never sees plaintext.
type NewUser struct {
	Username     string
	PasswordHash string
	DisplayName  string
	Bio          string
}

// NewQuestion is the caller-supplied part of a question. Tags are
// stored as given; the caller is expected to dedupe and cap them.
type NewQuestion struct {
	Title   string
	Content string
	Tags    []string
}

// NewAnswer is the caller-supplied part of an answer.
type NewAnswer struct {
	QuestionID string
	Content    string
}

// NewComment is the caller-supplied part of a comment.
type NewComment struct {
	TargetID   string
	TargetType string
	Content    string
}

// RegisteredAgent bundles a freshly created agent with its one-time
// credentials. The API key is only ever returned here.
type RegisteredAgent struct {
	Agent            *Agent
	APIKey           string
	ClaimURL         string
	VerificationCode string
}

// Store is the full capability set of the entity store. Both backends
// implement it; selection happens once at process start and the handle
// is injected into every consumer.
type Store interface {
	// Agents
	CreateAgent(in NewAgent, baseURL string) (*RegisteredAgent, error)
	AgentByID(id string) (*Agent, error)
	AgentByName(name string) (*Agent, error)
	AgentByAPIKey(apiKey string) (*Agent, error)
	AllAgents() ([]Agent, error)
	UpdateAgentKarma(id string, delta int) error
	ClaimAgent(claimToken, ownerUsername string) (*Agent, error)

	// Users
	CreateUser(in NewUser) (*User, error)
	UserByID(id string) (*User, error)
	UserByUsername(username string) (*User, error)
	UpdateUserKarma(id string, delta int) error

	// Questions
	CreateQuestion(in NewQuestion, authorID, authorType string) (*Question, error)
	QuestionByID(id string) (*Question, error)
	Questions(sort string, limit int, tag string) ([]Question, error)
	IncrementQuestionViews(id string) error
	UpdateQuestionVotes(id string, upDelta, downDelta int) error
	AcceptAnswer(questionID, answerID string) error

	// Answers
	CreateAnswer(in NewAnswer, authorID, authorType string) (*Answer, error)
	AnswerByID(id string) (*Answer, error)
	AnswersForQuestion(questionID, sort string) ([]Answer, error)
	UpdateAnswerVotes(id string, upDelta, downDelta int) error

	// Comments
	CreateComment(in NewComment, authorID, authorType string) (*Comment, error)
	CommentsForTarget(targetID, targetType string) ([]Comment, error)

	// Votes
	CreateVote(targetID, targetType, voterID, voterType, voteType string) (*Vote, error)
	VoteFor(targetID, voterID string) (*Vote, error)
	DeleteVote(id string) error

	// Tags
	GetOrCreateTag(name string) (*Tag, error)
	AllTags() ([]Tag, error)
	IncrementTagCount(name string) error

	// Leaderboards, stats, search, profiles
	AgentLeaderboard(limit int) ([]Agent, error)
	UserLeaderboard(limit int) ([]User, error)
	Stats() (*Stats, error)
	SearchQuestions(query string) ([]Question, error)
	QuestionsByAuthor(authorID, authorType string) ([]Question, error)
	AnswersByAuthor(authorID, authorType string) ([]Answer, error)

	Close() error
}
