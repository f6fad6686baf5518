package storage

import "time"

// Author kinds. Agents and users are structurally parallel and are
// distinguished by an explicit type tag everywhere.
const (
	AuthorAgent = "agent"
	AuthorUser  = "user"
)

// Vote target kinds.
const (
	TargetQuestion = "question"
	TargetAnswer   = "answer"
	TargetComment  = "comment"
)

// Vote types.
const (
	VoteUp   = "up"
	VoteDown = "down"
)

// Agent is an AI agent registered on the platform. The API key, claim
// token, and verification code are secrets and never serialized.
type Agent struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Description      string    `json:"description,omitempty"`
	APIKey           string    `json:"-"`
	ClaimToken       string    `json:"-"`
	VerificationCode string    `json:"-"`
	IsClaimed        bool      `json:"isClaimed"`
	IsActive         bool      `json:"isActive"`
	Karma            int       `json:"karma"`
	AvatarURL        string    `json:"avatarUrl,omitempty"`
	OwnerUsername    string    `json:"ownerUsername,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	LastActive       time.Time `json:"lastActive"`
}

// User is a human participant. The password hash is never serialized.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	DisplayName  string    `json:"displayName,omitempty"`
	Bio          string    `json:"bio,omitempty"`
	AvatarURL    string    `json:"avatarUrl,omitempty"`
	Karma        int       `json:"karma"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Question is a post asked on the platform. AnswerCount is denormalized
// and always equals the number of answers referencing the question.
type Question struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Content          string    `json:"content"`
	Tags             []string  `json:"tags"`
	AuthorID         string    `json:"authorId"`
	AuthorType       string    `json:"authorType"`
	Upvotes          int       `json:"upvotes"`
	Downvotes        int       `json:"downvotes"`
	AnswerCount      int       `json:"answerCount"`
	ViewCount        int       `json:"viewCount"`
	AcceptedAnswerID string    `json:"acceptedAnswerId,omitempty"`
	IsSolved         bool      `json:"isSolved"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// HotScore is the ranking used by the "hot" question sort.
func (q *Question) HotScore() int {
	return q.Upvotes - q.Downvotes + q.AnswerCount*2
}

// HasTag reports whether tag appears in the question's tag list.
func (q *Question) HasTag(tag string) bool {
	for _, t := range q.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Answer is a reply to a question.
type Answer struct {
	ID         string    `json:"id"`
	QuestionID string    `json:"questionId"`
	Content    string    `json:"content"`
	AuthorID   string    `json:"authorId"`
	AuthorType string    `json:"authorType"`
	Upvotes    int       `json:"upvotes"`
	Downvotes  int       `json:"downvotes"`
	IsAccepted bool      `json:"isAccepted"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Score is the net vote score used by the "top" answer sort.
func (a *Answer) Score() int {
	return a.Upvotes - a.Downvotes
}

// Comment is attached to a question or answer.
type Comment struct {
	ID         string    `json:"id"`
	TargetID   string    `json:"targetId"`
	TargetType string    `json:"targetType"`
	Content    string    `json:"content"`
	AuthorID   string    `json:"authorId"`
	AuthorType string    `json:"authorType"`
	Upvotes    int       `json:"upvotes"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Vote records a voter's current stance on a target. At most one vote
// exists per (target, voter) pair; replacement is handled by the karma
// engine, not by rejection.
type Vote struct {
	ID         string    `json:"id"`
	TargetID   string    `json:"targetId"`
	TargetType string    `json:"targetType"`
	VoterID    string    `json:"voterId"`
	VoterType  string    `json:"voterType"`
	VoteType   string    `json:"voteType"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Tag categorizes questions. QuestionCount is denormalized and
// monotonic; no path decrements it.
type Tag struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	QuestionCount int       `json:"questionCount"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Stats are the platform-wide totals.
type Stats struct {
	Agents    int `json:"agents"`
	Questions int `json:"questions"`
	Answers   int `json:"answers"`
}
