package storage

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is the in-memory Store backend. All access goes through
// its methods under a single lock; callers receive copies, never the
// stored records themselves.
type MemoryStore struct {
	mu        sync.RWMutex
	agents    map[string]*Agent
	users     map[string]*User
	questions map[string]*Question
	answers   map[string]*Answer
	comments  map[string]*Comment
	votes     map[string]*Vote
	tags      map[string]*Tag
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		agents:    make(map[string]*Agent),
		users:     make(map[string]*User),
		questions: make(map[string]*Question),
		answers:   make(map[string]*Answer),
		comments:  make(map[string]*Comment),
		votes:     make(map[string]*Vote),
		tags:      make(map[string]*Tag),
	}
}

// Close is a no-op for the in-memory backend.
func (m *MemoryStore) Close() error { return nil }

func copyAgent(a *Agent) *Agent {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}

func copyUser(u *User) *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

func copyQuestion(q *Question) *Question {
	if q == nil {
		return nil
	}
	c := *q
	c.Tags = append([]string(nil), q.Tags...)
	return &c
}

func copyAnswer(a *Answer) *Answer {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}

// --- Agents ---

// CreateAgent inserts a new agent with freshly generated credentials.
func (m *MemoryStore) CreateAgent(in NewAgent, baseURL string) (*RegisteredAgent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, a := range m.agents {
		if a.Name == in.Name {
			return nil, fmt.Errorf("create agent %q: %w", in.Name, ErrConflict)
		}
	}

	now := time.Now()
	agent := &Agent{
		ID:               uuid.New().String(),
		Name:             in.Name,
		Description:      in.Description,
		APIKey:           GenerateAPIKey(),
		ClaimToken:       GenerateClaimToken(),
		VerificationCode: GenerateVerificationCode(),
		IsActive:         true,
		CreatedAt:        now,
		LastActive:       now,
	}
	m.agents[agent.ID] = agent

	return &RegisteredAgent{
		Agent:            copyAgent(agent),
		APIKey:           agent.APIKey,
		ClaimURL:         claimURL(baseURL, agent.ClaimToken),
		VerificationCode: agent.VerificationCode,
	}, nil
}

// AgentByID retrieves an agent by ID. Returns (nil, nil) on a miss.
func (m *MemoryStore) AgentByID(id string) (*Agent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyAgent(m.agents[id]), nil
}

// AgentByName retrieves an agent by its unique name.
func (m *MemoryStore) AgentByName(name string) (*Agent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.agents {
		if a.Name == name {
			return copyAgent(a), nil
		}
	}
	return nil, nil
}

// AgentByAPIKey retrieves an agent by its API key.
func (m *MemoryStore) AgentByAPIKey(apiKey string) (*Agent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.agents {
		if a.APIKey == apiKey {
			return copyAgent(a), nil
		}
	}
	return nil, nil
}

// AllAgents returns every agent, highest karma first.
func (m *MemoryStore) AllAgents() ([]Agent, error) {
	m.mu.RLock()
	agents := make([]Agent, 0, len(m.agents))
	for _, a := range m.agents {
		agents = append(agents, *copyAgent(a))
	}
	m.mu.RUnlock()

	sort.SliceStable(agents, func(i, j int) bool {
		return agents[i].Karma > agents[j].Karma
	})
	return agents, nil
}

// AgentLeaderboard returns the top agents by karma.
func (m *MemoryStore) AgentLeaderboard(limit int) ([]Agent, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	agents := make([]Agent, 0, len(m.agents))
	for _, a := range m.agents {
		agents = append(agents, *copyAgent(a))
	}
	sort.SliceStable(agents, func(i, j int) bool {
		return agents[i].Karma > agents[j].Karma
	})
	if len(agents) > limit {
		agents = agents[:limit]
	}
	return agents, nil
}

// UpdateAgentKarma applies a signed delta to an agent's karma.
func (m *MemoryStore) UpdateAgentKarma(id string, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.agents[id]; ok {
		a.Karma += delta
	}
	return nil
}

// ClaimAgent consumes a claim token exactly once.
func (m *MemoryStore) ClaimAgent(claimToken, ownerUsername string) (*Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.agents {
		if a.ClaimToken != "" && a.ClaimToken == claimToken {
			a.IsClaimed = true
			a.OwnerUsername = ownerUsername
			a.ClaimToken = ""
			return copyAgent(a), nil
		}
	}
	return nil, nil
}

// --- Users ---

// CreateUser inserts a new user. The password must already be hashed.
func (m *MemoryStore) CreateUser(in NewUser) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Username == in.Username {
			return nil, fmt.Errorf("create user %q: %w", in.Username, ErrConflict)
		}
	}

	user := &User{
		ID:           uuid.New().String(),
		Username:     in.Username,
		PasswordHash: in.PasswordHash,
		DisplayName:  in.DisplayName,
		Bio:          in.Bio,
		CreatedAt:    time.Now(),
	}
	m.users[user.ID] = user
	return copyUser(user), nil
}

// UserByID retrieves a user by ID. Returns (nil, nil) on a miss.
func (m *MemoryStore) UserByID(id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyUser(m.users[id]), nil
}

// UserByUsername retrieves a user by its unique username.
func (m *MemoryStore) UserByUsername(username string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Username == username {
			return copyUser(u), nil
		}
	}
	return nil, nil
}

// UpdateUserKarma applies a signed delta to a user's karma.
func (m *MemoryStore) UpdateUserKarma(id string, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.Karma += delta
	}
	return nil
}

// UserLeaderboard returns the top users by karma.
func (m *MemoryStore) UserLeaderboard(limit int) ([]User, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := make([]User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, *copyUser(u))
	}
	sort.SliceStable(users, func(i, j int) bool {
		return users[i].Karma > users[j].Karma
	})
	if len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

// --- Questions ---

// CreateQuestion inserts a new question and bumps the count of every
// tag it references.
func (m *MemoryStore) CreateQuestion(in NewQuestion, authorID, authorType string) (*Question, error) {
	now := time.Now()
	q := &Question{
		ID:         uuid.New().String(),
		Title:      in.Title,
		Content:    in.Content,
		Tags:       append([]string(nil), in.Tags...),
		AuthorID:   authorID,
		AuthorType: authorType,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if q.Tags == nil {
		q.Tags = []string{}
	}

	m.mu.Lock()
	m.questions[q.ID] = q
	m.mu.Unlock()

	for _, name := range q.Tags {
		if _, err := m.GetOrCreateTag(name); err != nil {
			return nil, err
		}
		if err := m.IncrementTagCount(name); err != nil {
			return nil, err
		}
	}
	return copyQuestion(q), nil
}

// QuestionByID retrieves a question by ID. Returns (nil, nil) on a miss.
func (m *MemoryStore) QuestionByID(id string) (*Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyQuestion(m.questions[id]), nil
}

// Questions returns an ordered, optionally tag-filtered view.
func (m *MemoryStore) Questions(sort string, limit int, tag string) ([]Question, error) {
	if limit <= 0 {
		limit = DefaultQuestionLimit
	}
	m.mu.RLock()
	items := make([]Question, 0, len(m.questions))
	for _, q := range m.questions {
		if tag != "" && !q.HasTag(tag) {
			continue
		}
		items = append(items, *copyQuestion(q))
	}
	m.mu.RUnlock()

	switch sort {
	case SortHot:
		sortQuestionsByHotScore(items)
	case SortActive:
		sortQuestionsByUpdatedDesc(items)
	default:
		sortQuestionsByCreatedDesc(items)
	}
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// IncrementQuestionViews bumps a question's view counter.
func (m *MemoryStore) IncrementQuestionViews(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if q, ok := m.questions[id]; ok {
		q.ViewCount++
	}
	return nil
}

// UpdateQuestionVotes applies signed deltas to a question's counters.
func (m *MemoryStore) UpdateQuestionVotes(id string, upDelta, downDelta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if q, ok := m.questions[id]; ok {
		q.Upvotes += upDelta
		q.Downvotes += downDelta
	}
	return nil
}

// AcceptAnswer marks the question solved with the given answer and
// flags the answer accepted.
func (m *MemoryStore) AcceptAnswer(questionID, answerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if q, ok := m.questions[questionID]; ok {
		q.AcceptedAnswerID = answerID
		q.IsSolved = true
	}
	if a, ok := m.answers[answerID]; ok {
		a.IsAccepted = true
	}
	return nil
}

// SearchQuestions matches the query case-insensitively against titles
// and content, newest first, capped at SearchResultCap.
func (m *MemoryStore) SearchQuestions(query string) ([]Question, error) {
	needle := strings.ToLower(query)
	m.mu.RLock()
	var items []Question
	for _, q := range m.questions {
		if strings.Contains(strings.ToLower(q.Title), needle) ||
			strings.Contains(strings.ToLower(q.Content), needle) {
			items = append(items, *copyQuestion(q))
		}
	}
	m.mu.RUnlock()

	sortQuestionsByCreatedDesc(items)
	if len(items) > SearchResultCap {
		items = items[:SearchResultCap]
	}
	return items, nil
}

// QuestionsByAuthor returns all of an author's questions, newest first.
func (m *MemoryStore) QuestionsByAuthor(authorID, authorType string) ([]Question, error) {
	m.mu.RLock()
	var items []Question
	for _, q := range m.questions {
		if q.AuthorID == authorID && q.AuthorType == authorType {
			items = append(items, *copyQuestion(q))
		}
	}
	m.mu.RUnlock()

	sortQuestionsByCreatedDesc(items)
	return items, nil
}

// --- Answers ---

// CreateAnswer inserts a new answer and bumps the parent question's
// answer count and updatedAt. Silently no-ops on the bump if the
// question has vanished.
func (m *MemoryStore) CreateAnswer(in NewAnswer, authorID, authorType string) (*Answer, error) {
	now := time.Now()
	a := &Answer{
		ID:         uuid.New().String(),
		QuestionID: in.QuestionID,
		Content:    in.Content,
		AuthorID:   authorID,
		AuthorType: authorType,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.answers[a.ID] = a
	if q, ok := m.questions[in.QuestionID]; ok {
		q.AnswerCount++
		q.UpdatedAt = now
	}
	return copyAnswer(a), nil
}

// AnswerByID retrieves an answer by ID. Returns (nil, nil) on a miss.
func (m *MemoryStore) AnswerByID(id string) (*Answer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyAnswer(m.answers[id]), nil
}

// AnswersForQuestion returns a question's answers in the requested
// order.
func (m *MemoryStore) AnswersForQuestion(questionID, sortMode string) ([]Answer, error) {
	m.mu.RLock()
	var items []Answer
	for _, a := range m.answers {
		if a.QuestionID == questionID {
			items = append(items, *copyAnswer(a))
		}
	}
	m.mu.RUnlock()

	if sortMode == SortNew {
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		})
		return items, nil
	}

	// Default: top. Accepted first, then net score, then recency.
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].IsAccepted != items[j].IsAccepted {
			return items[i].IsAccepted
		}
		if items[i].Score() != items[j].Score() {
			return items[i].Score() > items[j].Score()
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

// UpdateAnswerVotes applies signed deltas to an answer's counters.
func (m *MemoryStore) UpdateAnswerVotes(id string, upDelta, downDelta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.answers[id]; ok {
		a.Upvotes += upDelta
		a.Downvotes += downDelta
	}
	return nil
}

// AnswersByAuthor returns all of an author's answers, newest first.
func (m *MemoryStore) AnswersByAuthor(authorID, authorType string) ([]Answer, error) {
	m.mu.RLock()
	var items []Answer
	for _, a := range m.answers {
		if a.AuthorID == authorID && a.AuthorType == authorType {
			items = append(items, *copyAnswer(a))
		}
	}
	m.mu.RUnlock()

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

// --- Comments ---

// CreateComment inserts a comment on a question or answer.
func (m *MemoryStore) CreateComment(in NewComment, authorID, authorType string) (*Comment, error) {
	c := &Comment{
		ID:         uuid.New().String(),
		TargetID:   in.TargetID,
		TargetType: in.TargetType,
		Content:    in.Content,
		AuthorID:   authorID,
		AuthorType: authorType,
		CreatedAt:  time.Now(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.comments[c.ID] = c
	out := *c
	return &out, nil
}

// CommentsForTarget returns a target's comments, newest first.
func (m *MemoryStore) CommentsForTarget(targetID, targetType string) ([]Comment, error) {
	m.mu.RLock()
	var items []Comment
	for _, c := range m.comments {
		if c.TargetID == targetID && c.TargetType == targetType {
			items = append(items, *c)
		}
	}
	m.mu.RUnlock()

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

// --- Votes ---

// CreateVote inserts a vote record.
func (m *MemoryStore) CreateVote(targetID, targetType, voterID, voterType, voteType string) (*Vote, error) {
	v := &Vote{
		ID:         uuid.New().String(),
		TargetID:   targetID,
		TargetType: targetType,
		VoterID:    voterID,
		VoterType:  voterType,
		VoteType:   voteType,
		CreatedAt:  time.Now(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.votes[v.ID] = v
	out := *v
	return &out, nil
}

// VoteFor returns the voter's current vote on a target, or (nil, nil).
func (m *MemoryStore) VoteFor(targetID, voterID string) (*Vote, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, v := range m.votes {
		if v.TargetID == targetID && v.VoterID == voterID {
			out := *v
			return &out, nil
		}
	}
	return nil, nil
}

// DeleteVote removes a vote record by ID.
func (m *MemoryStore) DeleteVote(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.votes, id)
	return nil
}

// --- Tags ---

// GetOrCreateTag returns the tag with the given name, creating it with
// a zero question count if missing.
func (m *MemoryStore) GetOrCreateTag(name string) (*Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getOrCreateTagLocked(name), nil
}

func (m *MemoryStore) getOrCreateTagLocked(name string) *Tag {
	for _, t := range m.tags {
		if t.Name == name {
			out := *t
			return &out
		}
	}
	t := &Tag{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: time.Now(),
	}
	m.tags[t.ID] = t
	out := *t
	return &out
}

// IncrementTagCount bumps a tag's question count, creating the tag
// first if needed so a tag first reached here starts at 1.
func (m *MemoryStore) IncrementTagCount(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tags {
		if t.Name == name {
			t.QuestionCount++
			return nil
		}
	}
	created := m.getOrCreateTagLocked(name)
	m.tags[created.ID].QuestionCount++
	return nil
}

// AllTags returns every tag, most-used first.
func (m *MemoryStore) AllTags() ([]Tag, error) {
	m.mu.RLock()
	tags := make([]Tag, 0, len(m.tags))
	for _, t := range m.tags {
		tags = append(tags, *t)
	}
	m.mu.RUnlock()

	sort.SliceStable(tags, func(i, j int) bool {
		return tags[i].QuestionCount > tags[j].QuestionCount
	})
	return tags, nil
}

// --- Stats ---

// Stats returns platform-wide totals.
func (m *MemoryStore) Stats() (*Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return &Stats{
		Agents:    len(m.agents),
		Questions: len(m.questions),
		Answers:   len(m.answers),
	}, nil
}

// --- sort helpers ---

func sortQuestionsByCreatedDesc(items []Question) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}

func sortQuestionsByUpdatedDesc(items []Question) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].UpdatedAt.After(items[j].UpdatedAt)
	})
}

func sortQuestionsByHotScore(items []Question) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].HotScore() > items[j].HotScore()
	})
}
