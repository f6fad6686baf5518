package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const agentColumns = `id, name, description, api_key, claim_token, verification_code,
    is_claimed, is_active, karma, avatar_url, owner_username, created_at, last_active`

// scanAgent reads one agent row from a *sql.Row or *sql.Rows.
func scanAgent(row interface{ Scan(...any) error }) (*Agent, error) {
	var (
		a                           Agent
		description, claimToken     sql.NullString
		verificationCode, avatarURL sql.NullString
		ownerUsername               sql.NullString
		isClaimed, isActive         int
		createdAt, lastActive       int64
	)
	err := row.Scan(&a.ID, &a.Name, &description, &a.APIKey, &claimToken,
		&verificationCode, &isClaimed, &isActive, &a.Karma, &avatarURL,
		&ownerUsername, &createdAt, &lastActive)
	if err != nil {
		return nil, err
	}
	a.Description = description.String
	a.ClaimToken = claimToken.String
	a.VerificationCode = verificationCode.String
	a.IsClaimed = isClaimed == 1
	a.IsActive = isActive == 1
	a.AvatarURL = avatarURL.String
	a.OwnerUsername = ownerUsername.String
	a.CreatedAt = fromUnixNano(createdAt)
	a.LastActive = fromUnixNano(lastActive)
	return &a, nil
}

// CreateAgent inserts a new agent with freshly generated credentials.
// Returns ErrConflict if the name is already taken.
func (d *DB) CreateAgent(in NewAgent, baseURL string) (*RegisteredAgent, error) {
	apiKey := GenerateAPIKey()
	claimToken := GenerateClaimToken()
	code := GenerateVerificationCode()
	now := time.Now()

	agent := &Agent{
		ID:               uuid.New().String(),
		Name:             in.Name,
		Description:      in.Description,
		APIKey:           apiKey,
		ClaimToken:       claimToken,
		VerificationCode: code,
		IsActive:         true,
		CreatedAt:        now,
		LastActive:       now,
	}

	_, err := d.db.Exec(
		`INSERT INTO agents (id, name, description, api_key, claim_token, verification_code,
		     is_claimed, is_active, karma, avatar_url, owner_username, created_at, last_active)
		 VALUES (?, ?, ?, ?, ?, ?, 0, 1, 0, NULL, NULL, ?, ?)`,
		agent.ID, agent.Name, nullable(agent.Description), apiKey, claimToken, code,
		unixNano(now), unixNano(now),
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("create agent %q: %w", in.Name, ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("create agent: %w", err)
	}

	return &RegisteredAgent{
		Agent:            agent,
		APIKey:           apiKey,
		ClaimURL:         claimURL(baseURL, claimToken),
		VerificationCode: code,
	}, nil
}

func (d *DB) agentWhere(clause string, arg any) (*Agent, error) {
	a, err := scanAgent(d.db.QueryRow(
		`SELECT `+agentColumns+` FROM agents WHERE `+clause, arg,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get agent: %w", err)
	}
	return a, nil
}

// AgentByID retrieves an agent by ID. Returns (nil, nil) on a miss.
func (d *DB) AgentByID(id string) (*Agent, error) {
	return d.agentWhere("id = ?", id)
}

// AgentByName retrieves an agent by its unique name.
func (d *DB) AgentByName(name string) (*Agent, error) {
	return d.agentWhere("name = ?", name)
}

// AgentByAPIKey retrieves an agent by its API key.
func (d *DB) AgentByAPIKey(apiKey string) (*Agent, error) {
	return d.agentWhere("api_key = ?", apiKey)
}

// AllAgents returns every agent, highest karma first.
func (d *DB) AllAgents() ([]Agent, error) {
	return d.agentList(`SELECT `+agentColumns+` FROM agents ORDER BY karma DESC`)
}

// AgentLeaderboard returns the top agents by karma.
func (d *DB) AgentLeaderboard(limit int) ([]Agent, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	return d.agentList(`SELECT `+agentColumns+` FROM agents ORDER BY karma DESC LIMIT ?`, limit)
}

func (d *DB) agentList(query string, args ...any) ([]Agent, error) {
	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	var agents []Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		agents = append(agents, *a)
	}
	return agents, rows.Err()
}

// UpdateAgentKarma applies a signed delta to an agent's karma. Karma
// has no floor. No-op if the agent is missing.
func (d *DB) UpdateAgentKarma(id string, delta int) error {
	_, err := d.db.Exec(`UPDATE agents SET karma = karma + ? WHERE id = ?`, delta, id)
	if err != nil {
		return fmt.Errorf("update agent karma: %w", err)
	}
	return nil
}

// ClaimAgent consumes a claim token, marking the agent claimed and
// recording its owner. Returns (nil, nil) if no agent holds the token,
// which is also the case for a token that was already consumed.
func (d *DB) ClaimAgent(claimToken, ownerUsername string) (*Agent, error) {
	agent, err := d.agentWhere("claim_token = ?", claimToken)
	if err != nil || agent == nil {
		return nil, err
	}

	_, err = d.db.Exec(
		`UPDATE agents SET is_claimed = 1, owner_username = ?, claim_token = NULL WHERE id = ?`,
		ownerUsername, agent.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("claim agent: %w", err)
	}

	agent.IsClaimed = true
	agent.OwnerUsername = ownerUsername
	agent.ClaimToken = ""
	return agent, nil
}

// --- Users ---

const userColumns = `id, username, password_hash, display_name, bio, avatar_url, karma, created_at`

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var (
		u                           User
		displayName, bio, avatarURL sql.NullString
		createdAt                   int64
	)
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &displayName, &bio,
		&avatarURL, &u.Karma, &createdAt)
	if err != nil {
		return nil, err
	}
	u.DisplayName = displayName.String
	u.Bio = bio.String
	u.AvatarURL = avatarURL.String
	u.CreatedAt = fromUnixNano(createdAt)
	return &u, nil
}

// CreateUser inserts a new user. The password must already be hashed.
// Returns ErrConflict if the username is taken.
func (d *DB) CreateUser(in NewUser) (*User, error) {
	now := time.Now()
	user := &User{
		ID:           uuid.New().String(),
		Username:     in.Username,
		PasswordHash: in.PasswordHash,
		DisplayName:  in.DisplayName,
		Bio:          in.Bio,
		CreatedAt:    now,
	}

	_, err := d.db.Exec(
		`INSERT INTO users (id, username, password_hash, display_name, bio, avatar_url, karma, created_at)
		 VALUES (?, ?, ?, ?, ?, NULL, 0, ?)`,
		user.ID, user.Username, user.PasswordHash,
		nullable(user.DisplayName), nullable(user.Bio), unixNano(now),
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("create user %q: %w", in.Username, ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (d *DB) userWhere(clause string, arg any) (*User, error) {
	u, err := scanUser(d.db.QueryRow(
		`SELECT `+userColumns+` FROM users WHERE `+clause, arg,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// UserByID retrieves a user by ID. Returns (nil, nil) on a miss.
func (d *DB) UserByID(id string) (*User, error) {
	return d.userWhere("id = ?", id)
}

// UserByUsername retrieves a user by its unique username.
func (d *DB) UserByUsername(username string) (*User, error) {
	return d.userWhere("username = ?", username)
}

// UpdateUserKarma applies a signed delta to a user's karma.
func (d *DB) UpdateUserKarma(id string, delta int) error {
	_, err := d.db.Exec(`UPDATE users SET karma = karma + ? WHERE id = ?`, delta, id)
	if err != nil {
		return fmt.Errorf("update user karma: %w", err)
	}
	return nil
}

// UserLeaderboard returns the top users by karma.
func (d *DB) UserLeaderboard(limit int) ([]User, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	rows, err := d.db.Query(
		`SELECT `+userColumns+` FROM users ORDER BY karma DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("user leaderboard: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}
