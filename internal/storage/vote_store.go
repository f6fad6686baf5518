package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateVote inserts a vote record. The karma engine removes any
// existing vote for the same (target, voter) pair before calling this;
// the UNIQUE(target_id, voter_id) constraint backs that invariant.
func (d *DB) CreateVote(targetID, targetType, voterID, voterType, voteType string) (*Vote, error) {
	now := time.Now()
	v := &Vote{
		ID:         uuid.New().String(),
		TargetID:   targetID,
		TargetType: targetType,
		VoterID:    voterID,
		VoterType:  voterType,
		VoteType:   voteType,
		CreatedAt:  now,
	}

	_, err := d.db.Exec(
		`INSERT INTO votes (id, target_id, target_type, voter_id, voter_type, vote_type, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		v.ID, targetID, targetType, voterID, voterType, voteType, unixNano(now),
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("create vote: %w", ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("create vote: %w", err)
	}
	return v, nil
}

// VoteFor returns the voter's current vote on a target, or (nil, nil)
// if the voter has not voted on it.
func (d *DB) VoteFor(targetID, voterID string) (*Vote, error) {
	var (
		v         Vote
		createdAt int64
	)
	err := d.db.QueryRow(
		`SELECT id, target_id, target_type, voter_id, voter_type, vote_type, created_at
		 FROM votes WHERE target_id = ? AND voter_id = ?`,
		targetID, voterID,
	).Scan(&v.ID, &v.TargetID, &v.TargetType, &v.VoterID, &v.VoterType, &v.VoteType, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get vote: %w", err)
	}
	v.CreatedAt = fromUnixNano(createdAt)
	return &v, nil
}

// DeleteVote removes a vote record by ID. No-op if already gone.
func (d *DB) DeleteVote(id string) error {
	if _, err := d.db.Exec(`DELETE FROM votes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete vote: %w", err)
	}
	return nil
}

// --- Tags ---

const tagColumns = `id, name, description, question_count, created_at`

func scanTag(row interface{ Scan(...any) error }) (*Tag, error) {
	var (
		t           Tag
		description sql.NullString
		createdAt   int64
	)
	err := row.Scan(&t.ID, &t.Name, &description, &t.QuestionCount, &createdAt)
	if err != nil {
		return nil, err
	}
	t.Description = description.String
	t.CreatedAt = fromUnixNano(createdAt)
	return &t, nil
}

// GetOrCreateTag returns the tag with the given name, creating it with
// a zero question count if it does not exist.
func (d *DB) GetOrCreateTag(name string) (*Tag, error) {
	t, err := scanTag(d.db.QueryRow(
		`SELECT `+tagColumns+` FROM tags WHERE name = ?`, name,
	))
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get tag: %w", err)
	}

	now := time.Now()
	tag := &Tag{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: now,
	}
	_, err = d.db.Exec(
		`INSERT INTO tags (id, name, description, question_count, created_at)
		 VALUES (?, ?, NULL, 0, ?)`,
		tag.ID, name, unixNano(now),
	)
	if isUniqueViolation(err) {
		// Lost a race with another creator; the tag exists now.
		return d.GetOrCreateTag(name)
	}
	if err != nil {
		return nil, fmt.Errorf("create tag: %w", err)
	}
	return tag, nil
}

// IncrementTagCount bumps a tag's question count by one, creating the
// tag first if it does not exist yet. A tag first reached through this
// path therefore starts at 1.
func (d *DB) IncrementTagCount(name string) error {
	res, err := d.db.Exec(`UPDATE tags SET question_count = question_count + 1 WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("increment tag count: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("increment tag count: %w", err)
	}
	if n == 0 {
		if _, err := d.GetOrCreateTag(name); err != nil {
			return err
		}
		_, err := d.db.Exec(`UPDATE tags SET question_count = question_count + 1 WHERE name = ?`, name)
		if err != nil {
			return fmt.Errorf("increment tag count: %w", err)
		}
	}
	return nil
}

// AllTags returns every tag, most-used first.
func (d *DB) AllTags() ([]Tag, error) {
	rows, err := d.db.Query(
		`SELECT ` + tagColumns + ` FROM tags ORDER BY question_count DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	var tags []Tag
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, *t)
	}
	return tags, rows.Err()
}

// --- Stats ---

// Stats returns platform-wide totals.
func (d *DB) Stats() (*Stats, error) {
	var s Stats
	if err := d.db.QueryRow(`SELECT count(*) FROM agents`).Scan(&s.Agents); err != nil {
		return nil, fmt.Errorf("count agents: %w", err)
	}
	if err := d.db.QueryRow(`SELECT count(*) FROM questions`).Scan(&s.Questions); err != nil {
		return nil, fmt.Errorf("count questions: %w", err)
	}
	if err := d.db.QueryRow(`SELECT count(*) FROM answers`).Scan(&s.Answers); err != nil {
		return nil, fmt.Errorf("count answers: %w", err)
	}
	return &s, nil
}
