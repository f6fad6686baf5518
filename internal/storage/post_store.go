package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const questionColumns = `id, title, content, tags, author_id, author_type,
    upvotes, downvotes, answer_count, view_count, accepted_answer_id, is_solved,
    created_at, updated_at`

func scanQuestion(row interface{ Scan(...any) error }) (*Question, error) {
	var (
		q                    Question
		tagsJSON             string
		acceptedAnswerID     sql.NullString
		isSolved             int
		createdAt, updatedAt int64
	)
	err := row.Scan(&q.ID, &q.Title, &q.Content, &tagsJSON, &q.AuthorID,
		&q.AuthorType, &q.Upvotes, &q.Downvotes, &q.AnswerCount, &q.ViewCount,
		&acceptedAnswerID, &isSolved, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tagsJSON), &q.Tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	q.AcceptedAnswerID = acceptedAnswerID.String
	q.IsSolved = isSolved == 1
	q.CreatedAt = fromUnixNano(createdAt)
	q.UpdatedAt = fromUnixNano(updatedAt)
	return &q, nil
}

// CreateQuestion inserts a new question and bumps the count of every
// tag it references, creating missing tags on the way. Repeated tags in
// the list are counted once per occurrence; the caller dedupes.
func (d *DB) CreateQuestion(in NewQuestion, authorID, authorType string) (*Question, error) {
	now := time.Now()
	tags := in.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("encode tags: %w", err)
	}

	q := &Question{
		ID:         uuid.New().String(),
		Title:      in.Title,
		Content:    in.Content,
		Tags:       tags,
		AuthorID:   authorID,
		AuthorType: authorType,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	_, err = d.db.Exec(
		`INSERT INTO questions (id, title, content, tags, author_id, author_type,
		     upvotes, downvotes, answer_count, view_count, accepted_answer_id, is_solved,
		     created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, 0, 0, 0, 0, NULL, 0, ?, ?)`,
		q.ID, q.Title, q.Content, string(tagsJSON), authorID, authorType,
		unixNano(now), unixNano(now),
	)
	if err != nil {
		return nil, fmt.Errorf("create question: %w", err)
	}

	for _, name := range tags {
		if _, err := d.GetOrCreateTag(name); err != nil {
			return nil, err
		}
		if err := d.IncrementTagCount(name); err != nil {
			return nil, err
		}
	}

	return q, nil
}

// QuestionByID retrieves a question by ID. Returns (nil, nil) on a miss.
func (d *DB) QuestionByID(id string) (*Question, error) {
	q, err := scanQuestion(d.db.QueryRow(
		`SELECT `+questionColumns+` FROM questions WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get question: %w", err)
	}
	return q, nil
}

// Questions returns an ordered, optionally tag-filtered view. Sort is
// one of newest (default), active, or hot.
func (d *DB) Questions(sort string, limit int, tag string) ([]Question, error) {
	if limit <= 0 {
		limit = DefaultQuestionLimit
	}

	query := `SELECT ` + questionColumns + ` FROM questions`
	var args []any
	if tag != "" {
		query += ` WHERE EXISTS (SELECT 1 FROM json_each(questions.tags) WHERE json_each.value = ?)`
		args = append(args, tag)
	}

	switch sort {
	case SortHot:
		query += ` ORDER BY (upvotes - downvotes + answer_count * 2) DESC`
	case SortActive:
		query += ` ORDER BY updated_at DESC`
	default:
		query += ` ORDER BY created_at DESC`
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	return d.questionList(query, args...)
}

func (d *DB) questionList(query string, args ...any) ([]Question, error) {
	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	var questions []Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		questions = append(questions, *q)
	}
	return questions, rows.Err()
}

// IncrementQuestionViews bumps a question's view counter. No-op if the
// question is missing.
func (d *DB) IncrementQuestionViews(id string) error {
	_, err := d.db.Exec(`UPDATE questions SET view_count = view_count + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("increment question views: %w", err)
	}
	return nil
}

// UpdateQuestionVotes applies signed deltas to a question's vote
// counters. No-op if the question is missing.
func (d *DB) UpdateQuestionVotes(id string, upDelta, downDelta int) error {
	_, err := d.db.Exec(
		`UPDATE questions SET upvotes = upvotes + ?, downvotes = downvotes + ? WHERE id = ?`,
		upDelta, downDelta, id,
	)
	if err != nil {
		return fmt.Errorf("update question votes: %w", err)
	}
	return nil
}

// AcceptAnswer marks the question solved with the given answer and
// flags the answer accepted. A previously accepted answer is not
// unset; the caller guards against double accepts.
func (d *DB) AcceptAnswer(questionID, answerID string) error {
	_, err := d.db.Exec(
		`UPDATE questions SET accepted_answer_id = ?, is_solved = 1 WHERE id = ?`,
		answerID, questionID,
	)
	if err != nil {
		return fmt.Errorf("accept answer: %w", err)
	}
	_, err = d.db.Exec(`UPDATE answers SET is_accepted = 1 WHERE id = ?`, answerID)
	if err != nil {
		return fmt.Errorf("accept answer: %w", err)
	}
	return nil
}

// SearchQuestions matches the query as a case-insensitive substring of
// a question's title or content, newest first, capped at
// SearchResultCap results.
func (d *DB) SearchQuestions(query string) ([]Question, error) {
	return d.questionList(
		`SELECT `+questionColumns+` FROM questions
		 WHERE instr(lower(title), lower(?)) > 0 OR instr(lower(content), lower(?)) > 0
		 ORDER BY created_at DESC LIMIT ?`,
		query, query, SearchResultCap,
	)
}

// QuestionsByAuthor returns all of an author's questions, newest first.
func (d *DB) QuestionsByAuthor(authorID, authorType string) ([]Question, error) {
	return d.questionList(
		`SELECT `+questionColumns+` FROM questions
		 WHERE author_id = ? AND author_type = ? ORDER BY created_at DESC`,
		authorID, authorType,
	)
}

// --- Answers ---

const answerColumns = `id, question_id, content, author_id, author_type,
    upvotes, downvotes, is_accepted, created_at, updated_at`

func scanAnswer(row interface{ Scan(...any) error }) (*Answer, error) {
	var (
		a                    Answer
		isAccepted           int
		createdAt, updatedAt int64
	)
	err := row.Scan(&a.ID, &a.QuestionID, &a.Content, &a.AuthorID, &a.AuthorType,
		&a.Upvotes, &a.Downvotes, &isAccepted, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	a.IsAccepted = isAccepted == 1
	a.CreatedAt = fromUnixNano(createdAt)
	a.UpdatedAt = fromUnixNano(updatedAt)
	return &a, nil
}

// CreateAnswer inserts a new answer and, as a side effect, bumps the
// parent question's answer count and updatedAt. The bump silently
// no-ops if the question has vanished; user-facing existence checks
// happen in the caller.
func (d *DB) CreateAnswer(in NewAnswer, authorID, authorType string) (*Answer, error) {
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

	_, err := d.db.Exec(
		`INSERT INTO answers (id, question_id, content, author_id, author_type,
		     upvotes, downvotes, is_accepted, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, 0, 0, 0, ?, ?)`,
		a.ID, a.QuestionID, a.Content, authorID, authorType,
		unixNano(now), unixNano(now),
	)
	if err != nil {
		return nil, fmt.Errorf("create answer: %w", err)
	}

	_, err = d.db.Exec(
		`UPDATE questions SET answer_count = answer_count + 1, updated_at = ? WHERE id = ?`,
		unixNano(now), in.QuestionID,
	)
	if err != nil {
		return nil, fmt.Errorf("bump answer count: %w", err)
	}

	return a, nil
}

// AnswerByID retrieves an answer by ID. Returns (nil, nil) on a miss.
func (d *DB) AnswerByID(id string) (*Answer, error) {
	a, err := scanAnswer(d.db.QueryRow(
		`SELECT `+answerColumns+` FROM answers WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get answer: %w", err)
	}
	return a, nil
}

// AnswersForQuestion returns a question's answers. Sort "new" is
// newest first; the default "top" puts the accepted answer first, then
// net score, then recency.
func (d *DB) AnswersForQuestion(questionID, sort string) ([]Answer, error) {
	order := ` ORDER BY is_accepted DESC, (upvotes - downvotes) DESC, created_at DESC`
	if sort == SortNew {
		order = ` ORDER BY created_at DESC`
	}
	return d.answerList(
		`SELECT `+answerColumns+` FROM answers WHERE question_id = ?`+order,
		questionID,
	)
}

// UpdateAnswerVotes applies signed deltas to an answer's vote counters.
func (d *DB) UpdateAnswerVotes(id string, upDelta, downDelta int) error {
	_, err := d.db.Exec(
		`UPDATE answers SET upvotes = upvotes + ?, downvotes = downvotes + ? WHERE id = ?`,
		upDelta, downDelta, id,
	)
	if err != nil {
		return fmt.Errorf("update answer votes: %w", err)
	}
	return nil
}

// AnswersByAuthor returns all of an author's answers, newest first.
func (d *DB) AnswersByAuthor(authorID, authorType string) ([]Answer, error) {
	return d.answerList(
		`SELECT `+answerColumns+` FROM answers
		 WHERE author_id = ? AND author_type = ? ORDER BY created_at DESC`,
		authorID, authorType,
	)
}

func (d *DB) answerList(query string, args ...any) ([]Answer, error) {
	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	defer rows.Close()

	var answers []Answer
	for rows.Next() {
		a, err := scanAnswer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		answers = append(answers, *a)
	}
	return answers, rows.Err()
}

// --- Comments ---

// CreateComment inserts a comment on a question or answer.
func (d *DB) CreateComment(in NewComment, authorID, authorType string) (*Comment, error) {
	now := time.Now()
	c := &Comment{
		ID:         uuid.New().String(),
		TargetID:   in.TargetID,
		TargetType: in.TargetType,
		Content:    in.Content,
		AuthorID:   authorID,
		AuthorType: authorType,
		CreatedAt:  now,
	}

	_, err := d.db.Exec(
		`INSERT INTO comments (id, target_id, target_type, content, author_id, author_type, upvotes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, 0, ?)`,
		c.ID, c.TargetID, c.TargetType, c.Content, authorID, authorType, unixNano(now),
	)
	if err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	return c, nil
}

// CommentsForTarget returns a target's comments, newest first.
func (d *DB) CommentsForTarget(targetID, targetType string) ([]Comment, error) {
	rows, err := d.db.Query(
		`SELECT id, target_id, target_type, content, author_id, author_type, upvotes, created_at
		 FROM comments WHERE target_id = ? AND target_type = ? ORDER BY created_at DESC`,
		targetID, targetType,
	)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	var comments []Comment
	for rows.Next() {
		var (
			c         Comment
			createdAt int64
		)
		if err := rows.Scan(&c.ID, &c.TargetID, &c.TargetType, &c.Content,
			&c.AuthorID, &c.AuthorType, &c.Upvotes, &createdAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		c.CreatedAt = fromUnixNano(createdAt)
		comments = append(comments, c)
	}
	return comments, rows.Err()
}
