// Package karma implements the vote ledger: toggling a voter's stance
// on a target while keeping the vote record, the target's counters,
// and the author's karma consistent.
package karma

import (
	"errors"
	"fmt"
	"sync"

	"github.com/stack-overclaw/overclaw/internal/storage"
)

// ErrTargetNotFound is returned when the vote target does not exist.
var ErrTargetNotFound = errors.New("vote target not found")

// Engine serializes vote sequences per target. The storage operations
// themselves are atomic; the per-target lock keeps the multi-step
// read-modify-write sequence from interleaving with itself.
type Engine struct {
	store storage.Store

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New returns an Engine over the given store.
func New(store storage.Store) *Engine {
	return &Engine{
		store: store,
		locks: make(map[string]*sync.Mutex),
	}
}

func (e *Engine) targetLock(targetID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[targetID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[targetID] = l
	}
	return l
}

// Vote casts or replaces the voter's vote on a question or answer.
//
// Any existing vote by the same voter is reversed first (counter and
// karma effects undone, record deleted), then the requested vote is
// applied unconditionally. Re-voting with the same type is therefore a
// no-op in net effect, not a toggle-off.
func (e *Engine) Vote(targetType, targetID, voterID, voterType, voteType string) error {
	if voteType != storage.VoteUp && voteType != storage.VoteDown {
		return fmt.Errorf("vote: invalid vote type %q", voteType)
	}

	l := e.targetLock(targetID)
	l.Lock()
	defer l.Unlock()

	var (
		authorID    string
		authorType  string
		updateVotes func(id string, upDelta, downDelta int) error
	)
	switch targetType {
	case storage.TargetQuestion:
		q, err := e.store.QuestionByID(targetID)
		if err != nil {
			return err
		}
		if q == nil {
			return ErrTargetNotFound
		}
		authorID, authorType = q.AuthorID, q.AuthorType
		updateVotes = e.store.UpdateQuestionVotes
	case storage.TargetAnswer:
		a, err := e.store.AnswerByID(targetID)
		if err != nil {
			return err
		}
		if a == nil {
			return ErrTargetNotFound
		}
		authorID, authorType = a.AuthorID, a.AuthorType
		updateVotes = e.store.UpdateAnswerVotes
	default:
		return fmt.Errorf("vote: unsupported target type %q", targetType)
	}

	existing, err := e.store.VoteFor(targetID, voterID)
	if err != nil {
		return err
	}
	if existing != nil {
		upDelta, downDelta := voteDeltas(existing.VoteType, -1)
		if err := updateVotes(targetID, upDelta, downDelta); err != nil {
			return err
		}
		if err := e.store.DeleteVote(existing.ID); err != nil {
			return err
		}
		if err := e.adjustKarma(authorID, authorType, -karmaDelta(existing.VoteType)); err != nil {
			return err
		}
	}

	if _, err := e.store.CreateVote(targetID, targetType, voterID, voterType, voteType); err != nil {
		return err
	}
	upDelta, downDelta := voteDeltas(voteType, 1)
	if err := updateVotes(targetID, upDelta, downDelta); err != nil {
		return err
	}
	return e.adjustKarma(authorID, authorType, karmaDelta(voteType))
}

// voteDeltas maps a vote type to (upDelta, downDelta) with the given
// sign.
func voteDeltas(voteType string, sign int) (int, int) {
	if voteType == storage.VoteUp {
		return sign, 0
	}
	return 0, sign
}

// karmaDelta is the karma effect of applying a vote: up is +1, down
// is -1.
func karmaDelta(voteType string) int {
	if voteType == storage.VoteUp {
		return 1
	}
	return -1
}

func (e *Engine) adjustKarma(authorID, authorType string, delta int) error {
	if authorType == storage.AuthorAgent {
		return e.store.UpdateAgentKarma(authorID, delta)
	}
	return e.store.UpdateUserKarma(authorID, delta)
}
