// Package authoring drives the facilitator's generate / reveal /
// confirm-or-regenerate flow for one question set.
package authoring

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/enozdev/storytelling-goesan-sub000/internal/dedup"
	"github.com/enozdev/storytelling-goesan-sub000/internal/model"
)

// Generator produces one question for a topic and difficulty, steering away
// from the texts in avoid. Failures map to model.ErrServiceUnavailable or
// model.ErrMalformedResponse.
type Generator interface {
	Generate(ctx context.Context, topic string, difficulty model.Difficulty, avoid []string) (model.Question, error)
}

// Persister durably stores chosen questions for a facilitator.
type Persister interface {
	PersistQuestion(ctx context.Context, q model.Question, ownerID string) error
	PersistBatch(ctx context.Context, qs []model.Question, ownerID string) error
}

// Config holds per-session parameters.
type Config struct {
	// MaxCount is the target number of questions to author.
	MaxCount int
	// AvoidLimit caps how many recent texts are handed to the generator.
	AvoidLimit int
	// OwnerID identifies the facilitator the saved set belongs to.
	OwnerID string
}

// DefaultAvoidLimit matches the dedup retention window.
const DefaultAvoidLimit = dedup.DefaultWindow

// Session is the per-facilitator authoring state machine. All transitions
// are synchronous with respect to one caller; the session itself holds no
// lock. Callers that multiplex requests onto one session serialize access.
type Session struct {
	id      string
	cfg     Config
	items   []model.AuthoringItem
	history *dedup.History
	gen     Generator
	persist Persister
}

// Snapshot is the read-only session view exposed to the presentation layer.
type Snapshot struct {
	SessionID string                `json:"sessionId"`
	MaxCount  int                   `json:"maxCount"`
	Items     []model.AuthoringItem `json:"items"`
}

// NewSession creates an empty session. history may carry state restored
// from a previous run of the same facilitator.
func NewSession(cfg Config, gen Generator, persist Persister, history *dedup.History) *Session {
	if cfg.AvoidLimit <= 0 {
		cfg.AvoidLimit = DefaultAvoidLimit
	}
	if history == nil {
		history = dedup.NewHistory(0, nil)
	}
	return &Session{
		id:      uuid.NewString(),
		cfg:     cfg,
		history: history,
		gen:     gen,
		persist: persist,
	}
}

// ID returns the session identifier. It rotates on reset.
func (s *Session) ID() string {
	return s.id
}

// Len returns the number of authored items.
func (s *Session) Len() int {
	return len(s.items)
}

// History exposes the session's dedup ledger for read-only checks.
func (s *Session) History() *dedup.History {
	return s.history
}

// Snapshot returns a copy of the current session state.
func (s *Session) Snapshot() Snapshot {
	items := make([]model.AuthoringItem, len(s.items))
	copy(items, s.items)
	return Snapshot{SessionID: s.id, MaxCount: s.cfg.MaxCount, Items: items}
}

// RequestGeneration asks the generator for one question and appends it as a
// new Generated item, returning its index. The avoid-list is fed to the
// generator; if the returned question still collides with the history it is
// accepted anyway and only flagged, trusting the service to honor the
// prompt. The collision stays visible so a stricter reject-and-retry mode
// can be layered on without redesign.
func (s *Session) RequestGeneration(ctx context.Context, topic string, difficulty model.Difficulty) (int, error) {
	if len(s.items) >= s.cfg.MaxCount {
		return 0, model.ErrCapacityExhausted
	}
	if strings.TrimSpace(topic) == "" {
		return 0, model.ErrEmptyTopic
	}
	if !difficulty.Valid() {
		return 0, fmt.Errorf("%w: %q", model.ErrInvalidDifficulty, difficulty)
	}

	q, err := s.gen.Generate(ctx, topic, difficulty, s.history.RecentTexts(s.cfg.AvoidLimit))
	if err != nil {
		return 0, fmt.Errorf("generate question: %w", err)
	}

	dup := s.history.IsDuplicate(q)
	if dup {
		slog.Warn("generator returned a known duplicate", "session_id", s.id, "topic", topic)
	}
	s.history.Record(q)
	s.items = append(s.items, model.AuthoringItem{
		Question:  q,
		State:     model.ItemGenerated,
		Duplicate: dup,
	})
	return len(s.items) - 1, nil
}

// Reveal shows the answer for the item at index. Idempotent once revealed;
// a chosen item stays chosen.
func (s *Session) Reveal(index int) error {
	item, err := s.item(index)
	if err != nil {
		return err
	}
	if item.State == model.ItemGenerated {
		item.State = model.ItemRevealed
	}
	return nil
}

// SubmitAnswer stores the facilitator's practice answer. It does not
// transition state; callers follow up with Reveal.
func (s *Session) SubmitAnswer(index int, answer string) error {
	item, err := s.item(index)
	if err != nil {
		return err
	}
	item.UserAnswer = answer
	return nil
}

// Choose confirms a revealed item and asks the persister to durably save
// it. The in-memory transition is not rolled back on a persist failure:
// best-effort, at-most-once, and the error is surfaced to the caller.
func (s *Session) Choose(ctx context.Context, index int) error {
	item, err := s.item(index)
	if err != nil {
		return err
	}
	switch item.State {
	case model.ItemChosen:
		return nil
	case model.ItemGenerated:
		return model.ErrNotRevealed
	}
	item.State = model.ItemChosen

	if err := s.persist.PersistQuestion(ctx, item.Question, s.cfg.OwnerID); err != nil {
		return fmt.Errorf("persist chosen question: %w", err)
	}
	return nil
}

// Regenerate replaces a revealed item with a freshly generated question for
// the same topic and difficulty. The index keeps its position and the old
// question's fingerprint stays in the history, so the replaced question
// cannot resurface in this session.
func (s *Session) Regenerate(ctx context.Context, index int) error {
	item, err := s.item(index)
	if err != nil {
		return err
	}
	if item.State != model.ItemRevealed {
		return model.ErrNotRevealed
	}

	old := item.Question
	q, err := s.gen.Generate(ctx, old.Topic, old.Difficulty, s.history.RecentTexts(s.cfg.AvoidLimit))
	if err != nil {
		return fmt.Errorf("regenerate question: %w", err)
	}

	dup := s.history.IsDuplicate(q)
	s.history.Record(q)
	s.items[index] = model.AuthoringItem{
		Question:  q,
		State:     model.ItemGenerated,
		Duplicate: dup,
	}
	return nil
}

// Pop removes the last item, reporting whether anything was removed. The
// dedup history keeps the popped question's fingerprint.
func (s *Session) Pop() bool {
	if len(s.items) == 0 {
		return false
	}
	s.items = s.items[:len(s.items)-1]
	return true
}

// Reset discards all items, rotates the session id, and clears the history.
func (s *Session) Reset() {
	s.items = nil
	s.id = uuid.NewString()
	s.history.Clear()
}

// Save persists the complete chosen set as one batch, then resets the
// session. It fails with model.ErrIncompleteSet unless exactly MaxCount
// items exist and every one is chosen. A persist failure leaves the
// in-memory set intact so the facilitator can retry without re-authoring.
func (s *Session) Save(ctx context.Context) error {
	if len(s.items) != s.cfg.MaxCount {
		return model.ErrIncompleteSet
	}
	questions := make([]model.Question, 0, len(s.items))
	for _, item := range s.items {
		if item.State != model.ItemChosen {
			return model.ErrIncompleteSet
		}
		questions = append(questions, item.Question)
	}

	if err := s.persist.PersistBatch(ctx, questions, s.cfg.OwnerID); err != nil {
		return fmt.Errorf("persist question set: %w", err)
	}
	s.Reset()
	return nil
}

func (s *Session) item(index int) (*model.AuthoringItem, error) {
	if index < 0 || index >= len(s.items) {
		return nil, fmt.Errorf("%w: %d of %d", model.ErrInvalidIndex, index, len(s.items))
	}
	return &s.items[index], nil
}
