// Package scoreboard accumulates team scan/attempt events and derives the
// ranked leaderboard from them.
package scoreboard

import (
	"context"
	"sync"
	"time"

	"github.com/enozdev/storytelling-goesan-sub000/internal/model"
)

// Recorder ingests raw team events and exposes per-team counts. Implementations
// must be safe for concurrent appenders; reads may reflect a slightly stale
// snapshot.
type Recorder interface {
	RecordScan(ctx context.Context, teamID, markerID string, at time.Time) error
	RecordAttempt(ctx context.Context, teamID, questionID string, correct bool, at time.Time) error
	CountsByTeam(ctx context.Context) (map[string]model.TeamCounts, error)
}

// Aggregator is the in-memory Recorder. Events are append-only; repeat scans
// of the same marker by the same team are counted, not collapsed.
type Aggregator struct {
	mu       sync.Mutex
	scans    []model.ScanEvent
	attempts []model.AttemptEvent
}

// NewAggregator creates an empty in-memory aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// RecordScan appends one marker discovery for a team.
func (a *Aggregator) RecordScan(_ context.Context, teamID, markerID string, at time.Time) error {
	if teamID == "" {
		return model.ErrEmptyTeam
	}
	if at.IsZero() {
		at = time.Now()
	}
	a.mu.Lock()
	a.scans = append(a.scans, model.ScanEvent{TeamID: teamID, MarkerID: markerID, At: at})
	a.mu.Unlock()
	return nil
}

// RecordAttempt appends one answer submission for a team.
func (a *Aggregator) RecordAttempt(_ context.Context, teamID, questionID string, correct bool, at time.Time) error {
	if teamID == "" {
		return model.ErrEmptyTeam
	}
	if at.IsZero() {
		at = time.Now()
	}
	a.mu.Lock()
	a.attempts = append(a.attempts, model.AttemptEvent{TeamID: teamID, QuestionID: questionID, Correct: correct, At: at})
	a.mu.Unlock()
	return nil
}

// CountsByTeam groups all recorded events by team. Computed fresh on every
// call; teams without events do not appear.
func (a *Aggregator) CountsByTeam(_ context.Context) (map[string]model.TeamCounts, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	counts := make(map[string]model.TeamCounts)
	for _, ev := range a.scans {
		c := counts[ev.TeamID]
		c.Found++
		if ev.At.After(c.LastActivity) {
			c.LastActivity = ev.At
		}
		counts[ev.TeamID] = c
	}
	for _, ev := range a.attempts {
		c := counts[ev.TeamID]
		c.Attempts++
		if ev.Correct {
			c.Correct++
		}
		if ev.At.After(c.LastActivity) {
			c.LastActivity = ev.At
		}
		counts[ev.TeamID] = c
	}
	return counts, nil
}
