// Package dedup keeps the session-scoped ledger of question fingerprints
// used to steer the generation service away from repeats.
package dedup

import (
	"log/slog"

	"github.com/enozdev/storytelling-goesan-sub000/internal/fingerprint"
	"github.com/enozdev/storytelling-goesan-sub000/internal/model"
)

// DefaultWindow bounds the ledger to the most recent entries. Eviction is a
// memory/prompt-size bound, not a correctness mechanism: a duplicate of an
// evicted entry is no longer detectable.
const DefaultWindow = 50

// Entry pairs a raw question text with its fingerprint.
type Entry struct {
	Text        string `json:"text"`
	Fingerprint string `json:"fingerprint"`
}

// Storage persists the ledger across restarts. Absence or corruption of
// stored state maps to an empty ledger, never an error.
type Storage interface {
	LoadHistory() ([]Entry, error)
	SaveHistory(entries []Entry) error
}

// History is the bounded, append-only fingerprint ledger. Not safe for
// concurrent use; it belongs to exactly one authoring session.
type History struct {
	window  int
	entries []Entry
	storage Storage
}

// NewHistory creates a ledger with the given retention window (DefaultWindow
// when w <= 0), restoring any state the storage holds. A nil storage keeps
// the ledger purely in memory.
func NewHistory(w int, storage Storage) *History {
	if w <= 0 {
		w = DefaultWindow
	}
	h := &History{window: w, storage: storage}
	if storage == nil {
		return h
	}
	entries, err := storage.LoadHistory()
	if err != nil {
		slog.Warn("dedup history unreadable, starting empty", "error", err)
		return h
	}
	h.entries = entries
	h.truncate()
	return h
}

// IsDuplicate reports whether q's fingerprint is currently retained.
func (h *History) IsDuplicate(q model.Question) bool {
	fp := fingerprint.Fingerprint(q)
	for _, e := range h.entries {
		if e.Fingerprint == fp {
			return true
		}
	}
	return false
}

// Record appends q's text and fingerprint, evicting the oldest entries once
// the window is exceeded.
func (h *History) Record(q model.Question) {
	h.entries = append(h.entries, Entry{Text: q.Text, Fingerprint: fingerprint.Fingerprint(q)})
	h.truncate()
	h.persist()
}

// RecentTexts returns up to limit of the most recent raw question texts,
// most-recent-last, for use as a generation avoid-list.
func (h *History) RecentTexts(limit int) []string {
	if limit <= 0 || limit > len(h.entries) {
		limit = len(h.entries)
	}
	texts := make([]string, 0, limit)
	for _, e := range h.entries[len(h.entries)-limit:] {
		texts = append(texts, e.Text)
	}
	return texts
}

// Len returns the number of retained entries.
func (h *History) Len() int {
	return len(h.entries)
}

// Clear empties the ledger.
func (h *History) Clear() {
	h.entries = nil
	h.persist()
}

func (h *History) truncate() {
	if len(h.entries) > h.window {
		h.entries = append([]Entry(nil), h.entries[len(h.entries)-h.window:]...)
	}
}

func (h *History) persist() {
	if h.storage == nil {
		return
	}
	if err := h.storage.SaveHistory(h.entries); err != nil {
		slog.Warn("persist dedup history", "error", err)
	}
}
