package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/enozdev/storytelling-goesan-sub000/internal/dedup"
)

// HistoryStorage adapts one facilitator's dedup_history row to the
// dedup.Storage port.
type HistoryStorage struct {
	store   *Store
	ownerID string
}

// DedupStorage returns the dedup ledger storage for a facilitator.
func (s *Store) DedupStorage(ownerID string) *HistoryStorage {
	return &HistoryStorage{store: s, ownerID: ownerID}
}

// LoadHistory reads the persisted ledger. A missing row is an empty ledger.
func (h *HistoryStorage) LoadHistory() ([]dedup.Entry, error) {
	var raw string
	err := h.store.db.QueryRow(
		`SELECT entries FROM dedup_history WHERE owner_id = ?`, h.ownerID,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load dedup history: %w", err)
	}

	var entries []dedup.Entry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("decode dedup history: %w", err)
	}
	return entries, nil
}

// SaveHistory writes the full ledger for the facilitator.
func (h *HistoryStorage) SaveHistory(entries []dedup.Entry) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode dedup history: %w", err)
	}
	_, err = h.store.db.Exec(
		`INSERT INTO dedup_history (owner_id, entries, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(owner_id) DO UPDATE SET entries = ?, updated_at = ?`,
		h.ownerID, string(raw), time.Now(), string(raw), time.Now(),
	)
	if err != nil {
		return fmt.Errorf("save dedup history: %w", err)
	}
	return nil
}
