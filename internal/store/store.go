package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/enozdev/storytelling-goesan-sub000/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS teams (
		id TEXT PRIMARY KEY,
		idx INTEGER NOT NULL DEFAULT 0,
		name TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS questions (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		topic TEXT NOT NULL,
		difficulty TEXT NOT NULL,
		text TEXT NOT NULL,
		options TEXT NOT NULL,
		answer TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS scan_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		team_id TEXT NOT NULL,
		marker_id TEXT NOT NULL,
		at_unix INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_scan_events_team ON scan_events(team_id);

	CREATE TABLE IF NOT EXISTS attempt_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		team_id TEXT NOT NULL,
		question_id TEXT NOT NULL,
		correct INTEGER NOT NULL,
		at_unix INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_attempt_events_team ON attempt_events(team_id);

	CREATE TABLE IF NOT EXISTS dedup_history (
		owner_id TEXT PRIMARY KEY,
		entries TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// UpsertTeam creates or renames a team.
func (s *Store) UpsertTeam(team model.Team) error {
	_, err := s.db.Exec(
		`INSERT INTO teams (id, idx, name) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET idx = ?, name = ?`,
		team.ID, team.Idx, team.Name, team.Idx, team.Name,
	)
	return err
}

// ListTeams returns all teams ordered by idx.
func (s *Store) ListTeams() ([]model.Team, error) {
	rows, err := s.db.Query(`SELECT id, idx, name FROM teams ORDER BY idx, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var teams []model.Team
	for rows.Next() {
		var t model.Team
		if err := rows.Scan(&t.ID, &t.Idx, &t.Name); err != nil {
			return nil, err
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

// ResolveTeamNames maps the given team ids to display names. Unknown ids
// are simply absent from the result.
func (s *Store) ResolveTeamNames(ctx context.Context, teamIDs []string) (map[string]string, error) {
	names := make(map[string]string, len(teamIDs))
	for _, id := range teamIDs {
		var name string
		err := s.db.QueryRowContext(ctx, `SELECT name FROM teams WHERE id = ?`, id).Scan(&name)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("resolve team %s: %w", id, err)
		}
		names[id] = name
	}
	return names, nil
}

// PersistQuestion durably stores one chosen question for a facilitator.
// Saving the same question again overwrites the earlier copy.
func (s *Store) PersistQuestion(ctx context.Context, q model.Question, ownerID string) error {
	options, err := json.Marshal(q.Options)
	if err != nil {
		return fmt.Errorf("encode options: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO questions (id, owner_id, topic, difficulty, text, options, answer, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET owner_id = ?, topic = ?, difficulty = ?, text = ?, options = ?, answer = ?`,
		q.ID, ownerID, q.Topic, q.Difficulty, q.Text, string(options), q.Answer, time.Now(),
		ownerID, q.Topic, q.Difficulty, q.Text, string(options), q.Answer,
	)
	if err != nil {
		return fmt.Errorf("insert question: %w", err)
	}
	return nil
}

// PersistBatch stores a complete question set in one transaction.
func (s *Store) PersistBatch(ctx context.Context, qs []model.Question, ownerID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	for _, q := range qs {
		options, err := json.Marshal(q.Options)
		if err != nil {
			return fmt.Errorf("encode options: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO questions (id, owner_id, topic, difficulty, text, options, answer, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET owner_id = ?, topic = ?, difficulty = ?, text = ?, options = ?, answer = ?`,
			q.ID, ownerID, q.Topic, q.Difficulty, q.Text, string(options), q.Answer, now,
			ownerID, q.Topic, q.Difficulty, q.Text, string(options), q.Answer,
		)
		if err != nil {
			return fmt.Errorf("insert question %s: %w", q.ID, err)
		}
	}
	return tx.Commit()
}

// ListQuestions returns all saved questions for a facilitator, oldest first.
func (s *Store) ListQuestions(ownerID string) ([]model.Question, error) {
	rows, err := s.db.Query(
		`SELECT id, topic, difficulty, text, options, answer FROM questions
		 WHERE owner_id = ? ORDER BY created_at, id`, ownerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var questions []model.Question
	for rows.Next() {
		var q model.Question
		var options string
		if err := rows.Scan(&q.ID, &q.Topic, &q.Difficulty, &q.Text, &options, &q.Answer); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(options), &q.Options); err != nil {
			return nil, fmt.Errorf("decode options for %s: %w", q.ID, err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// QuestionCount returns the number of saved questions.
func (s *Store) QuestionCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM questions`).Scan(&count)
	return count, err
}

// RecordScan appends one marker discovery. Repeat scans are kept as
// separate rows.
func (s *Store) RecordScan(ctx context.Context, teamID, markerID string, at time.Time) error {
	if teamID == "" {
		return model.ErrEmptyTeam
	}
	if at.IsZero() {
		at = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scan_events (team_id, marker_id, at_unix) VALUES (?, ?, ?)`,
		teamID, markerID, at.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert scan event: %w", err)
	}
	return nil
}

// RecordAttempt appends one answer submission.
func (s *Store) RecordAttempt(ctx context.Context, teamID, questionID string, correct bool, at time.Time) error {
	if teamID == "" {
		return model.ErrEmptyTeam
	}
	if at.IsZero() {
		at = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO attempt_events (team_id, question_id, correct, at_unix) VALUES (?, ?, ?, ?)`,
		teamID, questionID, correct, at.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert attempt event: %w", err)
	}
	return nil
}

// CountsByTeam groups all recorded events by team.
func (s *Store) CountsByTeam(ctx context.Context) (map[string]model.TeamCounts, error) {
	counts := make(map[string]model.TeamCounts)

	rows, err := s.db.QueryContext(ctx,
		`SELECT team_id, COUNT(*), MAX(at_unix) FROM scan_events GROUP BY team_id`)
	if err != nil {
		return nil, fmt.Errorf("count scans: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var teamID string
		var found int
		var lastNanos int64
		if err := rows.Scan(&teamID, &found, &lastNanos); err != nil {
			return nil, err
		}
		counts[teamID] = model.TeamCounts{Found: found, LastActivity: time.Unix(0, lastNanos)}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	attemptRows, err := s.db.QueryContext(ctx,
		`SELECT team_id, COUNT(*), SUM(correct), MAX(at_unix) FROM attempt_events GROUP BY team_id`)
	if err != nil {
		return nil, fmt.Errorf("count attempts: %w", err)
	}
	defer attemptRows.Close()
	for attemptRows.Next() {
		var teamID string
		var attempts, correct int
		var lastNanos int64
		if err := attemptRows.Scan(&teamID, &attempts, &correct, &lastNanos); err != nil {
			return nil, err
		}
		c := counts[teamID]
		c.Attempts = attempts
		c.Correct = correct
		if last := time.Unix(0, lastNanos); last.After(c.LastActivity) {
			c.LastActivity = last
		}
		counts[teamID] = c
	}
	return counts, attemptRows.Err()
}
