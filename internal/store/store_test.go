package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/enozdev/storytelling-goesan-sub000/internal/dedup"
	"github.com/enozdev/storytelling-goesan-sub000/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testQuestion(id, text string) model.Question {
	return model.Question{
		ID:         id,
		Topic:      "괴산",
		Difficulty: model.DifficultyEasy,
		Text:       text,
		Options:    []string{"a", "b", "c", "d"},
		Answer:     "a",
	}
}

func TestTeams(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	teams, err := s.ListTeams()
	if err != nil {
		t.Fatalf("ListTeams: %v", err)
	}
	if len(teams) != 0 {
		t.Fatalf("expected empty list, got %d", len(teams))
	}

	for _, team := range []model.Team{
		{ID: "t2", Idx: 2, Name: "나영팀"},
		{ID: "t1", Idx: 1, Name: "가영팀"},
	} {
		if err := s.UpsertTeam(team); err != nil {
			t.Fatalf("UpsertTeam: %v", err)
		}
	}

	teams, err = s.ListTeams()
	if err != nil {
		t.Fatalf("ListTeams: %v", err)
	}
	if len(teams) != 2 || teams[0].ID != "t1" {
		t.Errorf("expected 2 teams ordered by idx, got %v", teams)
	}

	// Rename via upsert.
	if err := s.UpsertTeam(model.Team{ID: "t1", Idx: 1, Name: "새이름"}); err != nil {
		t.Fatalf("UpsertTeam rename: %v", err)
	}

	names, err := s.ResolveTeamNames(ctx, []string{"t1", "t2", "missing"})
	if err != nil {
		t.Fatalf("ResolveTeamNames: %v", err)
	}
	if names["t1"] != "새이름" || names["t2"] != "나영팀" {
		t.Errorf("names = %v", names)
	}
	if _, ok := names["missing"]; ok {
		t.Error("unknown id should be absent from the result")
	}
}

func TestPersistQuestion(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	q := testQuestion("q1", "임꺽정은 누구인가?")
	if err := s.PersistQuestion(ctx, q, "owner-1"); err != nil {
		t.Fatalf("PersistQuestion: %v", err)
	}

	// Persisting the same id again (choose retried) is not an error.
	if err := s.PersistQuestion(ctx, q, "owner-1"); err != nil {
		t.Fatalf("PersistQuestion repeat: %v", err)
	}

	questions, err := s.ListQuestions("owner-1")
	if err != nil {
		t.Fatalf("ListQuestions: %v", err)
	}
	if len(questions) != 1 {
		t.Fatalf("expected 1 question, got %d", len(questions))
	}
	got := questions[0]
	if got.Text != q.Text || got.Answer != q.Answer {
		t.Errorf("round-trip mismatch: %+v", got)
	}
	if len(got.Options) != 4 || got.Options[1] != "b" {
		t.Errorf("options not preserved: %v", got.Options)
	}

	// Other owners see nothing.
	questions, _ = s.ListQuestions("owner-2")
	if len(questions) != 0 {
		t.Errorf("expected no questions for other owner, got %d", len(questions))
	}
}

func TestPersistBatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	batch := []model.Question{
		testQuestion("q1", "first"),
		testQuestion("q2", "second"),
		testQuestion("q3", "third"),
	}
	if err := s.PersistBatch(ctx, batch, "owner-1"); err != nil {
		t.Fatalf("PersistBatch: %v", err)
	}

	count, err := s.QuestionCount()
	if err != nil {
		t.Fatalf("QuestionCount: %v", err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}

	// A batch overlapping an earlier single persist upserts cleanly.
	if err := s.PersistBatch(ctx, batch, "owner-1"); err != nil {
		t.Fatalf("PersistBatch repeat: %v", err)
	}
	count, _ = s.QuestionCount()
	if count != 3 {
		t.Errorf("count after repeat = %d, want 3", count)
	}
}

func TestEventCounts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 5, 2, 10, 0, 0, 0, time.UTC)
	if err := s.RecordScan(ctx, "team-a", "m1", base); err != nil {
		t.Fatalf("RecordScan: %v", err)
	}
	if err := s.RecordScan(ctx, "team-a", "m1", base.Add(time.Minute)); err != nil {
		t.Fatalf("RecordScan repeat: %v", err)
	}
	if err := s.RecordAttempt(ctx, "team-a", "q1", true, base.Add(2*time.Minute)); err != nil {
		t.Fatalf("RecordAttempt: %v", err)
	}
	if err := s.RecordAttempt(ctx, "team-b", "q1", false, base); err != nil {
		t.Fatalf("RecordAttempt: %v", err)
	}

	counts, err := s.CountsByTeam(ctx)
	if err != nil {
		t.Fatalf("CountsByTeam: %v", err)
	}

	a := counts["team-a"]
	if a.Found != 2 || a.Correct != 1 || a.Attempts != 1 {
		t.Errorf("team-a = %+v, want found 2 correct 1 attempts 1", a)
	}
	if !a.LastActivity.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("team-a lastActivity = %v", a.LastActivity)
	}

	b := counts["team-b"]
	if b.Found != 0 || b.Attempts != 1 || b.Correct != 0 {
		t.Errorf("team-b = %+v", b)
	}

	if err := s.RecordScan(ctx, "", "m1", base); !errors.Is(err, model.ErrEmptyTeam) {
		t.Errorf("empty team: got %v, want ErrEmptyTeam", err)
	}
}

func TestDedupStorage(t *testing.T) {
	s := newTestStore(t)
	storage := s.DedupStorage("owner-1")

	// Missing row is an empty ledger.
	entries, err := storage.LoadHistory()
	if err != nil {
		t.Fatalf("LoadHistory: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty history, got %d entries", len(entries))
	}

	want := []dedup.Entry{
		{Text: "첫 질문", Fingerprint: "fp1"},
		{Text: "둘째 질문", Fingerprint: "fp2"},
	}
	if err := storage.SaveHistory(want); err != nil {
		t.Fatalf("SaveHistory: %v", err)
	}

	entries, err = storage.LoadHistory()
	if err != nil {
		t.Fatalf("LoadHistory: %v", err)
	}
	if len(entries) != 2 || entries[1].Fingerprint != "fp2" {
		t.Errorf("entries = %v", entries)
	}

	// Owners are isolated.
	other, err := s.DedupStorage("owner-2").LoadHistory()
	if err != nil {
		t.Fatalf("LoadHistory other owner: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("expected empty history for other owner, got %d", len(other))
	}

	// Overwrite.
	if err := storage.SaveHistory(nil); err != nil {
		t.Fatalf("SaveHistory nil: %v", err)
	}
	entries, _ = storage.LoadHistory()
	if len(entries) != 0 {
		t.Errorf("expected cleared history, got %d entries", len(entries))
	}
}

func TestMetadata(t *testing.T) {
	s := newTestStore(t)

	hash, err := s.GetImportedFileHash("/teams.json")
	if err != nil {
		t.Fatalf("GetImportedFileHash: %v", err)
	}
	if hash != "" {
		t.Errorf("expected empty hash, got %q", hash)
	}

	if err := s.SetImportedFileHash("/teams.json", "abc123"); err != nil {
		t.Fatalf("SetImportedFileHash: %v", err)
	}
	hash, _ = s.GetImportedFileHash("/teams.json")
	if hash != "abc123" {
		t.Errorf("expected 'abc123', got %q", hash)
	}

	if err := s.SetImportedFileHash("/teams.json", "def456"); err != nil {
		t.Fatalf("SetImportedFileHash update: %v", err)
	}
	hash, _ = s.GetImportedFileHash("/teams.json")
	if hash != "def456" {
		t.Errorf("expected 'def456', got %q", hash)
	}
}
