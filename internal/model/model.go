package model

import "time"

// Difficulty represents question difficulty level.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Valid reports whether d is one of the known difficulty levels.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// OptionCount is the number of options every generated question carries.
const OptionCount = 4

// Question is one generated multiple-choice question. Immutable once created.
type Question struct {
	ID         string     `json:"id"`
	Topic      string     `json:"topic"`
	Difficulty Difficulty `json:"difficulty"`
	Text       string     `json:"text"`
	Options    []string   `json:"options"`
	Answer     string     `json:"answer"`
}

// ItemState represents the authoring state of one generated question.
type ItemState string

const (
	ItemGenerated ItemState = "generated"
	ItemRevealed  ItemState = "revealed"
	ItemChosen    ItemState = "chosen"
)

// AuthoringItem wraps one Question plus its authoring-time state.
type AuthoringItem struct {
	Question   Question  `json:"question"`
	State      ItemState `json:"state"`
	UserAnswer string    `json:"userAnswer,omitempty"`
	// Duplicate marks an accepted question whose fingerprint collided with
	// the session history at generation time. Informational only: the item
	// is kept, per the trust-the-avoid-list policy.
	Duplicate bool `json:"duplicate,omitempty"`
}

// Team is an external identity referenced by id; the service only resolves
// names for display.
type Team struct {
	ID   string `json:"id"`
	Idx  int    `json:"idx"`
	Name string `json:"name"`
}

// ScanEvent records one physical-marker discovery by a team.
// Repeat scans of the same marker are separate events.
type ScanEvent struct {
	TeamID   string    `json:"teamId"`
	MarkerID string    `json:"markerId"`
	At       time.Time `json:"at"`
}

// AttemptEvent records one answer submission by a team.
type AttemptEvent struct {
	TeamID     string    `json:"teamId"`
	QuestionID string    `json:"questionId"`
	Correct    bool      `json:"correct"`
	At         time.Time `json:"at"`
}

// TeamCounts accumulates a team's raw event counts.
type TeamCounts struct {
	Found        int       `json:"found"`
	Correct      int       `json:"correct"`
	Attempts     int       `json:"attempts"`
	LastActivity time.Time `json:"lastActivity"`
}

// LeaderboardRow is a derived ranking entry, recomputed on every request.
type LeaderboardRow struct {
	TeamID       string    `json:"teamId"`
	TeamName     string    `json:"teamName"`
	Found        int       `json:"found"`
	Correct      int       `json:"correct"`
	Attempts     int       `json:"attempts"`
	Score        int       `json:"score"`
	LastActivity time.Time `json:"lastActivity"`
}
