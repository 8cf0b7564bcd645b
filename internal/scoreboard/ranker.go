package scoreboard

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/enozdev/storytelling-goesan-sub000/internal/model"
)

// Score points per event type.
const (
	pointsPerCorrect = 100
	pointsPerFound   = 10
)

// Score derives the leaderboard metric from raw counts.
func Score(c model.TeamCounts) int {
	return c.Correct*pointsPerCorrect + c.Found*pointsPerFound
}

// Rank converts per-team counts into a totally ordered leaderboard:
// score desc, then correct desc, then found desc, then team name ascending
// under Korean collation. Teams absent from names fall back to their id.
// Teams with zero events never appear (CountsByTeam already omits them).
func Rank(counts map[string]model.TeamCounts, names map[string]string) []model.LeaderboardRow {
	rows := make([]model.LeaderboardRow, 0, len(counts))
	for teamID, c := range counts {
		if c.Found == 0 && c.Attempts == 0 {
			continue
		}
		name := names[teamID]
		if name == "" {
			name = teamID
		}
		rows = append(rows, model.LeaderboardRow{
			TeamID:       teamID,
			TeamName:     name,
			Found:        c.Found,
			Correct:      c.Correct,
			Attempts:     c.Attempts,
			Score:        Score(c),
			LastActivity: c.LastActivity,
		})
	}

	// Collators are stateful, so build one per call instead of sharing.
	col := collate.New(language.Korean)
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Correct != b.Correct {
			return a.Correct > b.Correct
		}
		if a.Found != b.Found {
			return a.Found > b.Found
		}
		return col.CompareString(a.TeamName, b.TeamName) < 0
	})
	return rows
}
