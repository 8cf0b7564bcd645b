package fingerprint

import (
	"testing"

	"github.com/enozdev/storytelling-goesan-sub000/internal/model"
)

func sampleQuestion() model.Question {
	return model.Question{
		Topic:      "괴산 임꺽정",
		Difficulty: model.DifficultyEasy,
		Text:       "임꺽정이 활동한 시대는 언제인가요?",
		Options:    []string{"고려 시대", "조선 시대", "삼국 시대", "통일 신라"},
		Answer:     "조선 시대",
	}
}

func TestFingerprintStableAcrossFormatting(t *testing.T) {
	base := sampleQuestion()

	tests := []struct {
		name   string
		mutate func(q *model.Question)
	}{
		{"identical", func(q *model.Question) {}},
		{"extra whitespace", func(q *model.Question) {
			q.Text = "  임꺽정이   활동한\t시대는\n언제인가요?  "
		}},
		{"non-breaking space", func(q *model.Question) {
			q.Text = "임꺽정이 활동한 시대는 언제인가요?"
		}},
		{"punctuation", func(q *model.Question) {
			q.Text = "임꺽정이 활동한 시대는, 언제인가요?!"
		}},
		{"case", func(q *model.Question) {
			q.Topic = "괴산 임꺽정"
			q.Text = "임꺽정이 활동한 시대는 언제인가요?"
		}},
	}

	want := Fingerprint(base)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := sampleQuestion()
			tt.mutate(&q)
			if got := Fingerprint(q); got != want {
				t.Errorf("Fingerprint() = %q, want %q", got, want)
			}
		})
	}
}

func TestFingerprintLatinCaseAndDiacritics(t *testing.T) {
	q1 := model.Question{
		Topic:      "History",
		Difficulty: model.DifficultyMedium,
		Text:       "Who founded the café?",
		Options:    []string{"A", "B", "C", "D"},
		Answer:     "B",
	}
	q2 := q1
	q2.Text = "WHO FOUNDED THE CAFÉ?"

	if Fingerprint(q1) != Fingerprint(q2) {
		t.Errorf("case/diacritic variants should share a fingerprint:\n%q\n%q",
			Fingerprint(q1), Fingerprint(q2))
	}
}

func TestFingerprintDistinguishesContent(t *testing.T) {
	base := sampleQuestion()

	swappedAnswer := base
	swappedAnswer.Answer = base.Options[0]
	if Fingerprint(base) == Fingerprint(swappedAnswer) {
		t.Error("different answers should yield different fingerprints")
	}

	otherTopic := base
	otherTopic.Topic = "괴산 산막이옛길"
	if Fingerprint(base) == Fingerprint(otherTopic) {
		t.Error("different topics should yield different fingerprints")
	}

	otherDifficulty := base
	otherDifficulty.Difficulty = model.DifficultyHard
	if Fingerprint(base) == Fingerprint(otherDifficulty) {
		t.Error("different difficulties should yield different fingerprints")
	}

	reordered := base
	reordered.Options = []string{base.Options[1], base.Options[0], base.Options[2], base.Options[3]}
	if Fingerprint(base) == Fingerprint(reordered) {
		t.Error("option order is significant")
	}
}

func TestFingerprintEmptyQuestion(t *testing.T) {
	if got := Fingerprint(model.Question{}); got != "" {
		t.Errorf("Fingerprint(zero) = %q, want empty string", got)
	}
}

func TestFingerprintFieldBoundaries(t *testing.T) {
	q1 := model.Question{Topic: "ab", Text: "c"}
	q2 := model.Question{Topic: "a", Text: "bc"}
	if Fingerprint(q1) == Fingerprint(q2) {
		t.Error("field boundaries must survive canonicalization")
	}
}
