// Package fingerprint canonicalizes questions into comparable strings for
// duplicate detection. The canonical form is stable regardless of how
// whitespace, punctuation, or composed Unicode was typed.
package fingerprint

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/enozdev/storytelling-goesan-sub000/internal/model"
)

// fieldSep joins question fields before canonicalization. It must be
// whitespace so field boundaries survive as single spaces.
const fieldSep = "\n"

// stripMarks decomposes to NFD and drops combining marks, so "café" and
// "café" canonicalize identically.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))

// Fingerprint derives the canonical digest of q from its topic, difficulty,
// text, options (in order), and answer. Pure: same logical content always
// yields the same string, and empty input yields the empty string.
func Fingerprint(q model.Question) string {
	parts := make([]string, 0, len(q.Options)+4)
	parts = append(parts, q.Topic, string(q.Difficulty), q.Text)
	parts = append(parts, q.Options...)
	parts = append(parts, q.Answer)
	return canonicalize(strings.Join(parts, fieldSep))
}

// canonicalize lower-cases, strips diacritics, collapses whitespace runs
// (including NBSP) to single spaces, and removes every rune that is not a
// letter or digit. Hangul syllables count as letters.
func canonicalize(s string) string {
	s = strings.ToLower(s)
	if out, _, err := transform.String(stripMarks, s); err == nil {
		s = out
	}

	var b strings.Builder
	b.Grow(len(s))
	pendingSpace := false
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			pendingSpace = true
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
		}
	}
	return b.String()
}
