package game

import (
	"strings"
	"unicode/utf8"
)

// Reason explains why a word was not accepted.
type Reason string

const (
	ReasonEmpty          Reason = "empty"
	ReasonTooShort       Reason = "tooShort"
	ReasonMissingLetters Reason = "missingLetters"
	ReasonNotAWord       Reason = "notAWord"
	ReasonTimeout        Reason = "timeout"
	ReasonSkipped        Reason = "skipped"
)

type Verdict struct {
	OK     bool
	Reason Reason
}

// NormalizeWord trims surrounding whitespace and lowercases the word.
func NormalizeWord(word string) string {
	return strings.ToLower(strings.TrimSpace(word))
}

// CheckWord reports whether word satisfies the letter constraint. Letter
// matching is case-insensitive and each letter may appear anywhere.
func CheckWord(word string, letters LetterPair, minLength int) Verdict {
	w := NormalizeWord(word)
	if w == "" {
		return Verdict{Reason: ReasonEmpty}
	}
	if utf8.RuneCountInString(w) < minLength {
		return Verdict{Reason: ReasonTooShort}
	}
	for _, l := range letters {
		if !strings.Contains(w, strings.ToLower(l)) {
			return Verdict{Reason: ReasonMissingLetters}
		}
	}
	return Verdict{OK: true}
}

// inputError reports whether the verdict is a malformed submission that must
// not cost a life.
func (v Verdict) inputError() bool {
	return v.Reason == ReasonEmpty || v.Reason == ReasonTooShort
}
