package comic

import (
	"strings"
	"unicode"
)

// matchRank is the precedence tier a title falls into when matched against
// a search query. Higher is better; rankNone excludes the record.
type matchRank int

const (
	rankNone matchRank = iota
	rankAcronym
	rankContains
	rankWordPrefix
	rankPrefix
	rankEqual
)

// rankMatch scores title against query, case-insensitively. Precedence:
// exact equality, then prefix, then prefix at a word boundary, then
// substring, then acronym (first letters of words).
func rankMatch(title, query string) matchRank {
	t := strings.ToLower(title)
	q := strings.ToLower(query)

	if t == q {
		return rankEqual
	}
	if strings.HasPrefix(t, q) {
		return rankPrefix
	}
	if matchesWordPrefix(t, q) {
		return rankWordPrefix
	}
	if strings.Contains(t, q) {
		return rankContains
	}
	if strings.Contains(acronym(t), q) {
		return rankAcronym
	}
	return rankNone
}

// matchesWordPrefix reports whether q matches t starting at some word
// boundary past the first character.
func matchesWordPrefix(t, q string) bool {
	prevBoundary := false
	for i, r := range t {
		if prevBoundary && i > 0 && strings.HasPrefix(t[i:], q) {
			return true
		}
		prevBoundary = !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}
	return false
}

// acronym joins the first letter of every word in t.
func acronym(t string) string {
	var b strings.Builder
	prevBoundary := true
	for _, r := range t {
		isWord := unicode.IsLetter(r) || unicode.IsDigit(r)
		if isWord && prevBoundary {
			b.WriteRune(r)
		}
		prevBoundary = !isWord
	}
	return b.String()
}
