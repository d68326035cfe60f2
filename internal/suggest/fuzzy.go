package suggest

import (
	"strings"
	"unicode"
)

// fuzzyScore matches query against target as an in-order subsequence,
// ignoring case. Higher scores are better.
//
// Each matched rune scores 1, plus 5 when it follows the previous match,
// 10 at the start of target, 7 on a word boundary and 2 on an exact case
// match. Longer targets lose len/4.
func fuzzyScore(query, target string) (int, bool) {
	if query == "" {
		return 0, true
	}
	queryOrig := []rune(query)
	targetOrig := []rune(target)
	queryRunes := []rune(strings.ToLower(query))
	targetRunes := []rune(strings.ToLower(target))
	if len(queryRunes) > len(targetRunes) {
		return 0, false
	}

	score := 0
	queryPos := 0
	lastMatch := -1
	for pos := 0; pos < len(targetRunes) && queryPos < len(queryRunes); pos++ {
		if targetRunes[pos] != queryRunes[queryPos] {
			continue
		}
		match := 1
		if lastMatch == pos-1 {
			match += 5
		}
		if pos == 0 {
			match += 10
		}
		if wordBoundary(targetOrig, pos) {
			match += 7
		}
		if pos < len(targetOrig) && queryPos < len(queryOrig) && targetOrig[pos] == queryOrig[queryPos] {
			match += 2
		}
		score += match
		lastMatch = pos
		queryPos++
	}
	if queryPos != len(queryRunes) {
		return 0, false
	}
	return score - len(targetRunes)/4, true
}

// wordBoundary checks the original-case runes so camelCase humps count.
func wordBoundary(runes []rune, pos int) bool {
	if pos == 0 {
		return true
	}
	if pos >= len(runes) {
		return false
	}
	prev := runes[pos-1]
	switch prev {
	case ' ', '/', '-', '_', '.':
		return true
	}
	return unicode.IsLower(prev) && unicode.IsUpper(runes[pos])
}
