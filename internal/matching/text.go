// Package matching extracts pairwise similarity features from two markets,
// detects subject conflicts between them, and scores how likely they are to
// describe the same event.
package matching

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

var (
	nonWordRe    = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// stopWords are dropped before keyword comparison.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"of": true, "in": true, "to": true, "for": true, "is": true,
	"on": true, "at": true, "by": true, "be": true, "it": true,
	"will": true, "vs": true, "with": true, "this": true, "that": true,
	"who": true, "what": true, "which": true, "from": true, "are": true,
	"was": true, "were": true, "has": true, "have": true, "than": true,
	"before": true, "after": true, "market": true, "resolve": true,
	"resolves": true, "yes": true, "no": true, "if": true, "as": true,
}

// Normalize lowercases s, replaces punctuation with spaces and collapses
// whitespace.
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = nonWordRe.ReplaceAllString(s, " ")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Words returns the normalized whitespace-separated words of s.
func Words(s string) []string {
	n := Normalize(s)
	if n == "" {
		return nil
	}
	return strings.Fields(n)
}

// Keywords returns the set of normalized words of s that are at least three
// characters long and not stop words.
func Keywords(s string) map[string]bool {
	out := make(map[string]bool)
	for _, w := range Words(s) {
		if len(w) < 3 || stopWords[w] {
			continue
		}
		out[w] = true
	}
	return out
}

// Tokens returns the set of normalized words of s that are at least three
// characters long. Stop words are kept.
func Tokens(s string) map[string]bool {
	out := make(map[string]bool)
	for _, w := range Words(s) {
		if utf8.RuneCountInString(w) >= 3 {
			out[w] = true
		}
	}
	return out
}

// WordSet returns the set of normalized words of s.
func WordSet(s string) map[string]bool {
	out := make(map[string]bool)
	for _, w := range Words(s) {
		out[w] = true
	}
	return out
}

// Jaccard returns |a∩b| / |a∪b|, or 0 when both sets are empty.
func Jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := intersectCount(a, b)
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// OverlapOfLarger returns |a∩b| / max(|a|,|b|).
func OverlapOfLarger(a, b map[string]bool) float64 {
	larger := max(len(a), len(b))
	if larger == 0 {
		return 0
	}
	return float64(intersectCount(a, b)) / float64(larger)
}

// OverlapOfSmaller returns |a∩b| / min(|a|,|b|).
func OverlapOfSmaller(a, b map[string]bool) float64 {
	smaller := min(len(a), len(b))
	if smaller == 0 {
		return 0
	}
	return float64(intersectCount(a, b)) / float64(smaller)
}

func intersectCount(a, b map[string]bool) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	n := 0
	for k := range a {
		if b[k] {
			n++
		}
	}
	return n
}

// LevenshteinSimilarity returns 1 - distance/maxLen over runes of the two
// strings, in [0,1]. Two empty strings are identical.
func LevenshteinSimilarity(a, b string) float64 {
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}

// containsWord reports whether phrase occurs in normalized text on word
// boundaries. Both arguments must already be normalized.
func containsWord(text, phrase string) bool {
	if phrase == "" {
		return false
	}
	idx := 0
	for {
		i := strings.Index(text[idx:], phrase)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(phrase)
		leftOK := start == 0 || text[start-1] == ' '
		rightOK := end == len(text) || text[end] == ' '
		if leftOK && rightOK {
			return true
		}
		idx = start + 1
		if idx >= len(text) {
			return false
		}
	}
}

// ContainsAny reports whether any of the phrases occurs in s on word
// boundaries.
func ContainsAny(s string, phrases ...string) bool {
	n := Normalize(s)
	for _, p := range phrases {
		if containsWord(n, Normalize(p)) {
			return true
		}
	}
	return false
}

func isUpperStart(w string) bool {
	for _, r := range w {
		return unicode.IsUpper(r)
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
