// Package resolution compares how two markets will be settled and flags
// pairs whose resolution rules could diverge.
package resolution

import (
	"regexp"
	"strings"

	"github.com/alanyoungcy/arbscanner/internal/domain"
	"github.com/alanyoungcy/arbscanner/internal/matching"
)

// Criteria are the resolution terms extracted from a market's rules.
type Criteria struct {
	Sources     []string `json:"sources"`
	Timing      string   `json:"timing,omitempty"`
	Conditions  []string `json:"conditions,omitempty"`
	Strict      bool     `json:"strict"`
	RulesLength int      `json:"rules_length"`
}

var (
	timingRe = regexp.MustCompile(`(?i)\b(?:by|before|on or before|on|prior to|no later than|until|after|at|as of)\s+` +
		`((?:january|february|march|april|may|june|july|august|september|october|november|december)\s+\d{1,2}(?:st|nd|rd|th)?(?:,?\s*\d{4})?` +
		`|\d{4}-\d{2}-\d{2}` +
		`|\d{1,2}/\d{1,2}/\d{2,4}` +
		`|(?:the\s+)?end\s+of\s+(?:\d{4}|the\s+year|[a-z]+\s+\d{4})` +
		`|\d{1,2}:\d{2}\s*(?:am|pm)?\s*(?:et|est|edt|utc|pt)?)`)
	sentenceSplitRe = regexp.MustCompile(`[.;\n]+`)
	conditionRe     = regexp.MustCompile(`(?i)\b(if|resolves? (?:to )?(?:yes|no)|will resolve|in the event|otherwise|unless|provided that)\b`)
)

var (
	strictMarkers = []string{
		"exactly", "only if", "must", "solely", "strictly", "officially certified",
		"final", "certified", "no other",
	}
	flexibleMarkers = []string{
		"or", "any", "credible reporting", "consensus", "at the discretion",
		"may", "reasonable", "including but not limited",
	}
)

// ExtractCriteria parses a market's rules text, falling back to its
// description.
func ExtractCriteria(m domain.Market) Criteria {
	rules := strings.TrimSpace(m.RulesText())
	c := Criteria{
		Sources:     matching.Sources(rules),
		RulesLength: len(rules),
	}
	if match := timingRe.FindStringSubmatch(rules); match != nil {
		c.Timing = strings.TrimSpace(match[1])
	}
	for _, s := range sentenceSplitRe.Split(rules, -1) {
		s = strings.TrimSpace(s)
		if s != "" && conditionRe.MatchString(s) {
			c.Conditions = append(c.Conditions, s)
		}
	}
	c.Strict = countMarkers(rules, strictMarkers) > countMarkers(rules, flexibleMarkers)
	return c
}

func countMarkers(text string, markers []string) int {
	n := 0
	for _, mk := range markers {
		if matching.ContainsAny(text, mk) {
			n++
		}
	}
	return n
}
