package matching

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/alanyoungcy/arbscanner/internal/domain"
)

var (
	yearRe = regexp.MustCompile(`\b(20\d{2})\b`)
	// Kalshi ticker segments: "-28-" or "-25DEC31".
	tickerYearRe = regexp.MustCompile(`^(\d{2})(?:[A-Z]{3}\d{0,2})?$`)
)

// Years returns the sorted set of four-digit years a market refers to, from
// its hints, its title, and its ticker. Descriptions are skipped because
// rule text routinely cites unrelated dates.
func Years(m domain.Market) []int {
	set := make(map[int]bool)
	if m.Hints.Year > 0 {
		set[m.Hints.Year] = true
	}
	for _, match := range yearRe.FindAllStringSubmatch(m.Title, -1) {
		if y, err := strconv.Atoi(match[1]); err == nil {
			set[y] = true
		}
	}
	if t := m.Ticker(); t != "" {
		segs := strings.Split(strings.ToUpper(t), "-")
		for _, seg := range segs[1:] {
			if match := tickerYearRe.FindStringSubmatch(seg); match != nil {
				if y, err := strconv.Atoi(match[1]); err == nil {
					set[2000+y] = true
				}
			}
		}
	}
	out := make([]int, 0, len(set))
	for y := range set {
		out = append(out, y)
	}
	sort.Ints(out)
	return out
}

// YearDistance returns the smallest absolute difference between any year in
// a and any year in b. ok is false when either set is empty.
func YearDistance(a, b []int) (dist int, ok bool) {
	if len(a) == 0 || len(b) == 0 {
		return 0, false
	}
	best := -1
	for _, x := range a {
		for _, y := range b {
			d := x - y
			if d < 0 {
				d = -d
			}
			if best < 0 || d < best {
				best = d
			}
		}
	}
	return best, true
}
