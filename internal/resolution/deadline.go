package resolution

import (
	"regexp"
	"strconv"
	"strings"
)

// deadline is a calendar date named in a timing phrase. Year 0 means the
// year was not stated; day 0 means the end of the month.
type deadline struct {
	year, month, day int
}

var months = map[string]int{
	"january": 1, "february": 2, "march": 3, "april": 4, "may": 5, "june": 6,
	"july": 7, "august": 8, "september": 9, "october": 10, "november": 11, "december": 12,
}

var (
	monthDayRe  = regexp.MustCompile(`\b([a-z]+)\s+(\d{1,2})(?:st|nd|rd|th)?(?:,?\s*(\d{4}))?\b`)
	isoDateRe   = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	slashDateRe = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{2,4})\b`)
	endOfRe     = regexp.MustCompile(`\bend\s+of\s+(?:(\d{4})|the\s+year|([a-z]+)\s+(\d{4}))\b`)
)

// parseDeadline extracts the date from a timing phrase. Clock-only phrases
// such as "11:59 PM ET" carry no date.
func parseDeadline(phrase string) (deadline, bool) {
	s := strings.ToLower(phrase)

	if m := isoDateRe.FindStringSubmatch(s); m != nil {
		return deadline{year: atoi(m[1]), month: atoi(m[2]), day: atoi(m[3])}, true
	}
	if m := slashDateRe.FindStringSubmatch(s); m != nil {
		year := atoi(m[3])
		if year < 100 {
			year += 2000
		}
		return deadline{year: year, month: atoi(m[1]), day: atoi(m[2])}, true
	}
	if m := endOfRe.FindStringSubmatch(s); m != nil {
		switch {
		case m[1] != "":
			return deadline{year: atoi(m[1]), month: 12, day: 31}, true
		case m[2] != "":
			if month, ok := months[m[2]]; ok {
				return deadline{year: atoi(m[3]), month: month}, true
			}
		default:
			return deadline{month: 12, day: 31}, true
		}
	}
	for _, m := range monthDayRe.FindAllStringSubmatch(s, -1) {
		if month, ok := months[m[1]]; ok {
			return deadline{year: atoi(m[3]), month: month, day: atoi(m[2])}, true
		}
	}
	return deadline{}, false
}

func (d deadline) matches(o deadline) bool {
	if d.month != o.month || d.day != o.day {
		return false
	}
	return d.year == 0 || o.year == 0 || d.year == o.year
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
