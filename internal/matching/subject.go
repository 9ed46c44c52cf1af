package matching

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/alanyoungcy/arbscanner/internal/domain"
)

// ConflictKind names which subject dimension disagreed.
type ConflictKind string

const (
	ConflictNone     ConflictKind = ""
	ConflictPosition ConflictKind = "position"
	ConflictCountry  ConflictKind = "country"
	ConflictPerson   ConflictKind = "person"
)

// SubjectConflict is the outcome of comparing what two markets are about.
type SubjectConflict struct {
	Conflict bool         `json:"conflict"`
	Kind     ConflictKind `json:"kind,omitempty"`
	Reason   string       `json:"reason"`
}

// CountrySet is the set of countries a market refers to. Implicit is true
// when the set was inferred rather than named in the title.
type CountrySet struct {
	Countries []string
	Implicit  bool
}

func (c CountrySet) String() string {
	s := strings.Join(c.Countries, ", ")
	if c.Implicit {
		s += " (implicit)"
	}
	return s
}

var (
	usAbbrevRe   = regexp.MustCompile(`\bU\.?S\.?A?\b`)
	vpRe         = regexp.MustCompile(`(?i)\b(vice[\s-]?president(ial)?|vp|veep|running[\s-]?mate)\b`)
	presidentRe  = regexp.MustCompile(`(?i)\b(president(ial)?|presidency|potus)\b`)
	nomineeRe    = regexp.MustCompile(`(?i)\b(nominee|nomination|nominated|primary|primaries)\b`)
	winnerRe     = regexp.MustCompile(`(?i)\b(win(s|ner)?|won|elected|next president|general election)\b`)
	republicanRe = regexp.MustCompile(`(?i)\b(republicans?|gop|rnc)\b`)
	democratRe   = regexp.MustCompile(`(?i)\b(democrats?|democratic|dnc)\b`)
)

// SubjectConflictDetector decides whether two markets are about incompatible
// subjects: different countries, different people, or different offices.
// Absence of a signal on either side never produces a conflict.
type SubjectConflictDetector struct{}

// NewSubjectConflictDetector returns a detector using the built-in lexicons.
func NewSubjectConflictDetector() *SubjectConflictDetector {
	return &SubjectConflictDetector{}
}

// Detect compares positions, then countries, then persons.
func (d *SubjectConflictDetector) Detect(m1, m2 domain.Market) SubjectConflict {
	p1, p2 := Position(m1), Position(m2)
	if p1 != domain.PositionUnknown && p2 != domain.PositionUnknown && p1 != p2 {
		return SubjectConflict{
			Conflict: true,
			Kind:     ConflictPosition,
			Reason:   fmt.Sprintf("position mismatch: %s vs %s", p1, p2),
		}
	}

	c1, c2 := Countries(m1), Countries(m2)
	if CountriesConflict(c1, c2) {
		return SubjectConflict{
			Conflict: true,
			Kind:     ConflictCountry,
			Reason:   fmt.Sprintf("country mismatch: %s vs %s", c1, c2),
		}
	}

	ps1, ps2 := Persons(m1), Persons(m2)
	if len(ps1) > 0 && len(ps2) > 0 && !PersonsCompatible(ps1, ps2) {
		return SubjectConflict{
			Conflict: true,
			Kind:     ConflictPerson,
			Reason:   fmt.Sprintf("person mismatch: %s vs %s", strings.Join(ps1, ", "), strings.Join(ps2, ", ")),
		}
	}
	return SubjectConflict{Reason: "compatible"}
}

// Countries extracts named countries from the title. When none are named, a
// market that mentions a US institution, or a political market listed on a
// US-regulated venue, is assumed to be about the United States.
func Countries(m domain.Market) CountrySet {
	set := make(map[string]bool)
	text := Normalize(m.Title)
	words := strings.Fields(text)
	for alias, country := range countryAliases {
		if aliasPresent(words, strings.Fields(alias)) {
			set[country] = true
		}
	}
	if usAbbrevRe.MatchString(m.Title) {
		set["United States"] = true
	}
	if len(set) > 0 {
		return CountrySet{Countries: sortedKeys(set)}
	}

	if ContainsAny(m.Title, usInstitutions...) {
		return CountrySet{Countries: []string{"United States"}, Implicit: true}
	}
	if m.Exchange == domain.ExchangeKalshi || m.Exchange == domain.ExchangePredictIt {
		if ContainsAny(m.Title, politicalContext...) || Position(m) != domain.PositionUnknown {
			return CountrySet{Countries: []string{"United States"}, Implicit: true}
		}
	}
	return CountrySet{}
}

// aliasPresent matches a multi-word alias against the title words, skipping
// matches preceded by an exclusion word.
func aliasPresent(words, alias []string) bool {
	if len(alias) == 0 {
		return false
	}
	excl := countryAliasExclusions[strings.Join(alias, " ")]
outer:
	for i := 0; i+len(alias) <= len(words); i++ {
		for j := range alias {
			if words[i+j] != alias[j] {
				continue outer
			}
		}
		if i > 0 {
			for _, e := range excl {
				if words[i-1] == e {
					continue outer
				}
			}
		}
		return true
	}
	return false
}

// CountriesConflict reports whether two country sets are incompatible. Two
// inferred sets never conflict; an inferred set conflicts with a named set
// that does not contain it.
func CountriesConflict(a, b CountrySet) bool {
	if len(a.Countries) == 0 || len(b.Countries) == 0 {
		return false
	}
	if a.Implicit && b.Implicit {
		return false
	}
	for _, x := range a.Countries {
		for _, y := range b.Countries {
			if x == y {
				return false
			}
		}
	}
	return true
}

// Persons returns the canonical people a market's title (and ticker) names.
func Persons(m domain.Market) []string {
	set := make(map[string]bool)

	if t := m.Ticker(); t != "" {
		segs := strings.Split(strings.ToUpper(t), "-")
		if len(segs) > 1 {
			if name, ok := tickerInitials[segs[len(segs)-1]]; ok {
				set[name] = true
			}
		}
	}

	var run []string
	flush := func() {
		if len(run) >= 2 && len(run) <= 3 {
			set[resolvePerson(run)] = true
		}
		run = run[:0]
	}
	for _, raw := range strings.Fields(m.Title) {
		w := strings.Trim(raw, "?,:;!()\"'")
		w = strings.TrimSuffix(w, "'s")
		lw := strings.ToLower(w)
		if name, ok := knownPeople[lw]; ok {
			set[name] = true
		}
		if w != "" && isUpperStart(w) && !capitalStop[lw] && !isCountryWord(lw) {
			run = append(run, w)
			if strings.ContainsAny(raw, "?,:;!") {
				flush()
			}
			continue
		}
		flush()
	}
	flush()

	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return dedupePersons(out)
}

func resolvePerson(run []string) string {
	for _, w := range run {
		if name, ok := knownPeople[strings.ToLower(w)]; ok {
			return name
		}
	}
	return strings.Join(run, " ")
}

func isCountryWord(w string) bool {
	_, ok := countryAliases[w]
	return ok
}

// dedupePersons drops entries that are contained in a longer entry, so a
// surname run does not sit next to the full name it resolved to.
func dedupePersons(ps []string) []string {
	out := ps[:0:0]
	for i, p := range ps {
		shadowed := false
		for j, q := range ps {
			if i != j && len(q) > len(p) && strings.Contains(strings.ToLower(q), strings.ToLower(p)) {
				shadowed = true
				break
			}
		}
		if !shadowed {
			out = append(out, p)
		}
	}
	return out
}

// PersonsCompatible reports whether any person on one side matches any on
// the other by exact name, substring, or shared surname.
func PersonsCompatible(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if samePerson(x, y) {
				return true
			}
		}
	}
	return false
}

func samePerson(a, b string) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	if la == lb || strings.Contains(la, lb) || strings.Contains(lb, la) {
		return true
	}
	fa, fb := strings.Fields(la), strings.Fields(lb)
	if len(fa) == 0 || len(fb) == 0 {
		return false
	}
	return fa[len(fa)-1] == fb[len(fb)-1]
}

// Position classifies the office a market is about. Vice-presidential
// patterns are checked before presidential ones since the latter is a
// substring of the former.
func Position(m domain.Market) domain.PositionType {
	if m.Hints.PositionType != domain.PositionUnknown {
		return m.Hints.PositionType
	}
	if t := strings.ToUpper(m.Ticker()); t != "" {
		switch {
		case strings.Contains(t, "VPRES") || strings.HasPrefix(t, "KXVP"):
			return domain.PositionVicePresident
		case strings.Contains(t, "PRES"):
			return domain.PositionPresident
		}
	}
	switch {
	case vpRe.MatchString(m.Title):
		return domain.PositionVicePresident
	case presidentRe.MatchString(m.Title):
		return domain.PositionPresident
	}
	return domain.PositionUnknown
}

// Parties returns the sorted set of US parties ("D", "R") a market's title
// names.
func Parties(m domain.Market) []string {
	set := make(map[string]bool)
	switch strings.ToUpper(m.Hints.Party) {
	case "R", "REPUBLICAN", "GOP":
		set["R"] = true
	case "D", "DEMOCRAT", "DEMOCRATIC":
		set["D"] = true
	}
	if republicanRe.MatchString(m.Title) {
		set["R"] = true
	}
	if democratRe.MatchString(m.Title) {
		set["D"] = true
	}
	return sortedKeys(set)
}

// Event classifies a market as a nomination or an outright-winner market.
func Event(m domain.Market) domain.EventType {
	if m.Hints.EventType != domain.EventUnknown {
		return m.Hints.EventType
	}
	if t := strings.ToUpper(m.Ticker()); strings.Contains(t, "NOM") && !strings.Contains(t, "ECONOM") {
		return domain.EventNominee
	}
	switch {
	case nomineeRe.MatchString(m.Title):
		return domain.EventNominee
	case winnerRe.MatchString(m.Title):
		return domain.EventWinner
	}
	return domain.EventUnknown
}

// OutcomeLabel returns the specific outcome a contract of a multi-outcome
// market stands for, or "" for a plain binary market.
func OutcomeLabel(m domain.Market) string {
	if md, ok := m.Metadata.(domain.PredictItMetadata); ok && md.ContractName != "" {
		if !strings.EqualFold(md.ContractName, md.MarketName) {
			return strings.TrimSpace(md.ContractName)
		}
	}
	if i := strings.LastIndex(m.Title, ": "); i >= 0 && i+2 < len(m.Title) {
		return strings.TrimSpace(m.Title[i+2:])
	}
	return ""
}

// OutcomesConflict reports whether two outcome labels name different
// outcomes.
func OutcomesConflict(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	na, nb := Normalize(a), Normalize(b)
	if na == nb || strings.Contains(na, nb) || strings.Contains(nb, na) {
		return false
	}
	return Jaccard(Keywords(a), Keywords(b)) == 0
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
