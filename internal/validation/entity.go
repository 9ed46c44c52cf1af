package validation

import (
	"fmt"
	"strings"

	"github.com/alanyoungcy/arbscanner/internal/domain"
	"github.com/alanyoungcy/arbscanner/internal/matching"
)

// Entities are the named things a market refers to.
type Entities struct {
	Persons   []string
	Locations matching.CountrySet
	Years     []int
}

// EntityExtractor pulls entities out of a market. Implementations may call
// out to an NER service and may fail.
type EntityExtractor interface {
	Extract(m domain.Market) (Entities, error)
}

// LexiconEntityExtractor uses the matching package's lexicons.
type LexiconEntityExtractor struct{}

func (LexiconEntityExtractor) Extract(m domain.Market) (Entities, error) {
	return Entities{
		Persons:   matching.Persons(m),
		Locations: matching.Countries(m),
		Years:     matching.Years(m),
	}, nil
}

// compareEntities returns the tier outcome for two entity sets.
func compareEntities(a, b Entities) TierOutcome {
	out := TierOutcome{Tier: TierEntityMatch, Name: tierNames[TierEntityMatch], Passed: true, Confidence: 0.8}
	shared := false

	if len(a.Persons) > 0 && len(b.Persons) > 0 {
		if !matching.PersonsCompatible(a.Persons, b.Persons) {
			return out.fail(SeverityCritical, fmt.Sprintf("person conflict: %s vs %s",
				strings.Join(a.Persons, ", "), strings.Join(b.Persons, ", ")))
		}
		shared = true
	}
	if matching.CountriesConflict(a.Locations, b.Locations) {
		return out.fail(SeverityCritical, fmt.Sprintf("location conflict: %s vs %s", a.Locations, b.Locations))
	}
	if len(a.Locations.Countries) > 0 && len(b.Locations.Countries) > 0 {
		shared = true
	}

	if dist, ok := matching.YearDistance(a.Years, b.Years); ok {
		if dist >= 1 {
			out.Severity = SeverityHigh
			out.Reason = fmt.Sprintf("year differs by %d", dist)
			out.Confidence = 0.6
			return out
		}
		shared = true
	}
	if shared {
		out.Confidence = 1.0
		out.Reason = "entities agree"
	} else {
		out.Reason = "no comparable entities"
	}
	return out
}
