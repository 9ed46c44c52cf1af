package matching

import (
	"sort"
	"strings"

	"github.com/alanyoungcy/arbscanner/internal/domain"
)

// Category keyword table. A market belongs to every category whose keywords
// appear in its title or description.
var categoryKeywords = map[string][]string{
	"politics": {
		"election", "president", "presidential", "senate", "congress", "governor",
		"nominee", "nomination", "primary", "democrat", "democratic", "republican",
		"gop", "vote", "ballot", "parliament", "prime minister", "mayor", "cabinet",
		"impeach", "electoral", "white house", "vice president", "running mate",
	},
	"economy": {
		"fed", "federal reserve", "interest rate", "rates", "inflation", "cpi",
		"gdp", "recession", "unemployment", "jobs report", "payrolls", "fomc",
		"treasury", "tariff", "s&p", "nasdaq", "dow",
	},
	"crypto": {
		"bitcoin", "btc", "ethereum", "eth", "solana", "crypto", "cryptocurrency",
		"stablecoin", "etf", "coinbase", "binance", "dogecoin",
	},
	"sports": {
		"super bowl", "nba", "nfl", "mlb", "nhl", "world series", "championship",
		"world cup", "playoffs", "finals", "mvp", "olympics", "tournament", "match",
	},
	"technology": {
		"ai", "openai", "gpt", "apple", "google", "tesla", "spacex", "launch",
		"iphone", "nvidia", "microsoft", "starship",
	},
	"climate": {
		"temperature", "hurricane", "weather", "rainfall", "snow", "climate",
		"heat", "degrees",
	},
	"entertainment": {
		"oscar", "oscars", "grammy", "emmy", "box office", "album", "movie",
		"billboard", "netflix",
	},
}

// Categories returns the sorted category set of a market: adapter-provided
// hints unioned with keyword detection over its text.
func Categories(m domain.Market) []string {
	set := make(map[string]bool)
	for _, c := range m.Hints.Categories {
		if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
			set[canonicalCategory(c)] = true
		}
	}
	text := Normalize(m.Text())
	for cat, kws := range categoryKeywords {
		for _, kw := range kws {
			if containsWord(text, Normalize(kw)) {
				set[cat] = true
				break
			}
		}
	}
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// canonicalCategory folds venue category labels onto the keyword table names.
func canonicalCategory(c string) string {
	switch c {
	case "elections", "political", "us-current-affairs", "world":
		return "politics"
	case "economics", "financials", "finance", "macro":
		return "economy"
	case "science and technology", "tech", "science":
		return "technology"
	case "culture", "pop culture":
		return "entertainment"
	case "weather":
		return "climate"
	}
	return c
}

// CategoriesOverlap reports whether the two category sets share an element.
func CategoriesOverlap(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}
