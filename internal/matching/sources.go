package matching

// resolutionSources maps a canonical resolution source to the phrases that
// identify it in market text.
var resolutionSources = []struct {
	Name    string
	Phrases []string
}{
	{"AP", []string{"associated press", "ap"}},
	{"FOX", []string{"fox news", "fox"}},
	{"NBC", []string{"nbc", "nbc news"}},
	{"CNN", []string{"cnn"}},
	{"REUTERS", []string{"reuters"}},
	{"DECISION_DESK", []string{"decision desk", "ddhq"}},
	{"OFFICIAL", []string{"official results", "officially", "official"}},
	{"CERTIFICATION", []string{"certified", "certification", "certify"}},
	{"ELECTORAL_COLLEGE", []string{"electoral college"}},
	{"CONGRESS", []string{"congress", "joint session"}},
	{"FEDERAL_RESERVE", []string{"federal reserve", "fomc"}},
	{"BLS", []string{"bureau of labor statistics", "bls"}},
	{"BEA", []string{"bureau of economic analysis", "bea"}},
	{"COINBASE", []string{"coinbase"}},
	{"BINANCE", []string{"binance"}},
	{"COINGECKO", []string{"coingecko"}},
	{"CME", []string{"cme"}},
	{"NWS", []string{"national weather service", "nws", "noaa"}},
	{"ESPN", []string{"espn"}},
}

// Sources returns the canonical resolution sources named in text, in table
// order.
func Sources(text string) []string {
	n := Normalize(text)
	var out []string
	for _, src := range resolutionSources {
		for _, p := range src.Phrases {
			if containsWord(n, Normalize(p)) {
				out = append(out, src.Name)
				break
			}
		}
	}
	return out
}

// SourcesOverlap reports whether two source lists share an element.
func SourcesOverlap(a, b []string) bool {
	return CategoriesOverlap(a, b)
}
