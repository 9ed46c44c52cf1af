package matching

// countryAliases maps normalized names and demonyms to a canonical country.
var countryAliases = map[string]string{
	"united states": "United States", "united states of america": "United States",
	"america": "United States", "american": "United States", "usa": "United States",
	"u s": "United States", "u s a": "United States",
	"honduras": "Honduras", "honduran": "Honduras",
	"mexico": "Mexico", "mexican": "Mexico",
	"canada": "Canada", "canadian": "Canada",
	"united kingdom": "United Kingdom", "uk": "United Kingdom", "britain": "United Kingdom",
	"british": "United Kingdom", "england": "United Kingdom",
	"france": "France", "french": "France",
	"germany": "Germany", "german": "Germany",
	"russia": "Russia", "russian": "Russia",
	"ukraine": "Ukraine", "ukrainian": "Ukraine",
	"china": "China", "chinese": "China",
	"japan": "Japan", "japanese": "Japan",
	"india": "India", "indian": "India",
	"brazil": "Brazil", "brazilian": "Brazil",
	"argentina": "Argentina", "argentine": "Argentina", "argentinian": "Argentina",
	"venezuela": "Venezuela", "venezuelan": "Venezuela",
	"colombia": "Colombia", "colombian": "Colombia",
	"chile": "Chile", "chilean": "Chile",
	"peru": "Peru", "peruvian": "Peru",
	"ecuador": "Ecuador", "bolivia": "Bolivia",
	"guatemala": "Guatemala", "el salvador": "El Salvador", "nicaragua": "Nicaragua",
	"costa rica": "Costa Rica", "panama": "Panama",
	"israel": "Israel", "israeli": "Israel",
	"iran": "Iran", "iranian": "Iran",
	"south korea": "South Korea", "north korea": "North Korea",
	"taiwan": "Taiwan", "turkey": "Turkey", "turkish": "Turkey",
	"italy": "Italy", "italian": "Italy",
	"spain": "Spain", "spanish": "Spain",
	"portugal": "Portugal", "poland": "Poland", "polish": "Poland",
	"netherlands": "Netherlands", "dutch": "Netherlands",
	"sweden": "Sweden", "norway": "Norway", "ireland": "Ireland",
	"hungary": "Hungary", "romania": "Romania", "greece": "Greece",
	"australia": "Australia", "australian": "Australia",
	"new zealand":  "New Zealand",
	"south africa": "South Africa", "nigeria": "Nigeria", "egypt": "Egypt",
	"pakistan": "Pakistan", "philippines": "Philippines", "indonesia": "Indonesia",
	"vietnam": "Vietnam", "thailand": "Thailand", "saudi arabia": "Saudi Arabia",
}

// countryAliasExclusions lists preceding words that make an alias refer to
// something other than the country ("new mexico", "latin american").
var countryAliasExclusions = map[string][]string{
	"mexico":   {"new"},
	"american": {"latin", "south", "north", "central"},
	"america":  {"latin", "south", "north", "central"},
	"indian":   {"american"},
}

// usInstitutions are phrases that place a market in the United States when no
// country is named.
var usInstitutions = []string{
	"congress", "senate", "house of representatives", "white house", "gop",
	"dnc", "rnc", "supreme court", "scotus", "potus", "electoral college",
	"federal reserve", "fomc", "speaker of the house", "democratic party",
	"republican party", "texas", "california", "florida", "pennsylvania",
	"ohio", "michigan", "arizona", "nevada", "wisconsin", "new york",
}

// politicalContext words mark a US-venue market as US-political.
var politicalContext = []string{
	"election", "president", "presidential", "nominee", "nomination",
	"primary", "governor", "senate", "congress", "cabinet",
}

// knownPeople maps lowercase surnames and nicknames to a canonical name.
var knownPeople = map[string]string{
	"trump": "Donald Trump", "biden": "Joe Biden", "harris": "Kamala Harris",
	"vance": "JD Vance", "newsom": "Gavin Newsom", "desantis": "Ron DeSantis",
	"haley": "Nikki Haley", "rubio": "Marco Rubio", "shapiro": "Josh Shapiro",
	"whitmer": "Gretchen Whitmer", "buttigieg": "Pete Buttigieg",
	"aoc": "Alexandria Ocasio-Cortez", "ocasio-cortez": "Alexandria Ocasio-Cortez",
	"walz": "Tim Walz", "pence": "Mike Pence", "ramaswamy": "Vivek Ramaswamy",
	"rfk": "Robert F. Kennedy Jr.", "kennedy": "Robert F. Kennedy Jr.",
	"musk": "Elon Musk", "powell": "Jerome Powell", "putin": "Vladimir Putin",
	"zelensky": "Volodymyr Zelenskyy", "zelenskyy": "Volodymyr Zelenskyy",
	"netanyahu": "Benjamin Netanyahu", "sanders": "Bernie Sanders",
	"pritzker": "JB Pritzker", "beshear": "Andy Beshear", "youngkin": "Glenn Youngkin",
	"cruz": "Ted Cruz", "obama": "Michelle Obama", "carlson": "Tucker Carlson",
	"asfura": "Nasry Asfura", "moncada": "Rixi Moncada", "nasralla": "Salvador Nasralla",
}

// tickerInitials maps the trailing person segment of exchange tickers.
var tickerInitials = map[string]string{
	"DJT": "Donald Trump", "JB": "Joe Biden", "KH": "Kamala Harris",
	"JDV": "JD Vance", "GN": "Gavin Newsom", "RDS": "Ron DeSantis",
	"NH": "Nikki Haley", "MR": "Marco Rubio", "JS": "Josh Shapiro",
	"GW": "Gretchen Whitmer", "PB": "Pete Buttigieg", "AOC": "Alexandria Ocasio-Cortez",
	"TW": "Tim Walz", "VR": "Vivek Ramaswamy", "RFK": "Robert F. Kennedy Jr.",
}

// capitalStop are capitalized words that never start or continue a person
// name run.
var capitalStop = map[string]bool{
	"will": true, "who": true, "what": true, "which": true, "when": true,
	"the": true, "a": true, "an": true, "next": true, "win": true, "wins": true,
	"be": true, "is": true, "does": true, "do": true, "can": true, "how": true,
	"president": true, "presidential": true, "vice": true, "vp": true,
	"republican": true, "republicans": true, "democrat": true, "democrats": true,
	"democratic": true, "gop": true, "party": true, "nominee": true,
	"nomination": true, "election": true, "elections": true, "primary": true,
	"general": true, "senate": true, "house": true, "congress": true,
	"governor": true, "mayor": true, "speaker": true, "prime": true, "minister": true,
	"federal": true, "reserve": true, "supreme": true, "court": true,
	"white": true, "united": true, "states": true, "national": true,
	"convention": true, "electoral": true, "college": true, "us": true, "u.s.": true,
	"january": true, "february": true, "march": true, "april": true, "may": true,
	"june": true, "july": true, "august": true, "september": true, "october": true,
	"november": true, "december": true, "super": true, "bowl": true, "world": true,
	"series": true, "cup": true, "fed": true, "ceo": true, "popular": true,
	"vote": true, "yes": true, "no": true, "by": true, "in": true, "of": true,
	"on": true, "for": true, "and": true, "or": true, "to": true, "before": true,
	"after": true, "end": true, "new": true, "york": true, "times": true,
	"bitcoin": true, "ethereum": true, "running": true, "mate": true,
}
