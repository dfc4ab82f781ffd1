package privacy

import "strings"

// locationCues are phrasings that mark a query as location-seeking. Kept
// deliberately simple; the intent classifier makes the authoritative call and
// this heuristic only backs the name-pattern exception in bundle validation.
var locationCues = []string{
	"near me",
	"nearby",
	"close by",
	"closest",
	"nearest",
	"where can i",
	"where could i",
	"where do i find",
	"find a ",
	"find an ",
	"find me a",
	"locations in",
	"around here",
	"in my area",
	"in my suburb",
	"directions to",
}

// IsLocationQuery reports whether the raw query text reads as a search for a
// place rather than a conversational message.
func IsLocationQuery(text string) bool {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return false
	}
	for _, cue := range locationCues {
		if strings.Contains(text, cue) {
			return true
		}
	}
	return false
}
