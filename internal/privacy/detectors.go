package privacy

import (
	"regexp"
	"strings"
)

// Detector categories, also used as violation labels by the bundle validator.
const (
	CategoryEmail   = "email"
	CategoryPhone   = "phone"
	CategoryGovID   = "government_id"
	CategoryDOB     = "date_of_birth"
	CategoryAddress = "street_address"
	CategoryName    = "person_name"
)

// Detector finds one category of personally identifying text and replaces
// matches with a typed redaction token.
type Detector struct {
	Category string
	Token    string
	re       *regexp.Regexp
}

// Detect reports whether the text contains a match for this category.
func (d Detector) Detect(text string) bool {
	return d.re.MatchString(text)
}

// Redact replaces every match with the detector's redaction token.
func (d Detector) Redact(text string) string {
	return d.re.ReplaceAllString(text, d.Token)
}

// detectors is the ordered detection ladder. Order matters: specific digit
// formats (phone, government ID, DOB) run before the broader ones so each
// match gets the most specific token. The name heuristic runs last because it
// is the loosest pattern. Read-only after init; safe for concurrent use.
var detectors = []Detector{
	{
		Category: CategoryEmail,
		Token:    "[REDACTED_EMAIL]",
		re:       regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`),
	},
	{
		Category: CategoryPhone,
		Token:    "[REDACTED_PHONE]",
		// AU mobile, AU landline, and NANP formats.
		re: regexp.MustCompile(`(?:\+?61[ \-]?4|04)\d{2}[ \-]?\d{3}[ \-]?\d{3}|\(?0[2378]\)?[ \-]?\d{4}[ \-]?\d{4}|\+?1[ \-.]?\(?\d{3}\)?[ \-.]?\d{3}[ \-.]?\d{4}|\(\d{3}\)[ \-.]?\d{3}[ \-.]?\d{4}`),
	},
	{
		Category: CategoryGovID,
		Token:    "[REDACTED_ID]",
		// TFN-style 3-3-3 and Medicare-style 4-5-1 digit groups.
		re: regexp.MustCompile(`\b\d{4}[ \-]?\d{5}[ \-]?\d\b|\b\d{3}[ \-]\d{3}[ \-]\d{3}\b`),
	},
	{
		Category: CategoryDOB,
		Token:    "[REDACTED_DOB]",
		re:       regexp.MustCompile(`\b\d{1,2}[/\-]\d{1,2}[/\-](?:\d{4}|\d{2})\b|(?i)\bborn(?: on)? \d{1,2} [A-Za-z]+ \d{4}\b`),
	},
	{
		Category: CategoryAddress,
		Token:    "[REDACTED_ADDRESS]",
		re:       regexp.MustCompile(`(?i)\b\d+[a-z]?(?:/\d+)? (?:[A-Za-z]+ ){1,3}(?:street|st|road|rd|avenue|ave|drive|dr|lane|ln|court|ct|crescent|cres|boulevard|blvd|parade|pde|terrace|tce|highway|hwy)\b`),
	},
	{
		Category: CategoryName,
		Token:    "[REDACTED_NAME]",
		// Two adjacent capitalized tokens. Deliberately loose; the bundle
		// validator exempts this category for location-seeking queries so a
		// bare place name is not treated as a leaked name.
		re: regexp.MustCompile(`\b[A-Z][a-z]+ [A-Z][a-z]+\b`),
	},
}

// Detectors returns the ordered detection ladder.
func Detectors() []Detector {
	return detectors
}

// RedactText runs the full ladder over the text. Redaction is idempotent:
// tokens emitted by one pass never satisfy a detector on the next.
func RedactText(text string) string {
	for _, d := range detectors {
		text = d.Redact(text)
	}
	return text
}

// RedactTextForRouting runs the ladder but leaves bare name-pattern matches
// intact when the text reads as a location search, so a place name like
// "Gold Coast" survives to the intent classifier and the search provider.
// Text entering a bundle or a model prompt still goes through RedactText.
func RedactTextForRouting(text string) string {
	keepNames := IsLocationQuery(text)
	for _, d := range detectors {
		if keepNames && d.Category == CategoryName {
			continue
		}
		text = d.Redact(text)
	}
	return text
}

// Scan returns the categories detected in the text, in ladder order.
func Scan(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	var found []string
	for _, d := range detectors {
		if d.Detect(text) {
			found = append(found, d.Category)
		}
	}
	return found
}
