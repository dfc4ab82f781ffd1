package privacy

import (
	"strings"
	"testing"
)

func TestRedactTextCoversEachCategory(t *testing.T) {
	cases := []struct {
		name  string
		input string
		token string
	}{
		{"email", "reach me at jane.doe@example.com thanks", "[REDACTED_EMAIL]"},
		{"au mobile", "my number is 0412 345 678", "[REDACTED_PHONE]"},
		{"au landline", "call (02) 9123 4567 after lunch", "[REDACTED_PHONE]"},
		{"us phone", "it's +1 (555) 123-4567", "[REDACTED_PHONE]"},
		{"tax file number", "my tfn is 123-456-789", "[REDACTED_ID]"},
		{"medicare number", "medicare 2123 45678 1", "[REDACTED_ID]"},
		{"dob slash", "I was born 21/03/1987 actually", "[REDACTED_DOB]"},
		{"dob words", "born on 3 March 1987", "[REDACTED_DOB]"},
		{"address", "I live at 12 Ocean Street now", "[REDACTED_ADDRESS]"},
		{"unit address", "deliver to 4/18 Wattle Cres please", "[REDACTED_ADDRESS]"},
		{"name", "my GP is Sarah Nguyen", "[REDACTED_NAME]"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := RedactText(tc.input)
			if !strings.Contains(got, tc.token) {
				t.Fatalf("expected %q in redacted text, got %q", tc.token, got)
			}
			if got == tc.input {
				t.Fatalf("expected input to change: %q", got)
			}
		})
	}
}

func TestRedactTextForRoutingKeepsPlaceNames(t *testing.T) {
	got := RedactTextForRouting("where can i swim laps in Gold Coast")
	if !strings.Contains(got, "Gold Coast") {
		t.Fatalf("expected place name to survive routing redaction, got %q", got)
	}

	// Other categories still redact inside a location-seeking query.
	got = RedactTextForRouting("where can i swim near me? email jane.doe@example.com")
	if strings.Contains(got, "jane.doe@example.com") {
		t.Fatalf("expected email redacted, got %q", got)
	}

	// Outside a location query the name ladder still applies.
	got = RedactTextForRouting("my GP is Sarah Nguyen")
	if !strings.Contains(got, "[REDACTED_NAME]") {
		t.Fatalf("expected name redacted in non-location text, got %q", got)
	}
}

func TestRedactTextIsIdempotent(t *testing.T) {
	input := "Jane Doe, jane@example.com, 0412 345 678, 12 Ocean Street, born 21/03/1987"
	once := RedactText(input)
	twice := RedactText(once)
	if once != twice {
		t.Fatalf("redaction not idempotent:\nonce:  %q\ntwice: %q", once, twice)
	}
	if Scan(once) != nil {
		t.Fatalf("redacted text still scans dirty: %v", Scan(once))
	}
}

func TestScanReturnsCategoriesInLadderOrder(t *testing.T) {
	found := Scan("email a@b.co and friend John Smith")
	if len(found) != 2 {
		t.Fatalf("expected 2 categories, got %v", found)
	}
	if found[0] != CategoryEmail || found[1] != CategoryName {
		t.Fatalf("unexpected order: %v", found)
	}
}

func TestScanCleanText(t *testing.T) {
	if got := Scan("what should I eat before a morning walk?"); got != nil {
		t.Fatalf("expected no detections, got %v", got)
	}
	if got := Scan("   "); got != nil {
		t.Fatalf("expected no detections for blank text, got %v", got)
	}
}

func TestPseudonymStableAndOpaque(t *testing.T) {
	a := Pseudonym("subject-42")
	b := Pseudonym("subject-42")
	c := Pseudonym("subject-43")
	if a != b {
		t.Fatalf("pseudonym not stable: %q vs %q", a, b)
	}
	if a == c {
		t.Fatalf("distinct subjects collided: %q", a)
	}
	if strings.Contains(a, "subject-42") {
		t.Fatalf("pseudonym leaks the real identifier: %q", a)
	}
	if !strings.HasPrefix(a, "patient-") {
		t.Fatalf("unexpected pseudonym shape: %q", a)
	}
}

func TestIsLocationQuery(t *testing.T) {
	positives := []string{
		"where can I swim near me",
		"find a pool nearby",
		"what's the closest walking track",
		"any gyms in my area?",
	}
	for _, q := range positives {
		if !IsLocationQuery(q) {
			t.Fatalf("expected location query: %q", q)
		}
	}
	negatives := []string{
		"how did my scores look this week",
		"what should I have for dinner",
		"",
	}
	for _, q := range negatives {
		if IsLocationQuery(q) {
			t.Fatalf("did not expect location query: %q", q)
		}
	}
}
