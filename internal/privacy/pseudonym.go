package privacy

import (
	"fmt"
	"hash/fnv"
)

// pseudonymSpace bounds the numeric range of derived pseudonyms.
const pseudonymSpace = 10_000_000

// Pseudonym derives a stable, non-reversible identifier for a subject. The
// same subject always maps to the same pseudonym, and the real identifier
// cannot be recovered from it.
func Pseudonym(subjectID string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(subjectID))
	return fmt.Sprintf("patient-%07d", h.Sum64()%pseudonymSpace)
}
