package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/text/cases"
)

var caseFolder = cases.Fold()

// Fingerprint computes the stable content hash used for near-duplicate
// detection: title and summary are case-folded, whitespace-collapsed,
// concatenated and hashed.
func Fingerprint(title, summary string) string {
	normalized := normalize(title) + "\n" + normalize(summary)
	sum := sha256.Sum256([]byte(normalized))

	return hex.EncodeToString(sum[:])
}

func normalize(s string) string {
	folded := caseFolder.String(s)
	return strings.Join(strings.Fields(folded), " ")
}
