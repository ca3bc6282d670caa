package study

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// normalize puts user input in NFC form and collapses runs of whitespace.
func normalize(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

// cacheKey derives a content-cache key that is the same for inputs
// differing only in case, whitespace or Unicode composition.
func cacheKey(kind, input string) string {
	folded := cases.Fold().String(normalize(input))
	sum := blake2b.Sum256([]byte(folded))
	return kind + ":" + hex.EncodeToString(sum[:16])
}
