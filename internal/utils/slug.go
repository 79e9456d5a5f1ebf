package utils

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultSlug is used when a name has no characters that survive slugging
const DefaultSlug = "group"

// Slugify converts a display name into a URL-safe slug:
// "Crème Brûlée Club!" becomes "creme-brulee-club".
func Slugify(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}

	if b.Len() == 0 {
		return DefaultSlug
	}
	return b.String()
}

// SlugCandidates returns base, base-2, ... up to max candidates in preference order
func SlugCandidates(base string, max int) []string {
	if max < 1 {
		return nil
	}
	candidates := make([]string, 0, max)
	candidates = append(candidates, base)
	for i := 2; i <= max; i++ {
		candidates = append(candidates, base+"-"+strconv.Itoa(i))
	}
	return candidates
}
