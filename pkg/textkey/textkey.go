// Package textkey derives the search and URL keys stored next to
// human-entered names: an accent-insensitive lowercase form for matching and
// a hyphenated ASCII slug for recipe URLs.
package textkey

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultSlug is used when a title has no slug-able characters.
const DefaultSlug = "recipe"

func stripMarks(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Normalize lowercases s and removes diacritics. It never fails and
// Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	return strings.ToLower(stripMarks(s))
}

// Slug turns a title into a lowercase, hyphen separated ASCII key.
// Runs of anything other than a-z and 0-9 collapse into a single hyphen.
func Slug(title string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range Normalize(title) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			pendingDash = false
			continue
		}
		pendingDash = true
	}
	if b.Len() == 0 {
		return DefaultSlug
	}
	return b.String()
}
