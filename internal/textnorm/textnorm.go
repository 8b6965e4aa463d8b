// Package textnorm folds user-entered text for comparison and URLs.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize folds a label for matching: accents are stripped, letters are
// lowercased, and runs of whitespace or punctuation become single spaces.
func Normalize(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	space := false
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
			continue
		}
		space = true
	}
	return b.String()
}

// Slugify turns a display name into a URL slug of ASCII letters, digits and
// single dashes, at most maxLen bytes long. It may return "".
func Slugify(s string, maxLen int) string {
	var b strings.Builder
	for _, r := range Normalize(s) {
		switch {
		case r == ' ':
			b.WriteByte('-')
		case r < unicode.MaxASCII:
			b.WriteRune(r)
		}
	}
	slug := strings.Trim(b.String(), "-")
	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}
	if len(slug) > maxLen {
		slug = strings.TrimRight(slug[:maxLen], "-")
	}
	return slug
}
