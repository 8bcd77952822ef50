// slug.go — URL slugs derived from anime titles.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	disallowed = regexp.MustCompile(`[^a-z0-9\s-]`)
	whitespace = regexp.MustCompile(`\s+`)
)

// Make lowercases title, strips accents, drops anything outside
// [a-z0-9], whitespace and '-', then joins words with '-'.
// "Shingeki no Kyojin: Final" becomes "shingeki-no-kyojin-final".
func Make(title string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	s, _, err := transform.String(t, strings.ToLower(title))
	if err != nil {
		s = strings.ToLower(title)
	}
	s = disallowed.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	return whitespace.ReplaceAllString(s, "-")
}
