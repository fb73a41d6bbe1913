package ddl

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Ident converts arbitrary text (a file name, a header) into a lowercase
// ASCII identifier: accents are stripped, [a-z0-9_] is kept, space, dash and
// dot become a single underscore, everything else is dropped. An empty result
// becomes "t"; a leading digit gets a "t_" prefix.
func Ident(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
	)
	ascii, _, _ := transform.String(t, s)

	var b strings.Builder
	prevUnderscore := false
	for _, r := range ascii {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevUnderscore = false
		case r == '_' || r == ' ' || r == '-' || r == '.':
			if !prevUnderscore {
				b.WriteRune('_')
				prevUnderscore = true
			}
		}
	}
	name := strings.Trim(b.String(), "_")
	switch {
	case name == "":
		return "t"
	case name[0] >= '0' && name[0] <= '9':
		return "t_" + name
	}
	return name
}
