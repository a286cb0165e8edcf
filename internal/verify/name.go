package verify

import (
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// courtesyTitles are leading tokens stripped before name parsing.
var courtesyTitles = map[string]bool{
	"dr":   true,
	"mr":   true,
	"mrs":  true,
	"ms":   true,
	"prof": true,
}

// credentialSuffixes are trailing tokens stripped before name parsing, so
// "John A. Smith MD" parses to Smith rather than MD.
var credentialSuffixes = map[string]bool{
	"md":  true,
	"do":  true,
	"dds": true,
	"dpm": true,
	"np":  true,
	"pa":  true,
	"phd": true,
	"jr":  true,
	"sr":  true,
	"ii":  true,
	"iii": true,
	"iv":  true,
}

// parseName splits a provider name into first and last tokens, tolerating
// courtesy titles, middle names, and credential suffixes.
func parseName(name string) (first, last string, err error) {
	tokens := strings.Fields(strings.ReplaceAll(name, ",", " "))

	cleaned := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if len(cleaned) == 0 && courtesyTitles[normalizeToken(tok)] {
			continue
		}
		cleaned = append(cleaned, tok)
	}
	for len(cleaned) > 1 && credentialSuffixes[normalizeToken(cleaned[len(cleaned)-1])] {
		cleaned = cleaned[:len(cleaned)-1]
	}

	if len(cleaned) < 2 {
		return "", "", eris.Errorf("verify: unable to parse first and last name from %q", name)
	}
	return cleaned[0], cleaned[len(cleaned)-1], nil
}

// normalizeToken lowers a name token and strips punctuation, so "M.D." and
// "Jr," compare equal to their bare forms.
func normalizeToken(tok string) string {
	return strings.ToLower(strings.Map(func(r rune) rune {
		if r == '.' || r == ',' {
			return -1
		}
		return r
	}, tok))
}

var nameCaser = cases.Title(language.English)

// displayName renders a registry first/last pair in canonical casing; the
// registry returns names fully upper-cased.
func displayName(first, last string) string {
	full := strings.TrimSpace(first + " " + last)
	return nameCaser.String(strings.ToLower(full))
}
