package preset

import (
	"regexp"
	"strings"
)

var nameTokenSplit = regexp.MustCompile(`[_\\.;|,\s]+`)

// NormalizeExportName fixes up a user-typed collection name the way artists
// expect: tokens are split on separators and special characters, each token
// is capitalized, and the result is joined with underscores. A known type
// prefix typed in by hand (e.g. "SM_") is stripped so file-name derivation
// does not double it. An empty result falls back to fallback.
func NormalizeExportName(name, fallback string, prefixes []string) string {
	tokens := make([]string, 0, 4)
	for _, tok := range nameTokenSplit.Split(name, -1) {
		if tok == "" {
			continue
		}
		tokens = append(tokens, strings.ToUpper(tok[:1])+tok[1:])
	}

	if len(tokens) == 0 {
		return fallback
	}

	for _, prefix := range prefixes {
		if strings.EqualFold(tokens[0], prefix) {
			if len(tokens) == 1 {
				return fallback
			}
			tokens = tokens[1:]
			break
		}
	}

	return strings.Join(tokens, "_")
}
