package matcher

import (
	"regexp"
	"strings"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// normalizeText lowercases, trims and collapses whitespace for alias
// comparison.
func normalizeText(s string) string {
	return whitespaceRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), " ")
}

// matchByAlias tests each alias for exact or contained-substring equality
// against the normalized narration. Any hit is decisive.
func (m *Matcher) matchByAlias(description string) (SingleMatch, bool) {
	normalized := normalizeText(description)

	for _, alias := range m.aliases {
		aliasName := normalizeText(alias.AliasName)
		if aliasName == "" {
			continue
		}
		if aliasName == normalized || strings.Contains(normalized, aliasName) {
			return SingleMatch{
				ResidentID:   alias.ResidentID,
				Method:       MethodAlias,
				Confidence:   ConfidenceHigh,
				Score:        1.0,
				MatchedValue: alias.AliasName,
			}, true
		}
	}

	return SingleMatch{}, false
}
