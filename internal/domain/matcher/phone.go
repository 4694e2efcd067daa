package matcher

import (
	"regexp"
	"strings"
)

// Nigerian phone number shapes as they appear in bank narrations.
var phonePatterns = []*regexp.Regexp{
	// +234 country code format
	regexp.MustCompile(`\+?234[\s-]*[789]\d{2}[\s-]*\d{3}[\s-]*\d{4}`),
	// 0-prefix format
	regexp.MustCompile(`0[789]\d{2}[\s-]?\d{3}[\s-]?\d{4}`),
	// bare 10-digit format without leading 0 or country code
	regexp.MustCompile(`[789]\d{2}[\s-]?\d{3}[\s-]?\d{4}`),
}

var nonDigitRe = regexp.MustCompile(`\D`)

// normalizePhone reduces a phone number to its canonical local digit form:
// digits only, 234 country code folded into a leading 0.
func normalizePhone(phone string) string {
	digits := nonDigitRe.ReplaceAllString(phone, "")
	switch {
	case strings.HasPrefix(digits, "234") && len(digits) == 13:
		digits = "0" + digits[3:]
	case len(digits) == 10 && strings.ContainsAny(digits[:1], "789"):
		digits = "0" + digits
	}
	return digits
}

// matchByPhone extracts phone-shaped digit runs from the narration and looks
// them up against the residents' registered numbers. A number registered to a
// single resident is a high-confidence hit; a number shared by several
// residents yields all of them at medium confidence so the ambiguity is
// visible to the caller.
func (m *Matcher) matchByPhone(description string) []SingleMatch {
	seen := make(map[string]bool)
	var extracted []string
	for _, pattern := range phonePatterns {
		for _, raw := range pattern.FindAllString(description, -1) {
			norm := normalizePhone(raw)
			if norm == "" || seen[norm] {
				continue
			}
			seen[norm] = true
			extracted = append(extracted, norm)
		}
	}
	if len(extracted) == 0 {
		return nil
	}

	var hits []SingleMatch
	for _, phone := range extracted {
		indexes := m.phoneIndex[phone]
		confidence := ConfidenceHigh
		if len(indexes) > 1 {
			confidence = ConfidenceMedium
		}
		for _, idx := range indexes {
			hits = append(hits, SingleMatch{
				ResidentID:   m.residents[idx].ID,
				Method:       MethodPhone,
				Confidence:   confidence,
				Score:        1.0,
				MatchedValue: phone,
			})
		}
	}
	return hits
}
