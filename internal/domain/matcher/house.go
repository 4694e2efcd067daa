package matcher

import (
	"regexp"
	"strings"
)

// House/address shapes as they appear in narrations.
var (
	// "Block A, Plot 5" or "Block A Plot 5"
	blockPlotRe = regexp.MustCompile(`(?i)block\s*([a-z])\s*,?\s*plot\s*(\d+[a-z]?)`)
	// "Plot 5" / "Plt 5", "House 5" / "Hse 5", "No. 5" / "No 5"
	numberedRe = regexp.MustCompile(`(?i)\b(?:p(?:lot|lt)|h(?:ouse|se)|no\.?)\s*(\d+[a-z]?)\b`)
	// "5, Oak Street" style: number followed by a street name and suffix
	streetRe = regexp.MustCompile(`(?i)\b(\d+[a-z]?)\s*,?\s+([a-z]+(?:\s+[a-z]+)?)\s+(?:street|st|close|cres|crescent|avenue|ave|road|rd|way|drive|dr)\b`)

	nonAlnumRe = regexp.MustCompile(`[^a-z0-9]`)
)

// houseRef is an address fragment extracted from a narration: a house number
// token plus an optional street-name hint.
type houseRef struct {
	number string // normalized
	street string // normalized, may be empty
}

// normalizeHouseToken lowercases and strips everything but letters and digits.
func normalizeHouseToken(s string) string {
	return nonAlnumRe.ReplaceAllString(strings.ToLower(s), "")
}

// extractHouseRefs pulls address fragments out of a narration.
func extractHouseRefs(description string) []houseRef {
	var refs []houseRef
	seen := make(map[houseRef]bool)
	add := func(ref houseRef) {
		if ref.number == "" || seen[ref] {
			return
		}
		seen[ref] = true
		refs = append(refs, ref)
	}

	for _, sub := range blockPlotRe.FindAllStringSubmatch(description, -1) {
		// "block a plot 5" is matched against stored numbers like "A5".
		add(houseRef{number: normalizeHouseToken(sub[1] + sub[2])})
		add(houseRef{number: normalizeHouseToken(sub[2])})
	}
	for _, sub := range numberedRe.FindAllStringSubmatch(description, -1) {
		add(houseRef{number: normalizeHouseToken(sub[1])})
	}
	for _, sub := range streetRe.FindAllStringSubmatch(description, -1) {
		add(houseRef{
			number: normalizeHouseToken(sub[1]),
			street: normalizeHouseToken(sub[2]),
		})
	}
	return refs
}

// matchByHouse searches the narration for house-number fragments and resolves
// them to a house and its current residents. The house id is reported even
// when a resident was already found by an earlier pass, to support
// split-payment and multi-resident houses; the resident candidates it
// produces stand alone at medium confidence at best.
func (m *Matcher) matchByHouse(description string) ([]SingleMatch, string) {
	refs := extractHouseRefs(description)
	if len(refs) == 0 {
		return nil, ""
	}

	for _, ref := range refs {
		for _, house := range m.houses {
			number := normalizeHouseToken(house.HouseNumber)
			if number == "" || number != ref.number {
				continue
			}
			if ref.street != "" && house.StreetName != "" {
				street := normalizeHouseToken(house.StreetName)
				if !strings.Contains(street, ref.street) && !strings.Contains(ref.street, street) {
					continue
				}
			}

			hits := make([]SingleMatch, 0, len(house.ResidentIDs))
			for _, residentID := range house.ResidentIDs {
				hits = append(hits, SingleMatch{
					ResidentID:   residentID,
					HouseID:      house.ID,
					Method:       MethodHouse,
					Confidence:   ConfidenceMedium,
					Score:        0.7,
					MatchedValue: strings.TrimSpace(house.HouseNumber + " " + house.StreetName),
				})
			}
			return hits, house.ID
		}
	}

	return nil, ""
}
