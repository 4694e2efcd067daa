// Package matcher resolves bank statement transactions to residents.
//
// A transaction narration is classified with a prioritized cascade of
// strategies:
//  1. Exact alias match (staff-curated, always wins outright)
//  2. Phone number extraction from the narration
//  3. Fuzzy name matching against the resident registry
//  4. House number / address extraction
//
// The matcher is built once per import batch from an immutable snapshot of
// reference data and is a pure function of that snapshot and its input, so
// many rows can be matched concurrently without locking.
//
// Example usage:
//
//	m := matcher.NewMatcher(residents, aliases, houses, matcher.DefaultConfig())
//	result := m.Match(matcher.MatchInput{Description: row.Description})
//	if result.Confidence == matcher.ConfidenceHigh {
//		// safe to auto-apply
//	}
package matcher

import (
	"sort"
	"strings"
)

// Matcher matches statement narrations against a reference-data snapshot.
type Matcher struct {
	config    Config
	residents []ResidentMatchData
	aliases   []AliasMatchData
	houses    []HouseMatchData

	// Precomputed at construction so Match stays allocation-light.
	fullNames  []string         // lowercased full name per resident
	phoneIndex map[string][]int // normalized phone -> resident indexes
}

// NewMatcher builds a matcher from the full set of active aliases, residents
// and houses. The slices are not copied; callers must not mutate them for the
// lifetime of the matcher.
func NewMatcher(residents []ResidentMatchData, aliases []AliasMatchData, houses []HouseMatchData, config Config) *Matcher {
	if config.MaxCandidates <= 0 {
		config.MaxCandidates = DefaultConfig().MaxCandidates
	}

	m := &Matcher{
		config:     config,
		residents:  residents,
		aliases:    aliases,
		houses:     houses,
		fullNames:  make([]string, len(residents)),
		phoneIndex: make(map[string][]int),
	}

	for i, r := range residents {
		m.fullNames[i] = strings.ToLower(r.FullName())
		for _, p := range r.Phones {
			norm := normalizePhone(p)
			if norm == "" {
				continue
			}
			m.phoneIndex[norm] = append(m.phoneIndex[norm], i)
		}
	}

	return m
}

// Match classifies a single transaction narration. It never fails: an empty
// or unrecognizable narration yields zero candidates with ConfidenceNone.
func (m *Matcher) Match(input MatchInput) DetailedMatchResult {
	desc := strings.TrimSpace(input.Description)
	if desc == "" {
		return DetailedMatchResult{Confidence: ConfidenceNone, AllMatches: []SingleMatch{}}
	}

	// Alias pass short-circuits: an alias is an explicit staff assertion and
	// must never be overridden by heuristics.
	if hit, ok := m.matchByAlias(desc); ok {
		return DetailedMatchResult{
			ResidentID:   hit.ResidentID,
			Confidence:   ConfidenceHigh,
			Method:       MethodAlias,
			MatchedValue: hit.MatchedValue,
			Score:        hit.Score,
			AllMatches:   []SingleMatch{hit},
		}
	}

	var all []SingleMatch

	if m.config.EnablePhoneMatching {
		all = append(all, m.matchByPhone(desc)...)
	}

	all = append(all, m.matchByName(desc)...)

	var houseID string
	if m.config.EnableHouseMatching {
		houseHits, id := m.matchByHouse(desc)
		houseID = id
		all = append(all, houseHits...)
	}

	return m.assemble(all, houseID)
}

// MatchBatch matches multiple transactions. Rows are independent; results are
// identical to calling Match per input.
func (m *Matcher) MatchBatch(inputs []MatchInput) []DetailedMatchResult {
	results := make([]DetailedMatchResult, len(inputs))
	for i, input := range inputs {
		results[i] = m.Match(input)
	}
	return results
}

// assemble merges candidates from the phone, name and house passes,
// de-duplicating by resident while keeping the highest score, and derives the
// overall confidence.
func (m *Matcher) assemble(all []SingleMatch, houseID string) DetailedMatchResult {
	if len(all) == 0 {
		return DetailedMatchResult{
			Confidence: ConfidenceNone,
			HouseID:    houseID,
			AllMatches: []SingleMatch{},
		}
	}

	best := make(map[string]SingleMatch, len(all))
	order := make([]string, 0, len(all))
	for _, sm := range all {
		cur, seen := best[sm.ResidentID]
		if !seen {
			best[sm.ResidentID] = sm
			order = append(order, sm.ResidentID)
			continue
		}
		if sm.Score > cur.Score ||
			(sm.Score == cur.Score && confidenceRank(sm.Confidence) > confidenceRank(cur.Confidence)) {
			if sm.HouseID == "" {
				sm.HouseID = cur.HouseID
			}
			best[sm.ResidentID] = sm
		} else if cur.HouseID == "" && sm.HouseID != "" {
			cur.HouseID = sm.HouseID
			best[sm.ResidentID] = cur
		}
	}

	merged := make([]SingleMatch, 0, len(best))
	for _, id := range order {
		merged = append(merged, best[id])
	}
	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		return merged[i].ResidentID < merged[j].ResidentID
	})
	if len(merged) > m.config.MaxCandidates {
		merged = merged[:m.config.MaxCandidates]
	}

	// Overall confidence is the strongest per-candidate confidence,
	// downgraded when the result is ambiguous.
	confidence := merged[0].Confidence
	for _, sm := range merged[1:] {
		if confidenceRank(sm.Confidence) > confidenceRank(confidence) {
			confidence = sm.Confidence
		}
	}
	if confidence == ConfidenceHigh &&
		len(merged) >= 2 && merged[0].Score-merged[1].Score < m.config.TieMargin {
		confidence = ConfidenceMedium
	}

	top := merged[0]
	result := DetailedMatchResult{
		ResidentID:   top.ResidentID,
		HouseID:      houseID,
		Confidence:   confidence,
		Method:       top.Method,
		MatchedValue: top.MatchedValue,
		Score:        top.Score,
		AllMatches:   merged,
	}
	if result.HouseID == "" {
		result.HouseID = top.HouseID
	}
	return result
}

// scoreToConfidence maps a 0-1 match score to a confidence level.
func (m *Matcher) scoreToConfidence(score float64) Confidence {
	switch {
	case score >= m.config.ConfidentScore:
		return ConfidenceHigh
	case score >= m.config.MediumScore:
		return ConfidenceMedium
	case score >= m.config.MinScore:
		return ConfidenceLow
	default:
		return ConfidenceNone
	}
}
