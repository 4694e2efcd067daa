package matcher

import (
	"regexp"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/xrash/smetrics"
)

// Bank boilerplate that appears around payer names in narrations.
var (
	boilerplateRe = regexp.MustCompile(`(?i)\b(transfer from|transfer to|trf|tfr|from|to|payment|pmt|nip|wtrns|web|mobile|ussd|ref|reference)\b`)
	longDigitsRe  = regexp.MustCompile(`\d{10,}`)
	nonWordRe     = regexp.MustCompile(`[^a-zA-Z0-9\s]`)
)

var (
	senderPrefixRe = regexp.MustCompile(`(?i)^(nip/|wtrns/|web/|mobile/|ussd/)`)
	transferRe     = regexp.MustCompile(`(?i)transfer (from|to)`)
	capitalNameRe  = regexp.MustCompile(`([A-Z][a-z]+ ){1,3}[A-Z][a-z]+`)
	alphaWordRe    = regexp.MustCompile(`^[a-zA-Z]+$`)
)

// ExtractSenderName pulls a plausible account-holder name out of a narration,
// for registering it as a payment alias. Returns "" when the narration does
// not look like it carries a name.
func ExtractSenderName(description string) string {
	cleaned := senderPrefixRe.ReplaceAllString(description, "")
	cleaned = strings.TrimSpace(transferRe.ReplaceAllString(cleaned, ""))

	if name := capitalNameRe.FindString(cleaned); name != "" {
		return strings.TrimSpace(name)
	}

	var words []string
	for _, word := range strings.Fields(cleaned) {
		if len(word) > 1 {
			words = append(words, word)
		}
	}
	if len(words) > 4 {
		words = words[:4]
	}
	var alphaWords []string
	for _, word := range words {
		if alphaWordRe.MatchString(word) {
			alphaWords = append(alphaWords, word)
		}
	}
	if len(alphaWords) >= 2 {
		return strings.Join(alphaWords, " ")
	}
	return ""
}

// extractNameCandidates strips banking noise from a narration and keeps the
// first few words that could plausibly form a payer name.
func extractNameCandidates(description string) string {
	cleaned := boilerplateRe.ReplaceAllString(description, " ")
	cleaned = longDigitsRe.ReplaceAllString(cleaned, " ")
	cleaned = nonWordRe.ReplaceAllString(cleaned, " ")
	cleaned = normalizeText(cleaned)

	words := make([]string, 0, 8)
	for _, w := range strings.Fields(cleaned) {
		if len(w) > 1 {
			words = append(words, w)
		}
	}
	if len(words) > 5 {
		words = words[:5]
	}
	return strings.Join(words, " ")
}

// tokenSimilarity scores two lowercase tokens with a blend of Jaro-Winkler
// (rewards shared prefixes and transpositions) and normalized Levenshtein
// distance (penalizes outright edits).
func tokenSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}

	jw := smetrics.JaroWinkler(a, b, 0.7, 4)

	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	lev := 1.0 - float64(levenshtein.ComputeDistance(a, b))/float64(maxLen)
	if lev < 0 {
		lev = 0
	}

	return (jw + lev) / 2
}

// nameSimilarity scores a cleaned narration fragment against a resident's
// full name. Each name token is matched against its best counterpart in the
// fragment, which tolerates reordering, abbreviation and extra words; a
// whole-string comparison catches concatenated forms.
func nameSimilarity(candidate, fullName string) float64 {
	candidateTokens := strings.Fields(candidate)
	nameTokens := strings.Fields(fullName)
	if len(candidateTokens) == 0 || len(nameTokens) == 0 {
		return 0.0
	}

	var sum float64
	for _, nt := range nameTokens {
		best := 0.0
		for _, ct := range candidateTokens {
			if s := tokenSimilarity(ct, nt); s > best {
				best = s
			}
		}
		sum += best
	}
	score := sum / float64(len(nameTokens))

	if whole := tokenSimilarity(strings.Join(candidateTokens, ""), strings.Join(nameTokens, "")); whole > score {
		score = whole
	}
	return score
}

// matchByName fuzzy-scores every resident's full name against the narration's
// name fragment. Candidates below MinScore are discarded; when the two best
// raw scores are within TieMargin of each other, the near-tied candidates are
// capped at medium so an ambiguous name never auto-applies. The cap is
// computed on raw scores, before the threshold filter, so tightening MinScore
// can only shrink the result.
func (m *Matcher) matchByName(description string) []SingleMatch {
	candidate := extractNameCandidates(description)
	if candidate == "" {
		return nil
	}

	type scored struct {
		idx   int
		score float64
	}
	all := make([]scored, 0, len(m.residents))
	for i := range m.residents {
		all = append(all, scored{idx: i, score: nameSimilarity(candidate, m.fullNames[i])})
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].score > all[j].score })

	ambiguous := len(all) >= 2 && all[0].score-all[1].score < m.config.TieMargin

	var hits []SingleMatch
	for _, sc := range all {
		confidence := m.scoreToConfidence(sc.score)
		if confidence == ConfidenceNone {
			break
		}
		if ambiguous && confidence == ConfidenceHigh && all[0].score-sc.score < m.config.TieMargin {
			confidence = ConfidenceMedium
		}
		resident := m.residents[sc.idx]
		hits = append(hits, SingleMatch{
			ResidentID:   resident.ID,
			Method:       MethodName,
			Confidence:   confidence,
			Score:        sc.score,
			MatchedValue: resident.FullName(),
		})
		if len(hits) == m.config.MaxCandidates {
			break
		}
	}
	return hits
}
