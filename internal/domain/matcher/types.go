package matcher

import (
	"time"

	"github.com/shopspring/decimal"
)

// Confidence classifies how trustworthy a match result is.
// Anything below ConfidenceHigh should be routed to manual review
// by the caller rather than auto-applied.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
	ConfidenceNone   Confidence = "none"
	ConfidenceManual Confidence = "manual"
)

// Method identifies which strategy produced a match.
type Method string

const (
	MethodAlias  Method = "alias"
	MethodPhone  Method = "phone"
	MethodName   Method = "name"
	MethodHouse  Method = "house_number"
	MethodManual Method = "manual"
)

// ResidentMatchData is a candidate resident record. Immutable input to a
// matching run, sourced fresh from the resident registry before each batch.
type ResidentMatchData struct {
	ID        string
	FirstName string
	LastName  string
	Code      string
	Phones    []string
	HouseIDs  []string
}

// FullName returns the resident's display name.
func (r ResidentMatchData) FullName() string {
	if r.FirstName == "" {
		return r.LastName
	}
	if r.LastName == "" {
		return r.FirstName
	}
	return r.FirstName + " " + r.LastName
}

// AliasMatchData is a staff-curated alias bound to exactly one resident.
// Aliases take precedence over every inferred match.
type AliasMatchData struct {
	ID         string
	AliasName  string
	ResidentID string
}

// HouseMatchData is a house identifier with its street name, house number,
// and the residents currently associated with it.
type HouseMatchData struct {
	ID          string
	HouseNumber string
	StreetName  string
	ResidentIDs []string
}

// MatchInput is one statement transaction to be resolved. Amount, Date and
// Reference are carried through for the caller's reconciliation logic but are
// not inputs to any matching strategy.
type MatchInput struct {
	Description string
	Amount      decimal.Decimal
	Date        time.Time
	Reference   string
}

// SingleMatch is one candidate result produced by a strategy.
type SingleMatch struct {
	ResidentID   string     `json:"resident_id"`
	HouseID      string     `json:"house_id,omitempty"`
	Method       Method     `json:"method"`
	Confidence   Confidence `json:"confidence"`
	Score        float64    `json:"score"`
	MatchedValue string     `json:"matched_value"`
}

// DetailedMatchResult is the matcher's output for one input: zero, one or
// multiple candidates ranked by score, plus an overall confidence. An empty
// ResidentID means no match, which is a normal outcome, not an error.
type DetailedMatchResult struct {
	ResidentID   string        `json:"resident_id,omitempty"`
	HouseID      string        `json:"house_id,omitempty"`
	Confidence   Confidence    `json:"confidence"`
	Method       Method        `json:"method,omitempty"`
	MatchedValue string        `json:"matched_value,omitempty"`
	Score        float64       `json:"score,omitempty"`
	AllMatches   []SingleMatch `json:"all_matches"`
}

// Config holds matcher tuning knobs. The thresholds were calibrated against
// real statement data and should be treated as configuration, not constants.
type Config struct {
	// MinScore is the minimum fuzzy score for a candidate to be kept.
	MinScore float64
	// ConfidentScore is the score above which a lone candidate is high confidence.
	ConfidentScore float64
	// MediumScore is the score above which a candidate is medium confidence.
	MediumScore float64
	// TieMargin downgrades the overall confidence when the top two candidate
	// scores differ by less than this amount.
	TieMargin float64
	// MaxCandidates caps the number of candidates returned per input.
	MaxCandidates int

	EnablePhoneMatching bool
	EnableHouseMatching bool
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MinScore:            0.60,
		ConfidentScore:      0.90,
		MediumScore:         0.70,
		TieMargin:           0.05,
		MaxCandidates:       5,
		EnablePhoneMatching: true,
		EnableHouseMatching: true,
	}
}

// confidenceRank orders confidence levels for merging.
func confidenceRank(c Confidence) int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	case ConfidenceLow:
		return 1
	default:
		return 0
	}
}
