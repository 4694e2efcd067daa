// Package importer runs the bank statement import pipeline: register an
// uploaded file, match its rows to residents, and turn approved rows into
// payment records.
package importer

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/estateops/estate-backend/internal/domain/matcher"
	"github.com/estateops/estate-backend/internal/infrastructure/config"
	"github.com/estateops/estate-backend/internal/infrastructure/storage"
	"github.com/estateops/estate-backend/internal/parser"
)

// ErrDuplicateImport is returned by CreateImport when the same statement
// content was already imported.
type ErrDuplicateImport struct {
	ExistingID string
}

func (e *ErrDuplicateImport) Error() string {
	return fmt.Sprintf("statement already imported as %s", e.ExistingID)
}

// Importer executes the import pipeline against storage.
type Importer struct {
	repo   storage.Repository
	cfg    *config.Config
	logger *slog.Logger
}

// NewImporter creates an importer
func NewImporter(repo storage.Repository, cfg *config.Config, logger *slog.Logger) *Importer {
	return &Importer{repo: repo, cfg: cfg, logger: logger}
}

// CreateImport parses an uploaded statement and registers it with all rows
// pending. The import is rejected when the same rows were already imported,
// even from a file saved under another name or format.
func (im *Importer) CreateImport(fileName string, content []byte, submittedBy string) (*storage.Import, error) {
	opts := parser.Options{Filter: parser.TransactionFilter(im.cfg.Import.TransactionFilter)}
	result, err := parser.Parse(bytes.NewReader(content), fileName, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", fileName, err)
	}
	if len(result.Rows) == 0 {
		return nil, fmt.Errorf("%s has no usable transactions", fileName)
	}

	hash := contentHash(result.Rows)
	if existing, err := im.repo.FindImportByHash(hash); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, &ErrDuplicateImport{ExistingID: existing.ID}
	}

	imp := &storage.Import{
		ID:           uuid.NewString(),
		FileName:     fileName,
		FileHash:     hash,
		BankFormat:   result.Format,
		Status:       storage.ImportStatusPending,
		TotalRows:    len(result.Rows),
		TotalCredits: result.TotalCredits,
		DateFrom:     result.DateFrom,
		DateTo:       result.DateTo,
		SubmittedBy:  submittedBy,
	}
	if err := im.repo.CreateImport(imp); err != nil {
		return nil, err
	}

	rows := make([]*storage.ImportRow, 0, len(result.Rows))
	for _, parsed := range result.Rows {
		rows = append(rows, &storage.ImportRow{
			ID:              uuid.NewString(),
			ImportID:        imp.ID,
			RowNumber:       parsed.RowNumber,
			TransactionDate: parsed.TransactionDate,
			Description:     parsed.Description,
			Amount:          parsed.Amount,
			Reference:       parsed.Reference,
			Status:          storage.RowStatusPending,
		})
	}
	if err := im.repo.SaveRows(rows); err != nil {
		return nil, err
	}

	im.logger.Info("import created",
		"import_id", imp.ID,
		"file", fileName,
		"format", result.Format,
		"rows", len(rows),
		"parse_errors", len(result.Errors),
	)
	return imp, nil
}

// contentHash fingerprints the statement by its transaction data rather than
// the file bytes, so re-exports of the same statement are caught. Rows are
// sorted so row order does not change the hash.
func contentHash(rows []parser.ParsedRow) string {
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, strings.Join([]string{
			row.TransactionDate.Format("2006-01-02"),
			row.Amount.String(),
			strings.ToLower(strings.Join(strings.Fields(row.Description), " ")),
			row.Reference,
		}, "|"))
	}
	sort.Strings(lines)

	h := sha256.New()
	for _, line := range lines {
		h.Write([]byte(line))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// MatchSummary reports the outcome of a matching run.
type MatchSummary struct {
	TotalRows int `json:"total_rows"`
	Matched   int `json:"matched"`
	Unmatched int `json:"unmatched"`
}

// MatchRows matches every pending or unmatched row of an import against the
// current residents, aliases and houses. Safe to re-run after registering a
// new alias or resident.
func (im *Importer) MatchRows(ctx context.Context, importID string) (*MatchSummary, error) {
	imp, err := im.repo.GetImport(importID)
	if err != nil {
		return nil, err
	}
	switch imp.Status {
	case storage.ImportStatusCompleted, storage.ImportStatusRejected, storage.ImportStatusProcessing:
		return nil, fmt.Errorf("import %s cannot be matched in status %s", importID, imp.Status)
	}

	m, err := im.buildMatcher()
	if err != nil {
		return nil, err
	}

	summary := &MatchSummary{}
	for _, status := range []string{storage.RowStatusPending, storage.RowStatusUnmatched} {
		rows, err := im.collectRows(importID, status)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if err := im.matchRow(m, row); err != nil {
				return nil, err
			}
			summary.TotalRows++
			if row.Status == storage.RowStatusMatched {
				summary.Matched++
			} else {
				summary.Unmatched++
			}
		}
	}

	if err := im.refreshImportCounts(imp); err != nil {
		return nil, err
	}

	im.logger.Info("import matched",
		"import_id", importID,
		"rows", summary.TotalRows,
		"matched", summary.Matched,
		"unmatched", summary.Unmatched,
	)
	return summary, nil
}

// matchRow runs the matcher on one row and persists the outcome. High and
// medium confidence hits become matched; low hits keep their candidates for
// manual review but stay unmatched.
func (im *Importer) matchRow(m *matcher.Matcher, row *storage.ImportRow) error {
	result := m.Match(matcher.MatchInput{
		Description: row.Description,
		Amount:      row.Amount,
		Date:        row.TransactionDate,
		Reference:   row.Reference,
	})

	row.MatchConfidence = string(result.Confidence)
	row.MatchScore = result.Score
	if len(result.AllMatches) > 0 {
		candidates, err := json.Marshal(result.AllMatches)
		if err != nil {
			return err
		}
		row.CandidatesJSON = string(candidates)
	} else {
		row.CandidatesJSON = ""
	}

	switch result.Confidence {
	case matcher.ConfidenceHigh, matcher.ConfidenceMedium:
		row.Status = storage.RowStatusMatched
		row.ResidentID = result.ResidentID
		row.HouseID = result.HouseID
		row.MatchMethod = string(result.Method)
		row.MatchedValue = result.MatchedValue
	default:
		row.Status = storage.RowStatusUnmatched
		row.ResidentID = ""
		row.HouseID = ""
		row.MatchMethod = ""
		row.MatchedValue = ""
	}

	return im.repo.UpdateRow(row)
}

// buildMatcher snapshots residents, aliases and houses into a matcher.
func (im *Importer) buildMatcher() (*matcher.Matcher, error) {
	residents, err := im.repo.ListResidents(true)
	if err != nil {
		return nil, err
	}
	aliases, err := im.repo.ListAliases("")
	if err != nil {
		return nil, err
	}
	houses, err := im.repo.ListHouses()
	if err != nil {
		return nil, err
	}

	residentData := make([]matcher.ResidentMatchData, 0, len(residents))
	for _, r := range residents {
		residentData = append(residentData, matcher.ResidentMatchData{
			ID:        r.ID,
			FirstName: r.FirstName,
			LastName:  r.LastName,
			Code:      r.Code,
			Phones:    r.Phones,
			HouseIDs:  r.HouseIDs,
		})
	}
	aliasData := make([]matcher.AliasMatchData, 0, len(aliases))
	for _, a := range aliases {
		aliasData = append(aliasData, matcher.AliasMatchData{
			ID:         a.ID,
			AliasName:  a.AliasName,
			ResidentID: a.ResidentID,
		})
	}
	houseData := make([]matcher.HouseMatchData, 0, len(houses))
	for _, h := range houses {
		houseData = append(houseData, matcher.HouseMatchData{
			ID:          h.ID,
			HouseNumber: h.HouseNumber,
			StreetName:  h.StreetName,
			ResidentIDs: h.ResidentIDs,
		})
	}

	return matcher.NewMatcher(residentData, aliasData, houseData, im.matcherConfig()), nil
}

func (im *Importer) matcherConfig() matcher.Config {
	mc := im.cfg.Matcher
	return matcher.Config{
		MinScore:            mc.MinScore,
		ConfidentScore:      mc.ConfidentScore,
		MediumScore:         mc.MediumScore,
		TieMargin:           mc.TieMargin,
		MaxCandidates:       mc.MaxCandidates,
		EnablePhoneMatching: !mc.DisablePhoneMatching,
		EnableHouseMatching: !mc.DisableHouseMatching,
	}
}

// collectRows pages through all rows of an import with the given status.
func (im *Importer) collectRows(importID, status string) ([]*storage.ImportRow, error) {
	const pageSize = 200
	var all []*storage.ImportRow
	for offset := 0; ; offset += pageSize {
		page, _, err := im.repo.ListRows(importID, storage.RowFilters{
			Status: status,
			Limit:  pageSize,
			Offset: offset,
		})
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < pageSize {
			return all, nil
		}
	}
}

// refreshImportCounts recomputes the per-status row counts on the import.
func (im *Importer) refreshImportCounts(imp *storage.Import) error {
	counts := map[string]*int{
		storage.RowStatusMatched:   &imp.MatchedRows,
		storage.RowStatusUnmatched: &imp.UnmatchedRows,
		storage.RowStatusDuplicate: &imp.DuplicateRows,
		storage.RowStatusCreated:   &imp.CreatedRows,
		storage.RowStatusSkipped:   &imp.SkippedRows,
		storage.RowStatusError:     &imp.ErrorRows,
	}
	for status, dest := range counts {
		_, total, err := im.repo.ListRows(imp.ID, storage.RowFilters{Status: status, Limit: 1})
		if err != nil {
			return err
		}
		*dest = total
	}
	return im.repo.UpdateImport(imp)
}
