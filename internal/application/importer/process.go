package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/estateops/estate-backend/internal/infrastructure/storage"
)

// SubmitForApproval moves a matched import into the approval queue.
func (im *Importer) SubmitForApproval(importID, submittedBy string) (*storage.Import, error) {
	imp, err := im.repo.GetImport(importID)
	if err != nil {
		return nil, err
	}
	if imp.Status != storage.ImportStatusPending {
		return nil, fmt.Errorf("import %s cannot be submitted in status %s", importID, imp.Status)
	}
	if imp.MatchedRows == 0 {
		return nil, fmt.Errorf("import %s has no matched rows to submit", importID)
	}

	imp.Status = storage.ImportStatusAwaitingApproval
	if submittedBy != "" {
		imp.SubmittedBy = submittedBy
	}
	if err := im.repo.UpdateImport(imp); err != nil {
		return nil, err
	}
	im.logger.Info("import submitted for approval", "import_id", importID, "matched_rows", imp.MatchedRows)
	return imp, nil
}

// Approve marks an awaiting import as approved for processing.
func (im *Importer) Approve(importID, reviewedBy, note string) (*storage.Import, error) {
	return im.review(importID, reviewedBy, note, storage.ImportStatusApproved)
}

// Reject declines an awaiting import. Rejected imports are terminal.
func (im *Importer) Reject(importID, reviewedBy, note string) (*storage.Import, error) {
	return im.review(importID, reviewedBy, note, storage.ImportStatusRejected)
}

func (im *Importer) review(importID, reviewedBy, note, status string) (*storage.Import, error) {
	imp, err := im.repo.GetImport(importID)
	if err != nil {
		return nil, err
	}
	if imp.Status != storage.ImportStatusAwaitingApproval {
		return nil, fmt.Errorf("import %s cannot be reviewed in status %s", importID, imp.Status)
	}

	imp.Status = status
	imp.ReviewedBy = reviewedBy
	imp.ReviewNote = note
	if err := im.repo.UpdateImport(imp); err != nil {
		return nil, err
	}
	im.logger.Info("import reviewed", "import_id", importID, "status", status, "reviewed_by", reviewedBy)
	return imp, nil
}

// ProcessOptions controls payment creation for an import.
type ProcessOptions struct {
	// Atomic refuses to create any payments if any matched row would fail;
	// otherwise rows fail individually.
	Atomic bool
	// SkipDuplicates marks duplicate rows as such instead of failing them.
	SkipDuplicates bool
	// SkipUnmatched marks unmatched rows skipped instead of failing the import.
	SkipUnmatched bool
}

// ProcessResult reports what ProcessImport did.
type ProcessResult struct {
	Created    int `json:"created"`
	Duplicates int `json:"duplicates"`
	Skipped    int `json:"skipped"`
	Errors     int `json:"errors"`
}

// ProcessImport creates payment records from the matched rows of an approved
// import. When approval is not required, pending imports process directly.
func (im *Importer) ProcessImport(ctx context.Context, importID string, opts ProcessOptions) (*ProcessResult, error) {
	imp, err := im.repo.GetImport(importID)
	if err != nil {
		return nil, err
	}

	allowed := imp.Status == storage.ImportStatusApproved
	if !im.cfg.Import.RequireApproval {
		allowed = allowed || imp.Status == storage.ImportStatusPending
	}
	if !allowed {
		return nil, fmt.Errorf("import %s cannot be processed in status %s", importID, imp.Status)
	}

	imp.Status = storage.ImportStatusProcessing
	if err := im.repo.UpdateImport(imp); err != nil {
		return nil, err
	}

	result, err := im.processRows(ctx, imp, opts)
	if err != nil {
		imp.Status = storage.ImportStatusFailed
		imp.ErrorMessage = err.Error()
		if countErr := im.refreshImportCounts(imp); countErr != nil {
			im.logger.Error("failed to record import failure", "import_id", importID, "error", countErr)
		}
		return nil, err
	}

	now := time.Now()
	imp.Status = storage.ImportStatusCompleted
	imp.CompletedAt = &now
	imp.ErrorMessage = ""
	if err := im.refreshImportCounts(imp); err != nil {
		return nil, err
	}

	im.logger.Info("import processed",
		"import_id", importID,
		"created", result.Created,
		"duplicates", result.Duplicates,
		"skipped", result.Skipped,
		"errors", result.Errors,
	)
	return result, nil
}

func (im *Importer) processRows(ctx context.Context, imp *storage.Import, opts ProcessOptions) (*ProcessResult, error) {
	matched, err := im.collectRows(imp.ID, storage.RowStatusMatched)
	if err != nil {
		return nil, err
	}
	unmatched, err := im.collectRows(imp.ID, storage.RowStatusUnmatched)
	if err != nil {
		return nil, err
	}

	if len(unmatched) > 0 && !opts.SkipUnmatched {
		return nil, fmt.Errorf("import %s has %d unmatched rows", imp.ID, len(unmatched))
	}

	// Atomic mode validates every row before any payment is written.
	if opts.Atomic {
		for _, row := range matched {
			duplicate, err := im.findDuplicate(row)
			if err != nil {
				return nil, err
			}
			if duplicate != nil && !opts.SkipDuplicates {
				return nil, fmt.Errorf("row %d duplicates payment %s", row.RowNumber, duplicate.ID)
			}
		}
	}

	result := &ProcessResult{}
	for _, row := range unmatched {
		row.Status = storage.RowStatusSkipped
		if err := im.repo.UpdateRow(row); err != nil {
			return nil, err
		}
		result.Skipped++
	}

	for _, row := range matched {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		duplicate, err := im.findDuplicate(row)
		if err != nil {
			return nil, err
		}
		if duplicate != nil {
			if !opts.SkipDuplicates && !opts.Atomic {
				row.Status = storage.RowStatusError
				row.ErrorMessage = fmt.Sprintf("duplicates payment %s", duplicate.ID)
				if err := im.repo.UpdateRow(row); err != nil {
					return nil, err
				}
				result.Errors++
				continue
			}
			row.Status = storage.RowStatusDuplicate
			row.ErrorMessage = ""
			if err := im.repo.UpdateRow(row); err != nil {
				return nil, err
			}
			result.Duplicates++
			continue
		}

		payment := &storage.PaymentRecord{
			ID:          uuid.NewString(),
			ResidentID:  row.ResidentID,
			HouseID:     row.HouseID,
			ImportID:    row.ImportID,
			RowID:       row.ID,
			Amount:      row.Amount,
			PaymentDate: row.TransactionDate,
			Description: row.Description,
			Reference:   row.Reference,
		}
		if err := im.repo.SavePayment(payment); err != nil {
			if opts.Atomic {
				return nil, fmt.Errorf("failed to save payment for row %d: %w", row.RowNumber, err)
			}
			row.Status = storage.RowStatusError
			row.ErrorMessage = err.Error()
			if updateErr := im.repo.UpdateRow(row); updateErr != nil {
				return nil, updateErr
			}
			result.Errors++
			continue
		}

		row.Status = storage.RowStatusCreated
		row.ErrorMessage = ""
		if err := im.repo.UpdateRow(row); err != nil {
			return nil, err
		}
		result.Created++
	}

	return result, nil
}

func (im *Importer) findDuplicate(row *storage.ImportRow) (*storage.PaymentRecord, error) {
	return im.repo.FindDuplicatePayment(
		row.Reference,
		row.Amount.String(),
		row.TransactionDate,
		im.cfg.Import.DuplicateToleranceDays,
	)
}
