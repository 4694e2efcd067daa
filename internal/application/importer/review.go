package importer

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/estateops/estate-backend/internal/domain/matcher"
	"github.com/estateops/estate-backend/internal/infrastructure/storage"
)

// ManualMatch assigns a row to a resident picked by a reviewer. With
// saveAsAlias, the sender name from the narration is registered so the next
// statement matches automatically.
func (im *Importer) ManualMatch(rowID, residentID, houseID string, saveAsAlias bool) (*storage.ImportRow, error) {
	row, err := im.repo.GetRow(rowID)
	if err != nil {
		return nil, err
	}
	if row.Status == storage.RowStatusCreated {
		return nil, fmt.Errorf("row %s already has a payment record", rowID)
	}

	resident, err := im.repo.GetResident(residentID)
	if err != nil {
		return nil, fmt.Errorf("resident %s not found: %w", residentID, err)
	}
	if houseID == "" && len(resident.HouseIDs) == 1 {
		houseID = resident.HouseIDs[0]
	}

	row.Status = storage.RowStatusMatched
	row.ResidentID = residentID
	row.HouseID = houseID
	row.MatchConfidence = string(matcher.ConfidenceManual)
	row.MatchMethod = string(matcher.MethodManual)
	row.MatchedValue = resident.FirstName + " " + resident.LastName
	row.MatchScore = 1.0
	row.ErrorMessage = ""
	if err := im.repo.UpdateRow(row); err != nil {
		return nil, err
	}

	if saveAsAlias {
		if err := im.saveSenderAlias(residentID, row.Description); err != nil {
			im.logger.Warn("failed to save alias from manual match", "row_id", rowID, "error", err)
		}
	}

	if err := im.refreshCountsForRow(row); err != nil {
		return nil, err
	}
	return row, nil
}

// saveSenderAlias registers the narration's sender name as an alias unless an
// equivalent one already exists.
func (im *Importer) saveSenderAlias(residentID, description string) error {
	senderName := matcher.ExtractSenderName(description)
	if senderName == "" {
		return fmt.Errorf("no sender name found in narration")
	}

	existing, err := im.repo.ListAliases(residentID)
	if err != nil {
		return err
	}
	for _, alias := range existing {
		if strings.EqualFold(alias.AliasName, senderName) {
			return nil
		}
	}

	err = im.repo.SaveAlias(&storage.PaymentAlias{
		ID:         uuid.NewString(),
		ResidentID: residentID,
		AliasName:  senderName,
	})
	if err != nil {
		return err
	}
	im.logger.Info("alias created from manual match", "resident_id", residentID, "alias", senderName)
	return nil
}

// Unmatch clears a row's match so it goes back to manual review.
func (im *Importer) Unmatch(rowID string) (*storage.ImportRow, error) {
	row, err := im.repo.GetRow(rowID)
	if err != nil {
		return nil, err
	}
	if row.Status == storage.RowStatusCreated {
		return nil, fmt.Errorf("row %s already has a payment record", rowID)
	}

	row.Status = storage.RowStatusUnmatched
	row.ResidentID = ""
	row.HouseID = ""
	row.MatchConfidence = ""
	row.MatchMethod = ""
	row.MatchedValue = ""
	row.MatchScore = 0
	if err := im.repo.UpdateRow(row); err != nil {
		return nil, err
	}
	if err := im.refreshCountsForRow(row); err != nil {
		return nil, err
	}
	return row, nil
}

// Skip excludes a row from processing.
func (im *Importer) Skip(rowID string) (*storage.ImportRow, error) {
	row, err := im.repo.GetRow(rowID)
	if err != nil {
		return nil, err
	}
	if row.Status == storage.RowStatusCreated {
		return nil, fmt.Errorf("row %s already has a payment record", rowID)
	}

	row.Status = storage.RowStatusSkipped
	if err := im.repo.UpdateRow(row); err != nil {
		return nil, err
	}
	if err := im.refreshCountsForRow(row); err != nil {
		return nil, err
	}
	return row, nil
}

// BatchUpdateRowStatus moves every row of an import from one status to
// another, e.g. skipping all unmatched rows at once.
func (im *Importer) BatchUpdateRowStatus(importID, fromStatus, toStatus string) (int, error) {
	if !validRowTransition(fromStatus, toStatus) {
		return 0, fmt.Errorf("cannot move rows from %s to %s", fromStatus, toStatus)
	}

	rows, err := im.collectRows(importID, fromStatus)
	if err != nil {
		return 0, err
	}
	for _, row := range rows {
		row.Status = toStatus
		if err := im.repo.UpdateRow(row); err != nil {
			return 0, err
		}
	}

	imp, err := im.repo.GetImport(importID)
	if err != nil {
		return 0, err
	}
	if err := im.refreshImportCounts(imp); err != nil {
		return 0, err
	}
	return len(rows), nil
}

func validRowTransition(from, to string) bool {
	if from == storage.RowStatusCreated || to == storage.RowStatusCreated {
		return false
	}
	switch to {
	case storage.RowStatusSkipped, storage.RowStatusUnmatched, storage.RowStatusPending:
		return from != to
	default:
		return false
	}
}

func (im *Importer) refreshCountsForRow(row *storage.ImportRow) error {
	imp, err := im.repo.GetImport(row.ImportID)
	if err != nil {
		return err
	}
	return im.refreshImportCounts(imp)
}
