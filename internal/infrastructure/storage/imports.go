package storage

import (
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
)

// CreateImport inserts a new import record
func (s *Storage) CreateImport(imp *Import) error {
	_, err := s.db.Exec(`
		INSERT INTO statement_imports
		(id, file_name, file_hash, bank_format, status, total_rows,
		 total_credits, date_from, date_to, submitted_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		imp.ID,
		imp.FileName,
		imp.FileHash,
		imp.BankFormat,
		imp.Status,
		imp.TotalRows,
		imp.TotalCredits.String(),
		imp.DateFrom,
		imp.DateTo,
		imp.SubmittedBy,
	)
	return err
}

// GetImport retrieves an import by ID
func (s *Storage) GetImport(id string) (*Import, error) {
	return s.scanImport(s.db.QueryRow(importSelect+` WHERE id = ?`, id))
}

// FindImportByHash finds a non-failed import with the same file hash
func (s *Storage) FindImportByHash(hash string) (*Import, error) {
	imp, err := s.scanImport(s.db.QueryRow(
		importSelect+` WHERE file_hash = ? AND status NOT IN ('failed', 'rejected') ORDER BY created_at DESC LIMIT 1`,
		hash,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return imp, err
}

// ListImports returns imports, newest first
func (s *Storage) ListImports(limit, offset int) ([]*Import, int, error) {
	if limit <= 0 {
		limit = 50
	}

	var total int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM statement_imports`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.Query(importSelect+` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = rows.Close() }()

	var imports []*Import
	for rows.Next() {
		imp, err := s.scanImport(rows)
		if err != nil {
			return nil, 0, err
		}
		imports = append(imports, imp)
	}
	return imports, total, rows.Err()
}

// UpdateImport persists mutable import fields (status, counts, review)
func (s *Storage) UpdateImport(imp *Import) error {
	result, err := s.db.Exec(`
		UPDATE statement_imports SET
			status = ?,
			total_rows = ?,
			matched_rows = ?,
			unmatched_rows = ?,
			duplicate_rows = ?,
			created_rows = ?,
			skipped_rows = ?,
			error_rows = ?,
			error_message = ?,
			reviewed_by = ?,
			review_note = ?,
			completed_at = ?
		WHERE id = ?
	`,
		imp.Status,
		imp.TotalRows,
		imp.MatchedRows,
		imp.UnmatchedRows,
		imp.DuplicateRows,
		imp.CreatedRows,
		imp.SkippedRows,
		imp.ErrorRows,
		imp.ErrorMessage,
		imp.ReviewedBy,
		imp.ReviewNote,
		imp.CompletedAt,
		imp.ID,
	)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

const importSelect = `
	SELECT id, file_name, file_hash, bank_format, status, total_rows,
	       matched_rows, unmatched_rows, duplicate_rows, created_rows,
	       skipped_rows, error_rows, total_credits, date_from, date_to,
	       error_message, submitted_by, reviewed_by, review_note,
	       created_at, completed_at
	FROM statement_imports`

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Storage) scanImport(r rowScanner) (*Import, error) {
	imp := &Import{}
	var totalCredits string
	var dateFrom, dateTo, completedAt sql.NullTime
	err := r.Scan(
		&imp.ID,
		&imp.FileName,
		&imp.FileHash,
		&imp.BankFormat,
		&imp.Status,
		&imp.TotalRows,
		&imp.MatchedRows,
		&imp.UnmatchedRows,
		&imp.DuplicateRows,
		&imp.CreatedRows,
		&imp.SkippedRows,
		&imp.ErrorRows,
		&totalCredits,
		&dateFrom,
		&dateTo,
		&imp.ErrorMessage,
		&imp.SubmittedBy,
		&imp.ReviewedBy,
		&imp.ReviewNote,
		&imp.CreatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	imp.TotalCredits, err = decimal.NewFromString(totalCredits)
	if err != nil {
		return nil, fmt.Errorf("bad total_credits for import %s: %w", imp.ID, err)
	}
	if dateFrom.Valid {
		imp.DateFrom = dateFrom.Time
	}
	if dateTo.Valid {
		imp.DateTo = dateTo.Time
	}
	if completedAt.Valid {
		imp.CompletedAt = &completedAt.Time
	}
	return imp, nil
}

// SaveRows bulk-inserts rows for an import
func (s *Storage) SaveRows(rows []*ImportRow) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
		INSERT INTO statement_rows
		(id, import_id, row_number, transaction_date, description, amount,
		 reference, status, resident_id, house_id, match_confidence,
		 match_method, matched_value, match_score, candidates_json, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, row := range rows {
		_, err := stmt.Exec(
			row.ID,
			row.ImportID,
			row.RowNumber,
			row.TransactionDate,
			row.Description,
			row.Amount.String(),
			row.Reference,
			row.Status,
			row.ResidentID,
			row.HouseID,
			row.MatchConfidence,
			row.MatchMethod,
			row.MatchedValue,
			row.MatchScore,
			row.CandidatesJSON,
			row.ErrorMessage,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetRow retrieves a single row
func (s *Storage) GetRow(id string) (*ImportRow, error) {
	return s.scanRow(s.db.QueryRow(rowSelect+` WHERE id = ?`, id))
}

// ListRows returns rows of an import matching the filters
func (s *Storage) ListRows(importID string, filters RowFilters) ([]*ImportRow, int, error) {
	limit := filters.Limit
	if limit <= 0 {
		limit = 100
	}

	countQuery := `SELECT COUNT(*) FROM statement_rows WHERE import_id = ?`
	args := []any{importID}
	if filters.Status != "" {
		countQuery += ` AND status = ?`
		args = append(args, filters.Status)
	}
	var total int
	if err := s.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := rowSelect + ` WHERE import_id = ?`
	args = []any{importID}
	if filters.Status != "" {
		query += ` AND status = ?`
		args = append(args, filters.Status)
	}
	query += ` ORDER BY row_number LIMIT ? OFFSET ?`
	args = append(args, limit, filters.Offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = rows.Close() }()

	var result []*ImportRow
	for rows.Next() {
		row, err := s.scanRow(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, row)
	}
	return result, total, rows.Err()
}

// UpdateRow persists a row's match state and status
func (s *Storage) UpdateRow(row *ImportRow) error {
	result, err := s.db.Exec(`
		UPDATE statement_rows SET
			status = ?,
			resident_id = ?,
			house_id = ?,
			match_confidence = ?,
			match_method = ?,
			matched_value = ?,
			match_score = ?,
			candidates_json = ?,
			error_message = ?
		WHERE id = ?
	`,
		row.Status,
		row.ResidentID,
		row.HouseID,
		row.MatchConfidence,
		row.MatchMethod,
		row.MatchedValue,
		row.MatchScore,
		row.CandidatesJSON,
		row.ErrorMessage,
		row.ID,
	)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

const rowSelect = `
	SELECT id, import_id, row_number, transaction_date, description, amount,
	       reference, status, resident_id, house_id, match_confidence,
	       match_method, matched_value, match_score, candidates_json, error_message
	FROM statement_rows`

func (s *Storage) scanRow(r rowScanner) (*ImportRow, error) {
	row := &ImportRow{}
	var amount string
	err := r.Scan(
		&row.ID,
		&row.ImportID,
		&row.RowNumber,
		&row.TransactionDate,
		&row.Description,
		&amount,
		&row.Reference,
		&row.Status,
		&row.ResidentID,
		&row.HouseID,
		&row.MatchConfidence,
		&row.MatchMethod,
		&row.MatchedValue,
		&row.MatchScore,
		&row.CandidatesJSON,
		&row.ErrorMessage,
	)
	if err != nil {
		return nil, err
	}

	row.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("bad amount for row %s: %w", row.ID, err)
	}
	return row, nil
}
