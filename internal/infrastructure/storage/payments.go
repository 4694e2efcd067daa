package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// SavePayment inserts a payment record
func (s *Storage) SavePayment(payment *PaymentRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO payment_records
		(id, resident_id, house_id, import_id, row_id, amount, payment_date, description, reference)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		payment.ID,
		payment.ResidentID,
		payment.HouseID,
		payment.ImportID,
		payment.RowID,
		payment.Amount.String(),
		payment.PaymentDate,
		payment.Description,
		payment.Reference,
	)
	return err
}

// FindDuplicatePayment looks for an existing payment with the same reference,
// or with the same amount dated within toleranceDays.
func (s *Storage) FindDuplicatePayment(reference string, amount string, date time.Time, toleranceDays int) (*PaymentRecord, error) {
	if reference != "" {
		payment, err := s.scanPayment(s.db.QueryRow(paymentSelect+` WHERE reference = ? LIMIT 1`, reference))
		if err != nil && err != sql.ErrNoRows {
			return nil, err
		}
		if payment != nil {
			return payment, nil
		}
	}

	from := date.AddDate(0, 0, -toleranceDays)
	to := date.AddDate(0, 0, toleranceDays)
	payment, err := s.scanPayment(s.db.QueryRow(
		paymentSelect+` WHERE amount = ? AND payment_date BETWEEN ? AND ? LIMIT 1`,
		amount, from, to,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// ListPaymentsForResident returns a resident's payments, newest first
func (s *Storage) ListPaymentsForResident(residentID string, limit int) ([]*PaymentRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(
		paymentSelect+` WHERE resident_id = ? ORDER BY payment_date DESC, created_at DESC LIMIT ?`,
		residentID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var payments []*PaymentRecord
	for rows.Next() {
		payment, err := s.scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}
	return payments, rows.Err()
}

// GetPaymentStats returns aggregate payment statistics
func (s *Storage) GetPaymentStats() (*PaymentStats, error) {
	stats := &PaymentStats{}

	var totalAmount sql.NullFloat64
	// MAX() loses the column's declared type, so the driver hands back a
	// string instead of a time.Time.
	var lastPayment sql.NullString
	err := s.db.QueryRow(`
		SELECT
			COUNT(*) as total,
			COALESCE(SUM(CAST(amount AS REAL)), 0) as total_amount,
			COUNT(DISTINCT import_id) as import_count,
			COUNT(DISTINCT resident_id) as resident_count,
			MAX(payment_date) as last_payment
		FROM payment_records
	`).Scan(
		&stats.TotalPayments,
		&totalAmount,
		&stats.ImportCount,
		&stats.ResidentCount,
		&lastPayment,
	)
	if err != nil {
		return nil, err
	}

	if totalAmount.Valid {
		stats.TotalAmount = decimal.NewFromFloat(totalAmount.Float64)
	}
	if stats.TotalPayments > 0 {
		stats.AverageAmount = stats.TotalAmount.DivRound(decimal.NewFromInt(int64(stats.TotalPayments)), 2)
	}
	if lastPayment.Valid {
		if t, err := parseStoredTime(lastPayment.String); err == nil {
			stats.LastPaymentAt = &t
		}
	}
	return stats, nil
}

// parseStoredTime parses the text forms go-sqlite3 writes timestamps in.
func parseStoredTime(s string) (time.Time, error) {
	layouts := []string{
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05Z07:00",
	}
	var lastErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

const paymentSelect = `
	SELECT id, resident_id, house_id, import_id, row_id, amount,
	       payment_date, description, reference, created_at
	FROM payment_records`

func (s *Storage) scanPayment(r rowScanner) (*PaymentRecord, error) {
	payment := &PaymentRecord{}
	var amount string
	err := r.Scan(
		&payment.ID,
		&payment.ResidentID,
		&payment.HouseID,
		&payment.ImportID,
		&payment.RowID,
		&amount,
		&payment.PaymentDate,
		&payment.Description,
		&payment.Reference,
		&payment.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	payment.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("bad amount for payment %s: %w", payment.ID, err)
	}
	return payment, nil
}
