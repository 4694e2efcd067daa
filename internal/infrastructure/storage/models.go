package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// Import lifecycle statuses.
const (
	ImportStatusPending          = "pending"
	ImportStatusProcessing       = "processing"
	ImportStatusAwaitingApproval = "awaiting_approval"
	ImportStatusApproved         = "approved"
	ImportStatusCompleted        = "completed"
	ImportStatusFailed           = "failed"
	ImportStatusRejected         = "rejected"
)

// Import row statuses.
const (
	RowStatusPending   = "pending"
	RowStatusMatched   = "matched"
	RowStatusUnmatched = "unmatched"
	RowStatusDuplicate = "duplicate"
	RowStatusCreated   = "created"
	RowStatusSkipped   = "skipped"
	RowStatusError     = "error"
)

// Resident is a person registered in the estate.
type Resident struct {
	ID        string    `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Code      string    `json:"code"`
	Email     string    `json:"email,omitempty"`
	Phones    []string  `json:"phones"`
	HouseIDs  []string  `json:"house_ids"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// PaymentAlias is a registered sender name that maps straight to a resident,
// e.g. a spouse's account name or a business name payments arrive under.
type PaymentAlias struct {
	ID         string    `json:"id"`
	ResidentID string    `json:"resident_id"`
	AliasName  string    `json:"alias_name"`
	CreatedAt  time.Time `json:"created_at"`
}

// House is a unit in the estate.
type House struct {
	ID          string   `json:"id"`
	HouseNumber string   `json:"house_number"`
	StreetName  string   `json:"street_name"`
	ResidentIDs []string `json:"resident_ids"`
}

// Import is one uploaded bank statement file.
type Import struct {
	ID             string          `json:"id"`
	FileName       string          `json:"file_name"`
	FileHash       string          `json:"file_hash"`
	BankFormat     string          `json:"bank_format"`
	Status         string          `json:"status"`
	TotalRows      int             `json:"total_rows"`
	MatchedRows    int             `json:"matched_rows"`
	UnmatchedRows  int             `json:"unmatched_rows"`
	DuplicateRows  int             `json:"duplicate_rows"`
	CreatedRows    int             `json:"created_rows"`
	SkippedRows    int             `json:"skipped_rows"`
	ErrorRows      int             `json:"error_rows"`
	TotalCredits   decimal.Decimal `json:"total_credits"`
	DateFrom       time.Time       `json:"date_from"`
	DateTo         time.Time       `json:"date_to"`
	ErrorMessage   string          `json:"error_message,omitempty"`
	SubmittedBy    string          `json:"submitted_by,omitempty"`
	ReviewedBy     string          `json:"reviewed_by,omitempty"`
	ReviewNote     string          `json:"review_note,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
}

// ImportRow is one transaction from a statement, with its match state.
type ImportRow struct {
	ID              string          `json:"id"`
	ImportID        string          `json:"import_id"`
	RowNumber       int             `json:"row_number"`
	TransactionDate time.Time       `json:"transaction_date"`
	Description     string          `json:"description"`
	Amount          decimal.Decimal `json:"amount"`
	Reference       string          `json:"reference,omitempty"`
	Status          string          `json:"status"`

	// Match outcome
	ResidentID      string  `json:"resident_id,omitempty"`
	HouseID         string  `json:"house_id,omitempty"`
	MatchConfidence string  `json:"match_confidence,omitempty"`
	MatchMethod     string  `json:"match_method,omitempty"`
	MatchedValue    string  `json:"matched_value,omitempty"`
	MatchScore      float64 `json:"match_score,omitempty"`
	CandidatesJSON  string  `json:"-"`

	ErrorMessage string `json:"error_message,omitempty"`
}

// PaymentRecord is a confirmed payment created from an import row.
type PaymentRecord struct {
	ID          string          `json:"id"`
	ResidentID  string          `json:"resident_id"`
	HouseID     string          `json:"house_id,omitempty"`
	ImportID    string          `json:"import_id,omitempty"`
	RowID       string          `json:"row_id,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate time.Time       `json:"payment_date"`
	Description string          `json:"description"`
	Reference   string          `json:"reference,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// PaymentStats summarizes recorded payments.
type PaymentStats struct {
	TotalPayments  int             `json:"total_payments"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	AverageAmount  decimal.Decimal `json:"average_amount"`
	ImportCount    int             `json:"import_count"`
	ResidentCount  int             `json:"resident_count"`
	LastPaymentAt  *time.Time      `json:"last_payment_at,omitempty"`
}
