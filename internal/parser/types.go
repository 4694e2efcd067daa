// Package parser turns uploaded bank statement files (CSV or XLSX) into
// normalized transaction rows. It detects the header row, maps columns per
// bank format, and filters to the transaction types the caller wants.
package parser

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies a statement row by money direction.
type TransactionType string

const (
	TypeCredit TransactionType = "credit"
	TypeDebit  TransactionType = "debit"
)

// TransactionFilter selects which rows Parse keeps.
type TransactionFilter string

const (
	FilterAll        TransactionFilter = "all"
	FilterCreditOnly TransactionFilter = "credit_only"
	FilterDebitOnly  TransactionFilter = "debit_only"
)

// ColumnMapping holds zero-based column indexes into the statement grid.
// -1 means the column is absent. Either Amount or at least one of
// Credit/Debit must be set.
type ColumnMapping struct {
	Date        int `json:"date"`
	Description int `json:"description"`
	Credit      int `json:"credit"`
	Debit       int `json:"debit"`
	Amount      int `json:"amount"`
	Reference   int `json:"reference"`
	Balance     int `json:"balance"`
}

func emptyMapping() ColumnMapping {
	return ColumnMapping{Date: -1, Description: -1, Credit: -1, Debit: -1, Amount: -1, Reference: -1, Balance: -1}
}

// Valid reports whether the mapping covers the minimum columns needed to
// produce transactions.
func (c ColumnMapping) Valid() bool {
	if c.Date < 0 || c.Description < 0 {
		return false
	}
	return c.Amount >= 0 || c.Credit >= 0 || c.Debit >= 0
}

// ParsedRow is one transaction extracted from a statement file.
type ParsedRow struct {
	RowNumber       int               `json:"row_number"` // 1-based position in the source file
	TransactionDate time.Time         `json:"transaction_date"`
	Description     string            `json:"description"`
	Amount          decimal.Decimal   `json:"amount"`
	Type            TransactionType   `json:"type"`
	Reference       string            `json:"reference,omitempty"`
	Balance         *decimal.Decimal  `json:"balance,omitempty"`
	RawData         []string          `json:"raw_data,omitempty"`
}

// ParseResult is the outcome of parsing one statement file.
type ParseResult struct {
	Rows            []ParsedRow     `json:"rows"`
	Format          string          `json:"format"`
	HeaderRowIndex  int             `json:"header_row_index"`
	DetectedColumns ColumnMapping   `json:"detected_columns"`
	TotalCredits    decimal.Decimal `json:"total_credits"`
	TotalDebits     decimal.Decimal `json:"total_debits"`
	DateFrom        time.Time       `json:"date_from"`
	DateTo          time.Time       `json:"date_to"`
	SkippedRows     int             `json:"skipped_rows"`
	Errors          []RowError      `json:"errors,omitempty"`
}

// RowError records a data row that could not be parsed. Bad rows do not fail
// the whole file.
type RowError struct {
	RowNumber int    `json:"row_number"`
	Message   string `json:"message"`
}

// Options controls parsing behavior.
type Options struct {
	Filter TransactionFilter
	Format string // force a registered bank format instead of auto-detecting
}

// DefaultOptions keeps credit rows only, which is what payment imports want.
func DefaultOptions() Options {
	return Options{Filter: FilterCreditOnly}
}
