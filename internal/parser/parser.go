package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// headerTerms are the words a header row is identified by. A row containing
// at least three of them is taken as the header; statements often carry
// account-info rows above it.
var headerTerms = []string{"date", "narration", "description", "credit", "debit", "amount", "balance", "reference"}

// summaryTerms mark footer/summary rows inside the data section.
var summaryTerms = []string{"total", "opening balance", "closing balance", "summary", "grand total", "brought forward"}

const maxHeaderScan = 20

// Parse reads a statement file and extracts its transactions. The file kind
// is taken from the filename extension: .csv and .txt parse as CSV, .xlsx as
// a workbook. Rows that cannot be parsed are reported in Errors rather than
// failing the file; an unrecognizable header row is a hard error.
func Parse(r io.Reader, filename string, opts Options) (*ParseResult, error) {
	grid, err := readGrid(r, filename)
	if err != nil {
		return nil, err
	}
	if opts.Filter == "" {
		opts.Filter = FilterAll
	}

	headerIdx := findHeaderRow(grid)
	if headerIdx < 0 {
		return nil, fmt.Errorf("no header row found in %s", filename)
	}
	headers := grid[headerIdx]

	var format BankFormat
	if opts.Format != "" {
		format, err = FormatByName(opts.Format)
	} else {
		format, err = detectFormat(headers)
	}
	if err != nil {
		return nil, err
	}
	mapping, err := format.Mapping(headers)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", format.Name(), err)
	}

	result := &ParseResult{
		Format:          format.Name(),
		HeaderRowIndex:  headerIdx,
		DetectedColumns: mapping,
	}

	for i := headerIdx + 1; i < len(grid); i++ {
		row := grid[i]
		if isEmptyRow(row) || isSummaryRow(row) {
			result.SkippedRows++
			continue
		}

		parsed, err := parseRow(row, i+1, mapping)
		if err != nil {
			result.Errors = append(result.Errors, RowError{RowNumber: i + 1, Message: err.Error()})
			continue
		}
		if parsed == nil || !keepRow(parsed.Type, opts.Filter) {
			result.SkippedRows++
			continue
		}

		result.Rows = append(result.Rows, *parsed)
		switch parsed.Type {
		case TypeCredit:
			result.TotalCredits = result.TotalCredits.Add(parsed.Amount)
		case TypeDebit:
			result.TotalDebits = result.TotalDebits.Add(parsed.Amount)
		}
		if result.DateFrom.IsZero() || parsed.TransactionDate.Before(result.DateFrom) {
			result.DateFrom = parsed.TransactionDate
		}
		if parsed.TransactionDate.After(result.DateTo) {
			result.DateTo = parsed.TransactionDate
		}
	}

	return result, nil
}

func readGrid(r io.Reader, filename string) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".txt":
		return readCSV(r)
	case ".xlsx":
		return readXLSX(r)
	default:
		return nil, fmt.Errorf("unsupported file type %q, expected .csv or .xlsx", filepath.Ext(filename))
	}
}

// parseRow converts one data row. A nil row with nil error means the row
// carries no amount and should be skipped.
func parseRow(row []string, rowNumber int, m ColumnMapping) (*ParsedRow, error) {
	date, err := parseDate(cell(row, m.Date))
	if err != nil {
		return nil, err
	}

	description := strings.TrimSpace(cell(row, m.Description))
	if description == "" {
		return nil, fmt.Errorf("empty description")
	}

	amount, txType, err := resolveAmount(row, m)
	if err != nil {
		return nil, err
	}
	if amount == nil {
		return nil, nil
	}

	parsed := &ParsedRow{
		RowNumber:       rowNumber,
		TransactionDate: date,
		Description:     description,
		Amount:          amount.Abs(),
		Type:            txType,
		Reference:       strings.TrimSpace(cell(row, m.Reference)),
		RawData:         row,
	}
	if balance, _ := parseAmount(cell(row, m.Balance)); balance != nil {
		parsed.Balance = balance
	}
	return parsed, nil
}

// resolveAmount reads the credit/debit pair, or the single signed amount
// column, and classifies the row.
func resolveAmount(row []string, m ColumnMapping) (*decimal.Decimal, TransactionType, error) {
	if m.Credit >= 0 || m.Debit >= 0 {
		credit, err := parseAmount(cell(row, m.Credit))
		if err != nil {
			return nil, "", fmt.Errorf("bad credit amount: %w", err)
		}
		if credit != nil && !credit.IsZero() {
			return credit, TypeCredit, nil
		}
		debit, err := parseAmount(cell(row, m.Debit))
		if err != nil {
			return nil, "", fmt.Errorf("bad debit amount: %w", err)
		}
		if debit != nil && !debit.IsZero() {
			return debit, TypeDebit, nil
		}
		return nil, "", nil
	}

	amount, err := parseAmount(cell(row, m.Amount))
	if err != nil {
		return nil, "", fmt.Errorf("bad amount: %w", err)
	}
	if amount == nil || amount.IsZero() {
		return nil, "", nil
	}
	if amount.IsNegative() {
		return amount, TypeDebit, nil
	}
	return amount, TypeCredit, nil
}

var (
	currencyRe = regexp.MustCompile(`(?i)[₦$\s]|ngn`)
	numericRe  = regexp.MustCompile(`[^0-9.]`)
	drSuffixRe = regexp.MustCompile(`(?i)dr$`)
)

// parseAmount turns a statement amount cell into a decimal. Handles
// "1,234.56", "(1,234.56)", "₦1234.56", "1234.56 DR". Empty cells and dash
// placeholders return nil.
func parseAmount(s string) (*decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" || s == "0" || s == "0.00" {
		return nil, nil
	}

	clean := currencyRe.ReplaceAllString(s, "")
	negative := strings.Contains(clean, "(") || strings.Contains(clean, "-") || drSuffixRe.MatchString(clean)
	clean = numericRe.ReplaceAllString(clean, "")
	if clean == "" {
		return nil, nil
	}

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return nil, fmt.Errorf("unparseable amount %q", s)
	}
	if negative {
		d = d.Neg()
	}
	return &d, nil
}

// dateLayouts in order of likelihood for Nigerian bank exports.
var dateLayouts = []string{
	"02/01/2006",
	"02-01-2006",
	"2/1/2006",
	"2-1-2006",
	"02-Jan-2006",
	"2-Jan-2006",
	"2006-01-02",
	"2006/01/02",
	"02/01/06",
	"01/02/2006",
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

func findHeaderRow(grid [][]string) int {
	limit := len(grid)
	if limit > maxHeaderScan {
		limit = maxHeaderScan
	}
	for i := 0; i < limit; i++ {
		joined := strings.ToLower(strings.Join(grid[i], " "))
		count := 0
		for _, term := range headerTerms {
			if strings.Contains(joined, term) {
				count++
			}
		}
		if count >= 3 {
			return i
		}
	}
	return -1
}

func isEmptyRow(row []string) bool {
	for _, cellValue := range row {
		if strings.TrimSpace(cellValue) != "" {
			return false
		}
	}
	return true
}

func isSummaryRow(row []string) bool {
	joined := strings.ToLower(strings.Join(row, " "))
	for _, term := range summaryTerms {
		if strings.Contains(joined, term) {
			return true
		}
	}
	return false
}

func keepRow(t TransactionType, filter TransactionFilter) bool {
	switch filter {
	case FilterCreditOnly:
		return t == TypeCredit
	case FilterDebitOnly:
		return t == TypeDebit
	default:
		return true
	}
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}
