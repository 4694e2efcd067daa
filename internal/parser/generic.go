package parser

// genericFormat handles any statement export with recognizable column names.
// It is the fallback when no bank-specific format claims the file.
type genericFormat struct{}

func (f *genericFormat) Name() string { return "generic" }

func (f *genericFormat) Detect(headers []string) bool {
	m, err := f.Mapping(headers)
	return err == nil && m.Valid()
}

func (f *genericFormat) Mapping(headers []string) (ColumnMapping, error) {
	m := emptyMapping()
	m.Date = headerIndex(headers, "transaction date", "trans date", "value date", "date")
	m.Description = headerIndex(headers, "narration", "description", "details", "remarks", "particulars")
	m.Credit = headerIndex(headers, "credit", "deposit", "money in", "paid in", "inflow")
	m.Debit = headerIndex(headers, "debit", "withdrawal", "money out", "paid out", "outflow")
	m.Reference = headerIndex(headers, "reference", "ref no", "transaction ref", "ref")
	m.Balance = headerIndex(headers, "balance", "running balance")
	if m.Credit < 0 && m.Debit < 0 {
		m.Amount = headerIndex(headers, "amount")
	}
	if !m.Valid() {
		return m, errMappingIncomplete
	}
	return m, nil
}
