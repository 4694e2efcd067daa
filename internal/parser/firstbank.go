package parser

// firstBankFormat understands FirstBank Nigeria statement exports. The column
// names vary slightly between statement types, so each column has a list of
// known aliases.
type firstBankFormat struct{}

var firstBankAliases = map[string][]string{
	"date":        {"transaction date", "trans date", "value date", "post date", "date"},
	"description": {"narration"},
	"credit":      {"credit", "credit amount", "cr"},
	"debit":       {"debit", "debit amount", "dr"},
	"reference":   {"reference", "ref", "transaction ref", "reference no"},
	"balance":     {"balance", "running balance", "available balance"},
}

func (f *firstBankFormat) Name() string { return "firstbank" }

// Detect requires the Narration column, which is the FirstBank tell; generic
// exports usually say Description.
func (f *firstBankFormat) Detect(headers []string) bool {
	if headerIndex(headers, firstBankAliases["description"]...) < 0 {
		return false
	}
	m, err := f.Mapping(headers)
	return err == nil && m.Valid()
}

func (f *firstBankFormat) Mapping(headers []string) (ColumnMapping, error) {
	m := emptyMapping()
	m.Date = headerIndex(headers, firstBankAliases["date"]...)
	m.Description = headerIndex(headers, firstBankAliases["description"]...)
	m.Credit = headerIndex(headers, firstBankAliases["credit"]...)
	m.Debit = headerIndex(headers, firstBankAliases["debit"]...)
	m.Reference = headerIndex(headers, firstBankAliases["reference"]...)
	m.Balance = headerIndex(headers, firstBankAliases["balance"]...)
	if !m.Valid() {
		return m, errMappingIncomplete
	}
	return m, nil
}
