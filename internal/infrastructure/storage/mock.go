package storage

import (
	"database/sql"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MockRepository is an in-memory implementation of Repository for testing.
// It stores all data in maps and slices, making tests fast and isolated.
type MockRepository struct {
	residents map[string]*Resident
	aliases   map[string]*PaymentAlias
	houses    map[string]*House
	imports   map[string]*Import
	rows      map[string]*ImportRow
	payments  []*PaymentRecord

	// Hooks for test assertions
	SaveResidentCalled bool
	SaveAliasCalled    bool
	LastSavedAlias     *PaymentAlias
	CreateImportCalled bool
	SaveRowsCalled     bool
	UpdateRowCalled    bool
	SavePaymentCalled  bool
	SavedPaymentCount  int

	// Error injection for testing error paths
	SaveResidentErr  error
	SaveAliasErr     error
	CreateImportErr  error
	SaveRowsErr      error
	UpdateImportErr  error
	UpdateRowErr     error
	SavePaymentErr   error
	FindDuplicateErr error
}

// NewMockRepository creates a new mock repository for testing
func NewMockRepository() *MockRepository {
	return &MockRepository{
		residents: make(map[string]*Resident),
		aliases:   make(map[string]*PaymentAlias),
		houses:    make(map[string]*House),
		imports:   make(map[string]*Import),
		rows:      make(map[string]*ImportRow),
	}
}

// Compile-time check that MockRepository implements Repository
var _ Repository = (*MockRepository)(nil)

// Close does nothing for mock
func (m *MockRepository) Close() error {
	return nil
}

func (m *MockRepository) SaveResident(resident *Resident) error {
	m.SaveResidentCalled = true
	if m.SaveResidentErr != nil {
		return m.SaveResidentErr
	}
	copied := *resident
	m.residents[resident.ID] = &copied
	return nil
}

func (m *MockRepository) GetResident(id string) (*Resident, error) {
	resident, ok := m.residents[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *resident
	return &copied, nil
}

func (m *MockRepository) ListResidents(activeOnly bool) ([]*Resident, error) {
	var result []*Resident
	for _, resident := range m.residents {
		if activeOnly && !resident.Active {
			continue
		}
		copied := *resident
		result = append(result, &copied)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *MockRepository) SaveAlias(alias *PaymentAlias) error {
	m.SaveAliasCalled = true
	m.LastSavedAlias = alias
	if m.SaveAliasErr != nil {
		return m.SaveAliasErr
	}
	copied := *alias
	m.aliases[alias.ID] = &copied
	return nil
}

func (m *MockRepository) ListAliases(residentID string) ([]*PaymentAlias, error) {
	var result []*PaymentAlias
	for _, alias := range m.aliases {
		if residentID != "" && alias.ResidentID != residentID {
			continue
		}
		copied := *alias
		result = append(result, &copied)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].AliasName < result[j].AliasName })
	return result, nil
}

func (m *MockRepository) DeleteAlias(id string) error {
	if _, ok := m.aliases[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.aliases, id)
	return nil
}

func (m *MockRepository) SaveHouse(house *House) error {
	copied := *house
	m.houses[house.ID] = &copied
	return nil
}

func (m *MockRepository) ListHouses() ([]*House, error) {
	var result []*House
	for _, house := range m.houses {
		copied := *house
		result = append(result, &copied)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *MockRepository) AssignResident(houseID, residentID string) error {
	house, ok := m.houses[houseID]
	if !ok {
		return sql.ErrNoRows
	}
	for _, id := range house.ResidentIDs {
		if id == residentID {
			return nil
		}
	}
	house.ResidentIDs = append(house.ResidentIDs, residentID)
	return nil
}

func (m *MockRepository) CreateImport(imp *Import) error {
	m.CreateImportCalled = true
	if m.CreateImportErr != nil {
		return m.CreateImportErr
	}
	copied := *imp
	if copied.CreatedAt.IsZero() {
		copied.CreatedAt = time.Now()
	}
	m.imports[imp.ID] = &copied
	return nil
}

func (m *MockRepository) GetImport(id string) (*Import, error) {
	imp, ok := m.imports[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *imp
	return &copied, nil
}

func (m *MockRepository) FindImportByHash(hash string) (*Import, error) {
	for _, imp := range m.imports {
		if imp.FileHash == hash && imp.Status != ImportStatusFailed && imp.Status != ImportStatusRejected {
			copied := *imp
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *MockRepository) ListImports(limit, offset int) ([]*Import, int, error) {
	var all []*Import
	for _, imp := range m.imports {
		copied := *imp
		all = append(all, &copied)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := len(all)
	if offset > len(all) {
		offset = len(all)
	}
	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, total, nil
}

func (m *MockRepository) UpdateImport(imp *Import) error {
	if m.UpdateImportErr != nil {
		return m.UpdateImportErr
	}
	stored, ok := m.imports[imp.ID]
	if !ok {
		return sql.ErrNoRows
	}
	copied := *imp
	copied.CreatedAt = stored.CreatedAt
	m.imports[imp.ID] = &copied
	return nil
}

func (m *MockRepository) SaveRows(rows []*ImportRow) error {
	m.SaveRowsCalled = true
	if m.SaveRowsErr != nil {
		return m.SaveRowsErr
	}
	for _, row := range rows {
		copied := *row
		m.rows[row.ID] = &copied
	}
	return nil
}

func (m *MockRepository) GetRow(id string) (*ImportRow, error) {
	row, ok := m.rows[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *row
	return &copied, nil
}

func (m *MockRepository) ListRows(importID string, filters RowFilters) ([]*ImportRow, int, error) {
	var all []*ImportRow
	for _, row := range m.rows {
		if row.ImportID != importID {
			continue
		}
		if filters.Status != "" && row.Status != filters.Status {
			continue
		}
		copied := *row
		all = append(all, &copied)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].RowNumber < all[j].RowNumber })
	total := len(all)
	offset := filters.Offset
	if offset > len(all) {
		offset = len(all)
	}
	all = all[offset:]
	if filters.Limit > 0 && len(all) > filters.Limit {
		all = all[:filters.Limit]
	}
	return all, total, nil
}

func (m *MockRepository) UpdateRow(row *ImportRow) error {
	m.UpdateRowCalled = true
	if m.UpdateRowErr != nil {
		return m.UpdateRowErr
	}
	if _, ok := m.rows[row.ID]; !ok {
		return sql.ErrNoRows
	}
	copied := *row
	m.rows[row.ID] = &copied
	return nil
}

func (m *MockRepository) SavePayment(payment *PaymentRecord) error {
	m.SavePaymentCalled = true
	if m.SavePaymentErr != nil {
		return m.SavePaymentErr
	}
	copied := *payment
	m.payments = append(m.payments, &copied)
	m.SavedPaymentCount++
	return nil
}

func (m *MockRepository) FindDuplicatePayment(reference string, amount string, date time.Time, toleranceDays int) (*PaymentRecord, error) {
	if m.FindDuplicateErr != nil {
		return nil, m.FindDuplicateErr
	}
	for _, payment := range m.payments {
		if reference != "" && payment.Reference != "" && strings.EqualFold(payment.Reference, reference) {
			copied := *payment
			return &copied, nil
		}
	}
	from := date.AddDate(0, 0, -toleranceDays)
	to := date.AddDate(0, 0, toleranceDays)
	for _, payment := range m.payments {
		if payment.Amount.String() == amount && !payment.PaymentDate.Before(from) && !payment.PaymentDate.After(to) {
			copied := *payment
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *MockRepository) ListPaymentsForResident(residentID string, limit int) ([]*PaymentRecord, error) {
	var result []*PaymentRecord
	for _, payment := range m.payments {
		if payment.ResidentID != residentID {
			continue
		}
		copied := *payment
		result = append(result, &copied)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].PaymentDate.After(result[j].PaymentDate) })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *MockRepository) GetPaymentStats() (*PaymentStats, error) {
	stats := &PaymentStats{}
	imports := make(map[string]bool)
	residents := make(map[string]bool)
	for _, payment := range m.payments {
		stats.TotalPayments++
		stats.TotalAmount = stats.TotalAmount.Add(payment.Amount)
		imports[payment.ImportID] = true
		residents[payment.ResidentID] = true
		if stats.LastPaymentAt == nil || payment.PaymentDate.After(*stats.LastPaymentAt) {
			t := payment.PaymentDate
			stats.LastPaymentAt = &t
		}
	}
	stats.ImportCount = len(imports)
	stats.ResidentCount = len(residents)
	if stats.TotalPayments > 0 {
		stats.AverageAmount = stats.TotalAmount.DivRound(decimal.NewFromInt(int64(stats.TotalPayments)), 2)
	}
	return stats, nil
}
