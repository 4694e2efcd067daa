package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := NewStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestMigrationsRunOnce(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s, err := NewStorage(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Reopening must not re-run migrations
	s, err = NewStorage(dbPath)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	applied, err := s.getAppliedMigrations()
	require.NoError(t, err)
	assert.Len(t, applied, len(allMigrations))
}

func TestSaveAndGetResident(t *testing.T) {
	s := newTestStorage(t)

	require.NoError(t, s.SaveHouse(&House{ID: "h1", HouseNumber: "12", StreetName: "Oak Street"}))

	resident := &Resident{
		ID:        "r1",
		FirstName: "John",
		LastName:  "Doe",
		Code:      "RES-001",
		Phones:    []string{"08031234567", "07011112222"},
		HouseIDs:  []string{"h1"},
		Active:    true,
	}
	require.NoError(t, s.SaveResident(resident))

	got, err := s.GetResident("r1")
	require.NoError(t, err)
	assert.Equal(t, "John", got.FirstName)
	assert.Equal(t, "RES-001", got.Code)
	assert.Equal(t, []string{"07011112222", "08031234567"}, got.Phones)
	assert.Equal(t, []string{"h1"}, got.HouseIDs)
	assert.False(t, got.CreatedAt.IsZero())

	// Updating replaces phone links rather than accumulating them
	resident.Phones = []string{"08099999999"}
	require.NoError(t, s.SaveResident(resident))
	got, err = s.GetResident("r1")
	require.NoError(t, err)
	assert.Equal(t, []string{"08099999999"}, got.Phones)
}

func TestListResidents_ActiveOnly(t *testing.T) {
	s := newTestStorage(t)

	require.NoError(t, s.SaveResident(&Resident{ID: "r1", FirstName: "John", LastName: "Doe", Code: "RES-001", Active: true}))
	require.NoError(t, s.SaveResident(&Resident{ID: "r2", FirstName: "Jane", LastName: "Smith", Code: "RES-002", Active: false}))

	all, err := s.ListResidents(false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active, err := s.ListResidents(true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "r1", active[0].ID)
}

func TestAliasRoundTrip(t *testing.T) {
	s := newTestStorage(t)

	require.NoError(t, s.SaveResident(&Resident{ID: "r1", FirstName: "John", LastName: "Doe", Code: "RES-001", Active: true}))
	require.NoError(t, s.SaveAlias(&PaymentAlias{ID: "a1", ResidentID: "r1", AliasName: "Doe Holdings"}))

	aliases, err := s.ListAliases("r1")
	require.NoError(t, err)
	require.Len(t, aliases, 1)
	assert.Equal(t, "Doe Holdings", aliases[0].AliasName)

	// Same alias name for another record is rejected regardless of case
	err = s.SaveAlias(&PaymentAlias{ID: "a2", ResidentID: "r1", AliasName: "doe holdings"})
	assert.Error(t, err)

	require.NoError(t, s.DeleteAlias("a1"))
	aliases, err = s.ListAliases("r1")
	require.NoError(t, err)
	assert.Empty(t, aliases)
}

func TestImportAndRowsRoundTrip(t *testing.T) {
	s := newTestStorage(t)

	imp := &Import{
		ID:           "imp1",
		FileName:     "statement.csv",
		FileHash:     "abc123",
		BankFormat:   "firstbank",
		Status:       ImportStatusPending,
		TotalRows:    2,
		TotalCredits: decimal.RequireFromString("300000.00"),
		DateFrom:     time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC),
		DateTo:       time.Date(2025, 1, 7, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.CreateImport(imp))

	rows := []*ImportRow{
		{
			ID:              "row1",
			ImportID:        "imp1",
			RowNumber:       4,
			TransactionDate: time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC),
			Description:     "TRF FROM JOHN DOE",
			Amount:          decimal.RequireFromString("250000.00"),
			Reference:       "FBN001",
			Status:          RowStatusPending,
		},
		{
			ID:              "row2",
			ImportID:        "imp1",
			RowNumber:       5,
			TransactionDate: time.Date(2025, 1, 7, 0, 0, 0, 0, time.UTC),
			Description:     "NIP/MAMA NKECHI",
			Amount:          decimal.RequireFromString("50000.00"),
			Status:          RowStatusPending,
		},
	}
	require.NoError(t, s.SaveRows(rows))

	got, err := s.GetImport("imp1")
	require.NoError(t, err)
	assert.Equal(t, "firstbank", got.BankFormat)
	assert.True(t, got.TotalCredits.Equal(decimal.RequireFromString("300000.00")))

	// Row listing with status filter and pagination counts
	listed, total, err := s.ListRows("imp1", RowFilters{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, listed, 2)
	assert.Equal(t, "row1", listed[0].ID)
	assert.True(t, listed[0].Amount.Equal(decimal.RequireFromString("250000.00")))

	// Update a row's match state
	row := listed[0]
	row.Status = RowStatusMatched
	row.ResidentID = "r1"
	row.MatchConfidence = "high"
	row.MatchMethod = "alias"
	row.MatchScore = 1.0
	require.NoError(t, s.UpdateRow(row))

	matched, total, err := s.ListRows("imp1", RowFilters{Status: RowStatusMatched})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, matched, 1)
	assert.Equal(t, "r1", matched[0].ResidentID)
	assert.Equal(t, "alias", matched[0].MatchMethod)

	// Import status update
	got.Status = ImportStatusProcessing
	got.MatchedRows = 1
	require.NoError(t, s.UpdateImport(got))
	got, err = s.GetImport("imp1")
	require.NoError(t, err)
	assert.Equal(t, ImportStatusProcessing, got.Status)
	assert.Equal(t, 1, got.MatchedRows)
}

func TestFindImportByHash(t *testing.T) {
	s := newTestStorage(t)

	require.NoError(t, s.CreateImport(&Import{
		ID: "imp1", FileName: "a.csv", FileHash: "samehash", Status: ImportStatusFailed,
		TotalCredits: decimal.Zero,
	}))
	require.NoError(t, s.CreateImport(&Import{
		ID: "imp2", FileName: "b.csv", FileHash: "samehash", Status: ImportStatusCompleted,
		TotalCredits: decimal.Zero,
	}))

	found, err := s.FindImportByHash("samehash")
	require.NoError(t, err)
	require.NotNil(t, found)
	// failed imports don't count as duplicates
	assert.Equal(t, "imp2", found.ID)

	none, err := s.FindImportByHash("otherhash")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestFindDuplicatePayment(t *testing.T) {
	s := newTestStorage(t)

	require.NoError(t, s.SaveResident(&Resident{ID: "r1", FirstName: "John", LastName: "Doe", Code: "RES-001", Active: true}))
	require.NoError(t, s.SavePayment(&PaymentRecord{
		ID:          "p1",
		ResidentID:  "r1",
		Amount:      decimal.RequireFromString("250000.00"),
		PaymentDate: time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC),
		Reference:   "FBN001",
	}))

	// Same reference always counts as duplicate
	dup, err := s.FindDuplicatePayment("FBN001", "999.00", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), 3)
	require.NoError(t, err)
	require.NotNil(t, dup)
	assert.Equal(t, "p1", dup.ID)

	// Same amount within the tolerance window
	dup, err = s.FindDuplicatePayment("", "250000.00", time.Date(2025, 1, 7, 0, 0, 0, 0, time.UTC), 3)
	require.NoError(t, err)
	require.NotNil(t, dup)

	// Same amount outside the window
	dup, err = s.FindDuplicatePayment("", "250000.00", time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC), 3)
	require.NoError(t, err)
	assert.Nil(t, dup)
}

func TestGetPaymentStats(t *testing.T) {
	s := newTestStorage(t)

	require.NoError(t, s.SaveResident(&Resident{ID: "r1", FirstName: "John", LastName: "Doe", Code: "RES-001", Active: true}))
	require.NoError(t, s.SaveResident(&Resident{ID: "r2", FirstName: "Jane", LastName: "Smith", Code: "RES-002", Active: true}))

	require.NoError(t, s.SavePayment(&PaymentRecord{
		ID: "p1", ResidentID: "r1", ImportID: "imp1",
		Amount:      decimal.RequireFromString("100.00"),
		PaymentDate: time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, s.SavePayment(&PaymentRecord{
		ID: "p2", ResidentID: "r2", ImportID: "imp1",
		Amount:      decimal.RequireFromString("300.00"),
		PaymentDate: time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC),
	}))

	stats, err := s.GetPaymentStats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalPayments)
	assert.True(t, stats.TotalAmount.Equal(decimal.RequireFromString("400")), "total was %s", stats.TotalAmount)
	assert.True(t, stats.AverageAmount.Equal(decimal.RequireFromString("200")), "average was %s", stats.AverageAmount)
	assert.Equal(t, 1, stats.ImportCount)
	assert.Equal(t, 2, stats.ResidentCount)
	require.NotNil(t, stats.LastPaymentAt)
	assert.Equal(t, 6, stats.LastPaymentAt.Day())
}
