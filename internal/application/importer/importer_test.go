package importer

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estateops/estate-backend/internal/infrastructure/config"
	"github.com/estateops/estate-backend/internal/infrastructure/storage"
)

const statementCSV = `Transaction Date,Narration,Reference,Debit,Credit,Balance
05/01/2025,TRF FROM JOHN DOE,FBN001,,"250,000.00","1,250,000.00"
06/01/2025,NIP/DOE HOLDINGS LTD,FBN002,,"50,000.00","1,300,000.00"
07/01/2025,RANDOM NOISE 55,FBN003,,"10,000.00","1,310,000.00"
`

func testConfig() *config.Config {
	return &config.Config{
		Matcher: config.MatcherConfig{
			MinScore:       0.60,
			ConfidentScore: 0.90,
			MediumScore:    0.70,
			TieMargin:      0.05,
			MaxCandidates:  5,
		},
		Import: config.ImportConfig{
			TransactionFilter:      "credit_only",
			DuplicateToleranceDays: 3,
			RequireApproval:        true,
		},
	}
}

func newTestImporter(t *testing.T) (*Importer, *storage.MockRepository) {
	t.Helper()
	repo := storage.NewMockRepository()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewImporter(repo, testConfig(), logger), repo
}

func seedResidents(t *testing.T, repo *storage.MockRepository) {
	t.Helper()
	require.NoError(t, repo.SaveHouse(&storage.House{ID: "h12", HouseNumber: "12", StreetName: "Oak Street"}))
	require.NoError(t, repo.SaveResident(&storage.Resident{
		ID: "r1", FirstName: "John", LastName: "Doe", Code: "RES-001",
		Phones: []string{"08031234567"}, HouseIDs: []string{"h12"}, Active: true,
	}))
	require.NoError(t, repo.SaveResident(&storage.Resident{
		ID: "r2", FirstName: "Jane", LastName: "Smith", Code: "RES-002", Active: true,
	}))
	require.NoError(t, repo.AssignResident("h12", "r1"))
	require.NoError(t, repo.SaveAlias(&storage.PaymentAlias{
		ID: "a1", ResidentID: "r2", AliasName: "Doe Holdings Ltd",
	}))
}

func createTestImport(t *testing.T, im *Importer) *storage.Import {
	t.Helper()
	imp, err := im.CreateImport("statement.csv", []byte(statementCSV), "admin")
	require.NoError(t, err)
	return imp
}

func TestCreateImport(t *testing.T) {
	im, repo := newTestImporter(t)

	imp := createTestImport(t, im)

	assert.Equal(t, storage.ImportStatusPending, imp.Status)
	assert.Equal(t, "firstbank", imp.BankFormat)
	assert.Equal(t, 3, imp.TotalRows)
	assert.True(t, imp.TotalCredits.Equal(decimal.RequireFromString("310000.00")))
	assert.NotEmpty(t, imp.FileHash)

	rows, total, err := repo.ListRows(imp.ID, storage.RowFilters{})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	for _, row := range rows {
		assert.Equal(t, storage.RowStatusPending, row.Status)
	}
}

func TestCreateImport_SameContentIsRejected(t *testing.T) {
	im, _ := newTestImporter(t)
	createTestImport(t, im)

	// Same rows under a different file name still collide
	_, err := im.CreateImport("statement-copy.csv", []byte(statementCSV), "admin")

	require.Error(t, err)
	var dupErr *ErrDuplicateImport
	require.ErrorAs(t, err, &dupErr)
	assert.NotEmpty(t, dupErr.ExistingID)
}

func TestCreateImport_UnparseableFile(t *testing.T) {
	im, repo := newTestImporter(t)

	_, err := im.CreateImport("junk.csv", []byte("no,header,here\n1,2,3\n"), "admin")

	require.Error(t, err)
	assert.False(t, repo.CreateImportCalled)
}

func TestMatchRows(t *testing.T) {
	im, repo := newTestImporter(t)
	seedResidents(t, repo)
	imp := createTestImport(t, im)

	summary, err := im.MatchRows(context.Background(), imp.ID)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.TotalRows)
	assert.Equal(t, 2, summary.Matched)
	assert.Equal(t, 1, summary.Unmatched)

	rows, _, err := repo.ListRows(imp.ID, storage.RowFilters{Status: storage.RowStatusMatched})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	byDescription := map[string]*storage.ImportRow{}
	for _, row := range rows {
		byDescription[row.Description] = row
	}

	nameRow := byDescription["TRF FROM JOHN DOE"]
	require.NotNil(t, nameRow)
	assert.Equal(t, "r1", nameRow.ResidentID)
	assert.Equal(t, "name", nameRow.MatchMethod)
	assert.Equal(t, "high", nameRow.MatchConfidence)
	assert.NotEmpty(t, nameRow.CandidatesJSON)

	aliasRow := byDescription["NIP/DOE HOLDINGS LTD"]
	require.NotNil(t, aliasRow)
	assert.Equal(t, "r2", aliasRow.ResidentID)
	assert.Equal(t, "alias", aliasRow.MatchMethod)
	assert.Equal(t, "high", aliasRow.MatchConfidence)

	got, err := repo.GetImport(imp.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.MatchedRows)
	assert.Equal(t, 1, got.UnmatchedRows)
}

func TestMatchRows_RerunPicksUpNewAlias(t *testing.T) {
	im, repo := newTestImporter(t)
	seedResidents(t, repo)
	imp := createTestImport(t, im)

	summary, err := im.MatchRows(context.Background(), imp.ID)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Unmatched)

	require.NoError(t, repo.SaveAlias(&storage.PaymentAlias{
		ID: "a2", ResidentID: "r2", AliasName: "Random Noise",
	}))

	summary, err = im.MatchRows(context.Background(), imp.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Unmatched)

	got, err := repo.GetImport(imp.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.MatchedRows)
}

func TestApprovalWorkflow(t *testing.T) {
	im, repo := newTestImporter(t)
	seedResidents(t, repo)
	imp := createTestImport(t, im)

	// Submitting before matching is rejected
	_, err := im.SubmitForApproval(imp.ID, "admin")
	require.Error(t, err)

	_, err = im.MatchRows(context.Background(), imp.ID)
	require.NoError(t, err)

	submitted, err := im.SubmitForApproval(imp.ID, "admin")
	require.NoError(t, err)
	assert.Equal(t, storage.ImportStatusAwaitingApproval, submitted.Status)

	// Double submission is rejected
	_, err = im.SubmitForApproval(imp.ID, "admin")
	require.Error(t, err)

	approved, err := im.Approve(imp.ID, "chairman", "looks right")
	require.NoError(t, err)
	assert.Equal(t, storage.ImportStatusApproved, approved.Status)
	assert.Equal(t, "chairman", approved.ReviewedBy)

	// Approving twice is rejected
	_, err = im.Approve(imp.ID, "chairman", "")
	require.Error(t, err)
}

func TestReject(t *testing.T) {
	im, repo := newTestImporter(t)
	seedResidents(t, repo)
	imp := createTestImport(t, im)

	_, err := im.MatchRows(context.Background(), imp.ID)
	require.NoError(t, err)
	_, err = im.SubmitForApproval(imp.ID, "admin")
	require.NoError(t, err)

	rejected, err := im.Reject(imp.ID, "chairman", "wrong statement")
	require.NoError(t, err)
	assert.Equal(t, storage.ImportStatusRejected, rejected.Status)
	assert.Equal(t, "wrong statement", rejected.ReviewNote)

	// Rejected imports are terminal
	_, err = im.MatchRows(context.Background(), imp.ID)
	require.Error(t, err)
}

func approveTestImport(t *testing.T, im *Importer, importID string) {
	t.Helper()
	_, err := im.MatchRows(context.Background(), importID)
	require.NoError(t, err)
	_, err = im.SubmitForApproval(importID, "admin")
	require.NoError(t, err)
	_, err = im.Approve(importID, "chairman", "")
	require.NoError(t, err)
}

func TestProcessImport(t *testing.T) {
	im, repo := newTestImporter(t)
	seedResidents(t, repo)
	imp := createTestImport(t, im)
	approveTestImport(t, im, imp.ID)

	result, err := im.ProcessImport(context.Background(), imp.ID, ProcessOptions{
		SkipDuplicates: true,
		SkipUnmatched:  true,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 0, result.Duplicates)
	assert.Equal(t, 2, repo.SavedPaymentCount)

	got, err := repo.GetImport(imp.ID)
	require.NoError(t, err)
	assert.Equal(t, storage.ImportStatusCompleted, got.Status)
	assert.Equal(t, 2, got.CreatedRows)
	assert.Equal(t, 1, got.SkippedRows)
	require.NotNil(t, got.CompletedAt)

	payments, err := repo.ListPaymentsForResident("r1", 10)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.True(t, payments[0].Amount.Equal(decimal.RequireFromString("250000.00")))
	assert.Equal(t, imp.ID, payments[0].ImportID)
}

func TestProcessImport_RequiresApproval(t *testing.T) {
	im, repo := newTestImporter(t)
	seedResidents(t, repo)
	imp := createTestImport(t, im)

	_, err := im.MatchRows(context.Background(), imp.ID)
	require.NoError(t, err)

	_, err = im.ProcessImport(context.Background(), imp.ID, ProcessOptions{SkipUnmatched: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be processed")
}

func TestProcessImport_UnmatchedRowsBlockWithoutSkip(t *testing.T) {
	im, repo := newTestImporter(t)
	seedResidents(t, repo)
	imp := createTestImport(t, im)
	approveTestImport(t, im, imp.ID)

	_, err := im.ProcessImport(context.Background(), imp.ID, ProcessOptions{SkipDuplicates: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmatched rows")
	assert.Equal(t, 0, repo.SavedPaymentCount)

	got, err := repo.GetImport(imp.ID)
	require.NoError(t, err)
	assert.Equal(t, storage.ImportStatusFailed, got.Status)
}

func TestProcessImport_DuplicateDetection(t *testing.T) {
	im, repo := newTestImporter(t)
	seedResidents(t, repo)

	// A payment with the same reference already exists
	require.NoError(t, repo.SavePayment(&storage.PaymentRecord{
		ID: "p0", ResidentID: "r1", Reference: "FBN001",
		Amount: decimal.RequireFromString("250000.00"),
	}))

	imp := createTestImport(t, im)
	approveTestImport(t, im, imp.ID)

	result, err := im.ProcessImport(context.Background(), imp.ID, ProcessOptions{
		SkipDuplicates: true,
		SkipUnmatched:  true,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.Duplicates)

	rows, _, err := repo.ListRows(imp.ID, storage.RowFilters{Status: storage.RowStatusDuplicate})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "FBN001", rows[0].Reference)
}

func TestProcessImport_AtomicAbortsOnDuplicate(t *testing.T) {
	im, repo := newTestImporter(t)
	seedResidents(t, repo)

	require.NoError(t, repo.SavePayment(&storage.PaymentRecord{
		ID: "p0", ResidentID: "r1", Reference: "FBN001",
		Amount: decimal.RequireFromString("250000.00"),
	}))

	imp := createTestImport(t, im)
	approveTestImport(t, im, imp.ID)

	before := repo.SavedPaymentCount
	_, err := im.ProcessImport(context.Background(), imp.ID, ProcessOptions{
		Atomic:        true,
		SkipUnmatched: true,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicates payment")
	// nothing was written
	assert.Equal(t, before, repo.SavedPaymentCount)
}
