package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estateops/estate-backend/internal/api"
	"github.com/estateops/estate-backend/internal/api/dto"
	"github.com/estateops/estate-backend/internal/application/importer"
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

func newTestServer(t *testing.T) (*api.Server, *storage.MockRepository) {
	t.Helper()

	repo := storage.NewMockRepository()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	imp := importer.NewImporter(repo, testConfig(), logger)
	jobs := importer.NewService(imp, logger)

	server := api.NewServer(api.DefaultConfig(), repo, imp, jobs, logger)
	return server, repo
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

func doRequest(t *testing.T, server *api.Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func uploadStatement(t *testing.T, server *api.Server, fileName, content string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = io.Copy(part, strings.NewReader(content))
	require.NoError(t, err)
	require.NoError(t, writer.WriteField("submitted_by", "admin"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/imports", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)
	return rec
}

func waitForJob(t *testing.T, server *api.Server, jobID string) dto.JobResponse {
	t.Helper()

	var job dto.JobResponse
	require.Eventually(t, func() bool {
		rec := doRequest(t, server, http.MethodGet, "/api/jobs/"+jobID, nil)
		if rec.Code != http.StatusOK {
			return false
		}
		job = decodeBody[dto.JobResponse](t, rec)
		return job.Status != "pending" && job.Status != "running"
	}, 5*time.Second, 10*time.Millisecond)
	return job
}

type rowList struct {
	Items      []dto.RowResponse `json:"items"`
	TotalCount int               `json:"total_count"`
}

func TestHealthEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	rec := doRequest(t, server, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	health := decodeBody[dto.HealthResponse](t, rec)
	assert.Equal(t, "ok", health.Status)
}

func TestImportLifecycle(t *testing.T) {
	server, repo := newTestServer(t)
	seedResidents(t, repo)

	// Upload
	rec := uploadStatement(t, server, "statement.csv", statementCSV)
	require.Equal(t, http.StatusCreated, rec.Code)
	imp := decodeBody[storage.Import](t, rec)
	assert.Equal(t, storage.ImportStatusPending, imp.Status)
	assert.Equal(t, 3, imp.TotalRows)
	assert.Equal(t, "firstbank", imp.BankFormat)

	// Match in the background
	rec = doRequest(t, server, http.MethodPost, "/api/imports/"+imp.ID+"/match", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	started := decodeBody[dto.JobStartedResponse](t, rec)

	job := waitForJob(t, server, started.JobID)
	require.Equal(t, "completed", job.Status)
	require.NotNil(t, job.MatchResult)
	assert.Equal(t, 2, job.MatchResult.Matched)
	assert.Equal(t, 1, job.MatchResult.Unmatched)

	// Matched rows carry the resident and method
	rec = doRequest(t, server, http.MethodGet, "/api/imports/"+imp.ID+"/rows?status=matched", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	matched := decodeBody[rowList](t, rec)
	require.Len(t, matched.Items, 2)
	assert.Equal(t, "r1", matched.Items[0].ResidentID)
	assert.NotEmpty(t, matched.Items[0].MatchMethod)

	// Submit, approve, process
	rec = doRequest(t, server, http.MethodPost, "/api/imports/"+imp.ID+"/submit", dto.SubmitRequest{SubmittedBy: "clerk"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, server, http.MethodPost, "/api/imports/"+imp.ID+"/approve", dto.ReviewRequest{ReviewedBy: "chairman"})
	require.Equal(t, http.StatusOK, rec.Code)
	approved := decodeBody[storage.Import](t, rec)
	assert.Equal(t, storage.ImportStatusApproved, approved.Status)

	rec = doRequest(t, server, http.MethodPost, "/api/imports/"+imp.ID+"/process", dto.ProcessRequest{SkipUnmatched: true, SkipDuplicates: true})
	require.Equal(t, http.StatusAccepted, rec.Code)
	started = decodeBody[dto.JobStartedResponse](t, rec)

	job = waitForJob(t, server, started.JobID)
	require.Equal(t, "completed", job.Status)
	require.NotNil(t, job.ProcessResult)
	assert.Equal(t, 2, job.ProcessResult.Created)

	// Stats reflect the created payments
	rec = doRequest(t, server, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decodeBody[storage.PaymentStats](t, rec)
	assert.Equal(t, 2, stats.TotalPayments)
}

func TestUploadDuplicateStatement(t *testing.T) {
	server, repo := newTestServer(t)
	seedResidents(t, repo)

	rec := uploadStatement(t, server, "statement.csv", statementCSV)
	require.Equal(t, http.StatusCreated, rec.Code)

	// Same content under a different name is still a duplicate
	rec = uploadStatement(t, server, "renamed.csv", statementCSV)
	assert.Equal(t, http.StatusConflict, rec.Code)
	apiErr := decodeBody[dto.APIError](t, rec)
	assert.Equal(t, dto.ErrCodeConflict, apiErr.Code)
}

func TestUploadWithoutFile(t *testing.T) {
	server, _ := newTestServer(t)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("submitted_by", "admin"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/imports", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadUnparseableStatement(t *testing.T) {
	server, _ := newTestServer(t)

	rec := uploadStatement(t, server, "notes.csv", "just some text\nwith no statement\n")

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestManualMatchEndpoint(t *testing.T) {
	server, repo := newTestServer(t)
	seedResidents(t, repo)

	rec := uploadStatement(t, server, "statement.csv", statementCSV)
	require.Equal(t, http.StatusCreated, rec.Code)
	imp := decodeBody[storage.Import](t, rec)

	rec = doRequest(t, server, http.MethodPost, "/api/imports/"+imp.ID+"/match", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	started := decodeBody[dto.JobStartedResponse](t, rec)
	waitForJob(t, server, started.JobID)

	rec = doRequest(t, server, http.MethodGet, "/api/imports/"+imp.ID+"/rows?status=unmatched", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	unmatched := decodeBody[rowList](t, rec)
	require.Len(t, unmatched.Items, 1)
	rowID := unmatched.Items[0].ID

	// Assign to a resident by hand
	rec = doRequest(t, server, http.MethodPost, "/api/rows/"+rowID+"/match", dto.ManualMatchRequest{ResidentID: "r2"})
	require.Equal(t, http.StatusOK, rec.Code)
	row := decodeBody[dto.RowResponse](t, rec)
	assert.Equal(t, storage.RowStatusMatched, row.Status)
	assert.Equal(t, "r2", row.ResidentID)
	assert.Equal(t, "manual", row.MatchMethod)

	// Then clear it again
	rec = doRequest(t, server, http.MethodPost, "/api/rows/"+rowID+"/unmatch", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	row = decodeBody[dto.RowResponse](t, rec)
	assert.Equal(t, storage.RowStatusUnmatched, row.Status)
	assert.Empty(t, row.ResidentID)

	rec = doRequest(t, server, http.MethodPost, "/api/rows/"+rowID+"/skip", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	row = decodeBody[dto.RowResponse](t, rec)
	assert.Equal(t, storage.RowStatusSkipped, row.Status)
}

func TestManualMatchRequiresResident(t *testing.T) {
	server, repo := newTestServer(t)
	seedResidents(t, repo)

	rec := doRequest(t, server, http.MethodPost, "/api/rows/row-1/match", dto.ManualMatchRequest{})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResidentEndpoints(t *testing.T) {
	server, repo := newTestServer(t)
	seedResidents(t, repo)

	t.Run("create", func(t *testing.T) {
		rec := doRequest(t, server, http.MethodPost, "/api/residents", dto.ResidentRequest{
			FirstName: "Ada", LastName: "Obi", Code: "RES-003",
			Phones: []string{"08099887766"},
		})

		require.Equal(t, http.StatusCreated, rec.Code)
		resident := decodeBody[storage.Resident](t, rec)
		assert.NotEmpty(t, resident.ID)
		assert.True(t, resident.Active)
	})

	t.Run("create rejects missing code", func(t *testing.T) {
		rec := doRequest(t, server, http.MethodPost, "/api/residents", dto.ResidentRequest{
			FirstName: "No", LastName: "Code",
		})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("search filters by name", func(t *testing.T) {
		rec := doRequest(t, server, http.MethodGet, "/api/residents?search=doe", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		var list struct {
			Items []storage.Resident `json:"items"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
		require.Len(t, list.Items, 1)
		assert.Equal(t, "r1", list.Items[0].ID)
	})

	t.Run("get unknown resident", func(t *testing.T) {
		rec := doRequest(t, server, http.MethodGet, "/api/residents/nope", nil)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("update deactivates", func(t *testing.T) {
		inactive := false
		rec := doRequest(t, server, http.MethodPut, "/api/residents/r2", dto.ResidentRequest{Active: &inactive})

		require.Equal(t, http.StatusOK, rec.Code)
		resident := decodeBody[storage.Resident](t, rec)
		assert.False(t, resident.Active)
	})
}

func TestAliasEndpoints(t *testing.T) {
	server, repo := newTestServer(t)
	seedResidents(t, repo)

	rec := doRequest(t, server, http.MethodPost, "/api/aliases", dto.AliasRequest{
		ResidentID: "r1", AliasName: "Doe Ventures",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	alias := decodeBody[storage.PaymentAlias](t, rec)
	assert.Equal(t, "r1", alias.ResidentID)

	rec = doRequest(t, server, http.MethodGet, "/api/aliases?resident_id=r1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Items []storage.PaymentAlias `json:"items"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	require.Len(t, list.Items, 1)

	rec = doRequest(t, server, http.MethodPost, "/api/aliases", dto.AliasRequest{
		ResidentID: "missing", AliasName: "Ghost",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, server, http.MethodDelete, "/api/aliases/"+alias.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, server, http.MethodDelete, "/api/aliases/"+alias.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHouseEndpoints(t *testing.T) {
	server, repo := newTestServer(t)
	seedResidents(t, repo)

	rec := doRequest(t, server, http.MethodPost, "/api/houses", dto.HouseRequest{
		HouseNumber: "7B", StreetName: "Cedar Close",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	house := decodeBody[storage.House](t, rec)

	rec = doRequest(t, server, http.MethodPost, "/api/houses/"+house.ID+"/residents", dto.AssignResidentRequest{ResidentID: "r2"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, server, http.MethodGet, "/api/houses", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Items []storage.House `json:"items"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	assert.Len(t, list.Items, 2)
}

func TestJobEndpoints(t *testing.T) {
	server, _ := newTestServer(t)

	rec := doRequest(t, server, http.MethodGet, "/api/jobs/unknown", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, server, http.MethodGet, "/api/jobs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	active := decodeBody[dto.ActiveJobsResponse](t, rec)
	assert.Equal(t, 0, active.Count)

	rec = doRequest(t, server, http.MethodDelete, "/api/jobs/unknown", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestBatchRowStatusEndpoint(t *testing.T) {
	server, repo := newTestServer(t)
	seedResidents(t, repo)

	rec := uploadStatement(t, server, "statement.csv", statementCSV)
	require.Equal(t, http.StatusCreated, rec.Code)
	imp := decodeBody[storage.Import](t, rec)

	rec = doRequest(t, server, http.MethodPost, "/api/imports/"+imp.ID+"/match", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	started := decodeBody[dto.JobStartedResponse](t, rec)
	waitForJob(t, server, started.JobID)

	// Park the leftover unmatched row before processing
	rec = doRequest(t, server, http.MethodPost, "/api/imports/"+imp.ID+"/rows/status", dto.BatchRowStatusRequest{
		FromStatus: storage.RowStatusUnmatched,
		ToStatus:   storage.RowStatusSkipped,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	count := decodeBody[dto.CountResponse](t, rec)
	assert.Equal(t, 1, count.Updated)

	rec = doRequest(t, server, http.MethodPost, "/api/imports/"+imp.ID+"/rows/status", dto.BatchRowStatusRequest{
		FromStatus: storage.RowStatusMatched,
		ToStatus:   storage.RowStatusCreated,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}
