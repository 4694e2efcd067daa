package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/estateops/estate-backend/internal/api/dto"
	"github.com/estateops/estate-backend/internal/application/importer"
	"github.com/estateops/estate-backend/internal/infrastructure/storage"
)

// maxUploadSize caps statement uploads at 10 MB.
const maxUploadSize = 10 << 20

// ImportsHandler handles statement import HTTP requests.
type ImportsHandler struct {
	*Base
	importer *importer.Importer
	jobs     *importer.Service
}

// NewImportsHandler creates a new imports handler.
func NewImportsHandler(repo storage.Repository, imp *importer.Importer, jobs *importer.Service) *ImportsHandler {
	return &ImportsHandler{
		Base:     NewBase(repo),
		importer: imp,
		jobs:     jobs,
	}
}

// Create handles POST /api/imports - uploads and parses a bank statement.
// Expects a multipart form with a "file" part and an optional "submitted_by"
// field.
func (h *ImportsHandler) Create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("expected a multipart file upload"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("file is required"))
		return
	}
	defer func() { _ = file.Close() }()

	content, err := io.ReadAll(file)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("could not read uploaded file"))
		return
	}

	submittedBy := r.FormValue("submitted_by")

	imp, err := h.importer.CreateImport(header.Filename, content, submittedBy)
	if err != nil {
		var dup *importer.ErrDuplicateImport
		if errors.As(err, &dup) {
			h.WriteError(w, http.StatusConflict, dto.ConflictError(err.Error()))
			return
		}
		h.WriteError(w, http.StatusUnprocessableEntity, dto.ValidationError(err.Error()))
		return
	}

	h.WriteJSON(w, http.StatusCreated, imp)
}

// List handles GET /api/imports - returns paginated imports, newest first.
func (h *ImportsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := ParseIntParam(r, "limit", 20)
	offset := ParseIntParam(r, "offset", 0)

	imports, total, err := h.repo.ListImports(limit, offset)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.ListResponse{
		Items:      imports,
		TotalCount: total,
		Limit:      limit,
		Offset:     offset,
	})
}

// Get handles GET /api/imports/{id} - returns a single import.
func (h *ImportsHandler) Get(w http.ResponseWriter, r *http.Request) {
	imp, ok := h.loadImport(w, r)
	if !ok {
		return
	}
	h.WriteJSON(w, http.StatusOK, imp)
}

// ListRows handles GET /api/imports/{id}/rows - returns the import's rows,
// optionally filtered by status.
func (h *ImportsHandler) ListRows(w http.ResponseWriter, r *http.Request) {
	imp, ok := h.loadImport(w, r)
	if !ok {
		return
	}

	filters := storage.RowFilters{
		Status: r.URL.Query().Get("status"),
		Limit:  ParseIntParam(r, "limit", 100),
		Offset: ParseIntParam(r, "offset", 0),
	}

	rows, total, err := h.repo.ListRows(imp.ID, filters)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	items := make([]dto.RowResponse, 0, len(rows))
	for _, row := range rows {
		items = append(items, dto.NewRowResponse(row))
	}

	h.WriteJSON(w, http.StatusOK, dto.ListResponse{
		Items:      items,
		TotalCount: total,
		Limit:      filters.Limit,
		Offset:     filters.Offset,
	})
}

// Match handles POST /api/imports/{id}/match - starts a background matching
// job for the import.
func (h *ImportsHandler) Match(w http.ResponseWriter, r *http.Request) {
	imp, ok := h.loadImport(w, r)
	if !ok {
		return
	}

	jobID, err := h.jobs.StartMatch(r.Context(), imp.ID)
	if err != nil {
		h.WriteError(w, http.StatusConflict, dto.ConflictError(err.Error()))
		return
	}

	h.WriteJSON(w, http.StatusAccepted, dto.JobStartedResponse{JobID: jobID})
}

// Process handles POST /api/imports/{id}/process - starts a background job
// that creates payment records from the import's matched rows.
func (h *ImportsHandler) Process(w http.ResponseWriter, r *http.Request) {
	imp, ok := h.loadImport(w, r)
	if !ok {
		return
	}

	var req dto.ProcessRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid request body"))
			return
		}
	}

	opts := importer.ProcessOptions{
		Atomic:         req.Atomic,
		SkipDuplicates: req.SkipDuplicates,
		SkipUnmatched:  req.SkipUnmatched,
	}

	jobID, err := h.jobs.StartProcess(r.Context(), imp.ID, opts)
	if err != nil {
		h.WriteError(w, http.StatusConflict, dto.ConflictError(err.Error()))
		return
	}

	h.WriteJSON(w, http.StatusAccepted, dto.JobStartedResponse{JobID: jobID})
}

// Submit handles POST /api/imports/{id}/submit - submits a matched import for
// approval.
func (h *ImportsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	imp, ok := h.loadImport(w, r)
	if !ok {
		return
	}

	var req dto.SubmitRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid request body"))
			return
		}
	}

	updated, err := h.importer.SubmitForApproval(imp.ID, req.SubmittedBy)
	if err != nil {
		h.WriteError(w, http.StatusConflict, dto.ConflictError(err.Error()))
		return
	}

	h.WriteJSON(w, http.StatusOK, updated)
}

// Approve handles POST /api/imports/{id}/approve.
func (h *ImportsHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, h.importer.Approve)
}

// Reject handles POST /api/imports/{id}/reject.
func (h *ImportsHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, h.importer.Reject)
}

// BatchRowStatus handles POST /api/imports/{id}/rows/status - moves every row
// in one status to another, e.g. unmatched to skipped before processing.
func (h *ImportsHandler) BatchRowStatus(w http.ResponseWriter, r *http.Request) {
	imp, ok := h.loadImport(w, r)
	if !ok {
		return
	}

	var req dto.BatchRowStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid request body"))
		return
	}
	if req.FromStatus == "" || req.ToStatus == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("from_status and to_status are required"))
		return
	}

	updated, err := h.importer.BatchUpdateRowStatus(imp.ID, req.FromStatus, req.ToStatus)
	if err != nil {
		h.WriteError(w, http.StatusConflict, dto.ConflictError(err.Error()))
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.CountResponse{Updated: updated})
}

func (h *ImportsHandler) review(w http.ResponseWriter, r *http.Request, fn func(importID, reviewedBy, note string) (*storage.Import, error)) {
	imp, ok := h.loadImport(w, r)
	if !ok {
		return
	}

	req, ok := h.decodeReview(w, r)
	if !ok {
		return
	}
	if req.ReviewedBy == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("reviewed_by is required"))
		return
	}

	updated, err := fn(imp.ID, req.ReviewedBy, req.Note)
	if err != nil {
		h.WriteError(w, http.StatusConflict, dto.ConflictError(err.Error()))
		return
	}

	h.WriteJSON(w, http.StatusOK, updated)
}

func (h *ImportsHandler) decodeReview(w http.ResponseWriter, r *http.Request) (dto.ReviewRequest, bool) {
	var req dto.ReviewRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid request body"))
			return req, false
		}
	}
	return req, true
}

func (h *ImportsHandler) loadImport(w http.ResponseWriter, r *http.Request) (*storage.Import, bool) {
	importID := chi.URLParam(r, "id")
	if importID == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("import ID is required"))
		return nil, false
	}

	imp, err := h.repo.GetImport(importID)
	if err != nil {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("import"))
		return nil, false
	}

	return imp, true
}
