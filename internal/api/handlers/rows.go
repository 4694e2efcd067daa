package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/estateops/estate-backend/internal/api/dto"
	"github.com/estateops/estate-backend/internal/application/importer"
	"github.com/estateops/estate-backend/internal/infrastructure/storage"
)

// RowsHandler handles row-level match review requests.
type RowsHandler struct {
	*Base
	importer *importer.Importer
}

// NewRowsHandler creates a new rows handler.
func NewRowsHandler(repo storage.Repository, imp *importer.Importer) *RowsHandler {
	return &RowsHandler{
		Base:     NewBase(repo),
		importer: imp,
	}
}

// Get handles GET /api/rows/{id} - returns a single row with its candidates.
func (h *RowsHandler) Get(w http.ResponseWriter, r *http.Request) {
	rowID := chi.URLParam(r, "id")
	if rowID == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("row ID is required"))
		return
	}

	row, err := h.repo.GetRow(rowID)
	if err != nil {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("row"))
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.NewRowResponse(row))
}

// ManualMatch handles POST /api/rows/{id}/match - assigns the row to a
// resident chosen by the reviewer.
func (h *RowsHandler) ManualMatch(w http.ResponseWriter, r *http.Request) {
	rowID := chi.URLParam(r, "id")
	if rowID == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("row ID is required"))
		return
	}

	var req dto.ManualMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid request body"))
		return
	}
	if req.ResidentID == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("resident_id is required"))
		return
	}

	row, err := h.importer.ManualMatch(rowID, req.ResidentID, req.HouseID, req.SaveAsAlias)
	if err != nil {
		h.WriteError(w, http.StatusConflict, dto.ConflictError(err.Error()))
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.NewRowResponse(row))
}

// Unmatch handles POST /api/rows/{id}/unmatch - clears the row's match.
func (h *RowsHandler) Unmatch(w http.ResponseWriter, r *http.Request) {
	h.rowOp(w, r, h.importer.Unmatch)
}

// Skip handles POST /api/rows/{id}/skip - excludes the row from processing.
func (h *RowsHandler) Skip(w http.ResponseWriter, r *http.Request) {
	h.rowOp(w, r, h.importer.Skip)
}

func (h *RowsHandler) rowOp(w http.ResponseWriter, r *http.Request, fn func(rowID string) (*storage.ImportRow, error)) {
	rowID := chi.URLParam(r, "id")
	if rowID == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("row ID is required"))
		return
	}

	row, err := fn(rowID)
	if err != nil {
		h.WriteError(w, http.StatusConflict, dto.ConflictError(err.Error()))
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.NewRowResponse(row))
}
