package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/estateops/estate-backend/internal/api/dto"
	"github.com/estateops/estate-backend/internal/infrastructure/storage"
)

// AliasesHandler handles payment alias HTTP requests.
type AliasesHandler struct {
	*Base
}

// NewAliasesHandler creates a new aliases handler.
func NewAliasesHandler(repo storage.Repository) *AliasesHandler {
	return &AliasesHandler{Base: NewBase(repo)}
}

// List handles GET /api/aliases - lists aliases, optionally for one resident.
func (h *AliasesHandler) List(w http.ResponseWriter, r *http.Request) {
	residentID := r.URL.Query().Get("resident_id")

	aliases, err := h.repo.ListAliases(residentID)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.ListResponse{
		Items:      aliases,
		TotalCount: len(aliases),
		Limit:      len(aliases),
		Offset:     0,
	})
}

// Create handles POST /api/aliases - registers an alias for a resident.
func (h *AliasesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.AliasRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid request body"))
		return
	}
	if req.ResidentID == "" || req.AliasName == "" {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError("resident_id and alias_name are required"))
		return
	}

	if _, err := h.repo.GetResident(req.ResidentID); err != nil {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("resident"))
		return
	}

	alias := &storage.PaymentAlias{
		ID:         uuid.NewString(),
		ResidentID: req.ResidentID,
		AliasName:  req.AliasName,
	}

	if err := h.repo.SaveAlias(alias); err != nil {
		h.WriteError(w, http.StatusConflict, dto.ConflictError(err.Error()))
		return
	}

	h.WriteJSON(w, http.StatusCreated, alias)
}

// Delete handles DELETE /api/aliases/{id}.
func (h *AliasesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	aliasID := chi.URLParam(r, "id")
	if aliasID == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("alias ID is required"))
		return
	}

	if err := h.repo.DeleteAlias(aliasID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			h.WriteError(w, http.StatusNotFound, dto.NotFoundError("alias"))
			return
		}
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.MessageResponse{Message: "alias deleted"})
}
