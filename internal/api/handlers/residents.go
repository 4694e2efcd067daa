package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/estateops/estate-backend/internal/api/dto"
	"github.com/estateops/estate-backend/internal/infrastructure/storage"
)

// ResidentsHandler handles resident HTTP requests.
type ResidentsHandler struct {
	*Base
}

// NewResidentsHandler creates a new residents handler.
func NewResidentsHandler(repo storage.Repository) *ResidentsHandler {
	return &ResidentsHandler{Base: NewBase(repo)}
}

// List handles GET /api/residents - lists residents, optionally filtered by a
// name or code search term.
func (h *ResidentsHandler) List(w http.ResponseWriter, r *http.Request) {
	activeOnly := ParseBoolParam(r, "active", true)
	search := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("search")))

	residents, err := h.repo.ListResidents(activeOnly)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	if search != "" {
		filtered := make([]*storage.Resident, 0, len(residents))
		for _, res := range residents {
			haystack := strings.ToLower(res.FirstName + " " + res.LastName + " " + res.Code)
			if strings.Contains(haystack, search) {
				filtered = append(filtered, res)
			}
		}
		residents = filtered
	}

	h.WriteJSON(w, http.StatusOK, dto.ListResponse{
		Items:      residents,
		TotalCount: len(residents),
		Limit:      len(residents),
		Offset:     0,
	})
}

// Create handles POST /api/residents - registers a resident.
func (h *ResidentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.ResidentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid request body"))
		return
	}
	if req.FirstName == "" || req.LastName == "" {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError("first_name and last_name are required"))
		return
	}
	if req.Code == "" {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError("code is required"))
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	resident := &storage.Resident{
		ID:        uuid.NewString(),
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Code:      req.Code,
		Email:     req.Email,
		Phones:    req.Phones,
		HouseIDs:  req.HouseIDs,
		Active:    active,
	}

	if err := h.repo.SaveResident(resident); err != nil {
		h.WriteError(w, http.StatusConflict, dto.ConflictError(err.Error()))
		return
	}

	h.WriteJSON(w, http.StatusCreated, resident)
}

// Get handles GET /api/residents/{id}.
func (h *ResidentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	resident, ok := h.loadResident(w, r)
	if !ok {
		return
	}
	h.WriteJSON(w, http.StatusOK, resident)
}

// Update handles PUT /api/residents/{id}.
func (h *ResidentsHandler) Update(w http.ResponseWriter, r *http.Request) {
	resident, ok := h.loadResident(w, r)
	if !ok {
		return
	}

	var req dto.ResidentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid request body"))
		return
	}

	if req.FirstName != "" {
		resident.FirstName = req.FirstName
	}
	if req.LastName != "" {
		resident.LastName = req.LastName
	}
	if req.Code != "" {
		resident.Code = req.Code
	}
	if req.Email != "" {
		resident.Email = req.Email
	}
	if req.Phones != nil {
		resident.Phones = req.Phones
	}
	if req.HouseIDs != nil {
		resident.HouseIDs = req.HouseIDs
	}
	if req.Active != nil {
		resident.Active = *req.Active
	}

	if err := h.repo.SaveResident(resident); err != nil {
		h.WriteError(w, http.StatusConflict, dto.ConflictError(err.Error()))
		return
	}

	h.WriteJSON(w, http.StatusOK, resident)
}

// Payments handles GET /api/residents/{id}/payments - the resident's payment
// history, newest first.
func (h *ResidentsHandler) Payments(w http.ResponseWriter, r *http.Request) {
	resident, ok := h.loadResident(w, r)
	if !ok {
		return
	}

	limit := ParseIntParam(r, "limit", 50)

	payments, err := h.repo.ListPaymentsForResident(resident.ID, limit)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.ListResponse{
		Items:      payments,
		TotalCount: len(payments),
		Limit:      limit,
		Offset:     0,
	})
}

func (h *ResidentsHandler) loadResident(w http.ResponseWriter, r *http.Request) (*storage.Resident, bool) {
	residentID := chi.URLParam(r, "id")
	if residentID == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("resident ID is required"))
		return nil, false
	}

	resident, err := h.repo.GetResident(residentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			h.WriteError(w, http.StatusNotFound, dto.NotFoundError("resident"))
			return nil, false
		}
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return nil, false
	}

	return resident, true
}
