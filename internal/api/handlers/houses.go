package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/estateops/estate-backend/internal/api/dto"
	"github.com/estateops/estate-backend/internal/infrastructure/storage"
)

// HousesHandler handles house HTTP requests.
type HousesHandler struct {
	*Base
}

// NewHousesHandler creates a new houses handler.
func NewHousesHandler(repo storage.Repository) *HousesHandler {
	return &HousesHandler{Base: NewBase(repo)}
}

// List handles GET /api/houses.
func (h *HousesHandler) List(w http.ResponseWriter, r *http.Request) {
	houses, err := h.repo.ListHouses()
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.ListResponse{
		Items:      houses,
		TotalCount: len(houses),
		Limit:      len(houses),
		Offset:     0,
	})
}

// Create handles POST /api/houses.
func (h *HousesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.HouseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid request body"))
		return
	}
	if req.HouseNumber == "" {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError("house_number is required"))
		return
	}

	house := &storage.House{
		ID:          uuid.NewString(),
		HouseNumber: req.HouseNumber,
		StreetName:  req.StreetName,
	}

	if err := h.repo.SaveHouse(house); err != nil {
		h.WriteError(w, http.StatusConflict, dto.ConflictError(err.Error()))
		return
	}

	h.WriteJSON(w, http.StatusCreated, house)
}

// AssignResident handles POST /api/houses/{id}/residents - links a resident
// to the house.
func (h *HousesHandler) AssignResident(w http.ResponseWriter, r *http.Request) {
	houseID := chi.URLParam(r, "id")
	if houseID == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("house ID is required"))
		return
	}

	var req dto.AssignResidentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid request body"))
		return
	}
	if req.ResidentID == "" {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError("resident_id is required"))
		return
	}

	if _, err := h.repo.GetResident(req.ResidentID); err != nil {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("resident"))
		return
	}

	if err := h.repo.AssignResident(houseID, req.ResidentID); err != nil {
		h.WriteError(w, http.StatusConflict, dto.ConflictError(err.Error()))
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.MessageResponse{Message: "resident assigned"})
}
