package allocationhandlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	allocationservice "github.com/crossed-lances/tablemaster/app/modules/allocation/application"
	allocationdomain "github.com/crossed-lances/tablemaster/app/modules/allocation/domain"
	"github.com/crossed-lances/tablemaster/app/shared/sharedtypes"
)

// AllocationHandlers exposes the allocation service over HTTP.
type AllocationHandlers struct {
	service allocationservice.Service
	logger  *slog.Logger
}

// NewAllocationHandlers creates the handler set.
func NewAllocationHandlers(service allocationservice.Service, logger *slog.Logger) *AllocationHandlers {
	return &AllocationHandlers{service: service, logger: logger}
}

// PlayerRequest is one player inside a submitted pairing.
type PlayerRequest struct {
	ID         sharedtypes.PlayerID   `json:"id"`
	Name       sharedtypes.PlayerName `json:"name"`
	RoundScore sharedtypes.Score      `json:"round_score"`
	TotalScore sharedtypes.Score      `json:"total_score"`
}

// PairingRequest is one pairing inside a generation request. Player2 is nil
// for a bye; OriginTableNumber carries the round 1 seating hint.
type PairingRequest struct {
	Player1           PlayerRequest            `json:"player1"`
	Player2           *PlayerRequest           `json:"player2,omitempty"`
	OriginTableNumber *sharedtypes.TableNumber `json:"origin_table_number,omitempty"`
}

// GenerateRequest is the body of POST /rounds/{roundID}/allocations.
type GenerateRequest struct {
	Pairings []PairingRequest `json:"pairings"`
}

// EditRequest is the body of PUT /allocations/{allocationID}/table.
type EditRequest struct {
	NewTableID uuid.UUID `json:"new_table_id"`
}

// SwapRequest is the body of POST /allocations/swap.
type SwapRequest struct {
	AllocationID1 uuid.UUID `json:"allocation_id_1"`
	AllocationID2 uuid.UUID `json:"allocation_id_2"`
}

func toPlayer(p PlayerRequest) allocationdomain.Player {
	return allocationdomain.Player{
		ID:         p.ID,
		Name:       p.Name,
		RoundScore: p.RoundScore,
		TotalScore: p.TotalScore,
	}
}

// pairings converts the request DTOs into engine pairings. A missing or
// empty-ID player2 means a bye.
func (req GenerateRequest) pairings() []allocationdomain.Pairing {
	pairings := make([]allocationdomain.Pairing, 0, len(req.Pairings))
	for _, p := range req.Pairings {
		if p.Player2 == nil || p.Player2.ID == "" {
			pairings = append(pairings, allocationdomain.NewByePairing(toPlayer(p.Player1)))
			continue
		}
		pairings = append(pairings, allocationdomain.NewRegularPairing(
			toPlayer(p.Player1), toPlayer(*p.Player2), p.OriginTableNumber))
	}
	return pairings
}

// GenerateAllocations builds and persists the table assignments for a round
// from the submitted pairings. Re-posting replaces the round's allocations.
func (h *AllocationHandlers) GenerateAllocations(w http.ResponseWriter, r *http.Request) {
	roundID, err := uuid.Parse(chi.URLParam(r, "roundID"))
	if err != nil {
		http.Error(w, "Invalid round ID", http.StatusBadRequest)
		return
	}

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Failed to decode request body: %v", err), http.StatusBadRequest)
		return
	}
	if len(req.Pairings) == 0 {
		http.Error(w, "At least one pairing is required", http.StatusBadRequest)
		return
	}

	result, err := h.service.GenerateForRound(r.Context(), roundID, req.pairings())
	if err != nil {
		h.writeServiceError(w, r, err, "Failed to generate allocations")
		return
	}

	writeJSON(w, h.logger, r, http.StatusCreated, result)
}

// GetRoundAllocations returns the stored allocations for a round.
func (h *AllocationHandlers) GetRoundAllocations(w http.ResponseWriter, r *http.Request) {
	roundID, err := uuid.Parse(chi.URLParam(r, "roundID"))
	if err != nil {
		http.Error(w, "Invalid round ID", http.StatusBadRequest)
		return
	}

	result, err := h.service.GetRoundAllocations(r.Context(), roundID)
	if err != nil {
		h.writeServiceError(w, r, err, "Failed to fetch allocations")
		return
	}

	writeJSON(w, h.logger, r, http.StatusOK, result)
}

// EditTableAssignment moves one allocation to a different table. A collision
// with another allocation is reported inside the response, not as an HTTP
// error.
func (h *AllocationHandlers) EditTableAssignment(w http.ResponseWriter, r *http.Request) {
	allocationID, err := uuid.Parse(chi.URLParam(r, "allocationID"))
	if err != nil {
		http.Error(w, "Invalid allocation ID", http.StatusBadRequest)
		return
	}

	var req EditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Failed to decode request body: %v", err), http.StatusBadRequest)
		return
	}
	if req.NewTableID == uuid.Nil {
		http.Error(w, "new_table_id is required", http.StatusBadRequest)
		return
	}

	result, err := h.service.EditTableAssignment(r.Context(), allocationID, req.NewTableID)
	if err != nil {
		h.writeServiceError(w, r, err, "Failed to edit allocation")
		return
	}

	writeJSON(w, h.logger, r, http.StatusOK, result)
}

// SwapTables exchanges the tables of two allocations in the same round.
func (h *AllocationHandlers) SwapTables(w http.ResponseWriter, r *http.Request) {
	var req SwapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Failed to decode request body: %v", err), http.StatusBadRequest)
		return
	}
	if req.AllocationID1 == uuid.Nil || req.AllocationID2 == uuid.Nil {
		http.Error(w, "Both allocation IDs are required", http.StatusBadRequest)
		return
	}

	result, err := h.service.SwapTables(r.Context(), req.AllocationID1, req.AllocationID2)
	if err != nil {
		h.writeServiceError(w, r, err, "Failed to swap allocations")
		return
	}

	writeJSON(w, h.logger, r, http.StatusOK, result)
}

func (h *AllocationHandlers) writeServiceError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	switch {
	case errors.Is(err, allocationservice.ErrRoundNotFound),
		errors.Is(err, allocationservice.ErrAllocationNotFound),
		errors.Is(err, allocationservice.ErrTableNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, allocationservice.ErrSameAllocation),
		errors.Is(err, allocationservice.ErrCrossRoundSwap):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.ErrorContext(r.Context(), msg, slog.Any("error", err))
		http.Error(w, fmt.Sprintf("%s: %v", msg, err), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, r *http.Request, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.ErrorContext(r.Context(), "Failed to encode response", slog.Any("error", err))
	}
}

// Routes wires the allocation endpoints.
func (h *AllocationHandlers) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/rounds/{roundID}/allocations", h.GenerateAllocations)
	r.Get("/rounds/{roundID}/allocations", h.GetRoundAllocations)
	r.Put("/allocations/{allocationID}/table", h.EditTableAssignment)
	r.Post("/allocations/swap", h.SwapTables)
	return r
}
