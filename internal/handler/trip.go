package handler

import (
	"net/http"

	"github.com/tripsplit/tripsplit/internal/middleware"
	"github.com/tripsplit/tripsplit/internal/models"
	"github.com/tripsplit/tripsplit/internal/service"
)

// TripHandler serves trip and participant endpoints.
type TripHandler struct {
	trips *service.TripService
}

func NewTripHandler(trips *service.TripService) *TripHandler {
	return &TripHandler{trips: trips}
}

type tripRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type participantUserResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type participantResponse struct {
	ID          string                   `json:"id"`
	DisplayName string                   `json:"displayName"`
	Registered  bool                     `json:"registered"`
	User        *participantUserResponse `json:"user,omitempty"`
}

type tripResponse struct {
	ID           string                `json:"id"`
	Name         string                `json:"name"`
	Description  string                `json:"description"`
	OwnerID      string                `json:"ownerId"`
	Participants []participantResponse `json:"participants,omitempty"`
	Expenses     []expenseResponse     `json:"expenses,omitempty"`
	CreatedAt    int64                 `json:"createdAt"`
	UpdatedAt    int64                 `json:"updatedAt"`
}

func toParticipantResponse(p *models.Participant) participantResponse {
	resp := participantResponse{
		ID:          p.ID,
		DisplayName: p.DisplayName(),
		Registered:  p.Registered(),
	}
	if p.User != nil {
		resp.User = &participantUserResponse{
			ID:       p.User.ID,
			Username: p.User.Username,
			Email:    p.User.Email,
		}
	}
	return resp
}

func toTripResponse(t *models.Trip) tripResponse {
	resp := tripResponse{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		OwnerID:     t.OwnerID,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	for i := range t.Participants {
		resp.Participants = append(resp.Participants, toParticipantResponse(&t.Participants[i]))
	}
	for i := range t.Expenses {
		resp.Expenses = append(resp.Expenses, toExpenseResponse(&t.Expenses[i]))
	}
	return resp
}

// Create handles POST /api/trips.
func (h *TripHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req tripRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	trip, err := h.trips.Create(r.Context(), middleware.GetUserID(r.Context()), req.Name, req.Description)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTripResponse(trip))
}

// Get handles GET /api/trips/{tripID}.
func (h *TripHandler) Get(w http.ResponseWriter, r *http.Request) {
	trip, err := h.trips.Get(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("tripID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTripResponse(trip))
}

// List handles GET /api/trips.
func (h *TripHandler) List(w http.ResponseWriter, r *http.Request) {
	trips, err := h.trips.List(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]tripResponse, len(trips))
	for i := range trips {
		resp[i] = toTripResponse(&trips[i])
	}
	writeJSON(w, http.StatusOK, resp)
}

// Update handles PATCH /api/trips/{tripID}.
func (h *TripHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req tripRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	trip, err := h.trips.Update(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("tripID"), req.Name, req.Description)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTripResponse(trip))
}

// Delete handles DELETE /api/trips/{tripID}.
func (h *TripHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.trips.Delete(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("tripID")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

type addParticipantRequest struct {
	Email         string `json:"email"`
	Username      string `json:"username"`
	ArbitraryName string `json:"arbitraryName"`
}

// AddParticipant handles POST /api/trips/{tripID}/participants.
func (h *TripHandler) AddParticipant(w http.ResponseWriter, r *http.Request) {
	var req addParticipantRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	participant, err := h.trips.AddParticipant(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("tripID"), service.AddParticipantInput{
		Email:         req.Email,
		Username:      req.Username,
		ArbitraryName: req.ArbitraryName,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toParticipantResponse(participant))
}
