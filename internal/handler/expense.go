package handler

import (
	"net/http"
	"time"

	"github.com/tripsplit/tripsplit/internal/calculator"
	"github.com/tripsplit/tripsplit/internal/middleware"
	"github.com/tripsplit/tripsplit/internal/models"
	"github.com/tripsplit/tripsplit/internal/service"
)

// ExpenseHandler serves expense and balance endpoints.
type ExpenseHandler struct {
	expenses *service.ExpenseService
}

func NewExpenseHandler(expenses *service.ExpenseService) *ExpenseHandler {
	return &ExpenseHandler{expenses: expenses}
}

type shareRequest struct {
	ParticipantID string  `json:"participantId"`
	Percentage    float64 `json:"percentage"`
}

type createExpenseRequest struct {
	Description string         `json:"description"`
	Amount      float64        `json:"amount"`
	Date        *time.Time     `json:"date"`
	PayerID     string         `json:"payerId"`
	Shares      []shareRequest `json:"shares"`
}

type updateExpenseRequest struct {
	Description *string        `json:"description"`
	Amount      *float64       `json:"amount"`
	Date        *time.Time     `json:"date"`
	Shares      []shareRequest `json:"shares"`
}

type shareResponse struct {
	ID              string  `json:"id"`
	ParticipantID   string  `json:"participantId"`
	Percentage      float64 `json:"percentage"`
	CalculatedShare float64 `json:"calculatedShare"`
}

type expenseResponse struct {
	ID          string          `json:"id"`
	TripID      string          `json:"tripId"`
	Description string          `json:"description"`
	Amount      float64         `json:"amount"`
	Date        time.Time       `json:"date"`
	PaidByID    string          `json:"paidById"`
	PaidByName  string          `json:"paidByName,omitempty"`
	Shares      []shareResponse `json:"shares"`
	CreatedAt   int64           `json:"createdAt"`
}

type balanceResponse struct {
	Paid float64 `json:"paid"`
	Owed float64 `json:"owed"`
	Net  float64 `json:"net"`
}

type balanceSheetResponse struct {
	Balances  map[string]balanceResponse `json:"balances"`
	TripTotal float64                    `json:"tripTotal"`
}

func toShareInputs(shares []shareRequest) []calculator.ShareInput {
	if shares == nil {
		return nil
	}
	inputs := make([]calculator.ShareInput, len(shares))
	for i, sh := range shares {
		inputs[i] = calculator.ShareInput{ParticipantID: sh.ParticipantID, Percentage: sh.Percentage}
	}
	return inputs
}

func toExpenseResponse(e *models.Expense) expenseResponse {
	resp := expenseResponse{
		ID:          e.ID,
		TripID:      e.TripID,
		Description: e.Description,
		Amount:      e.Amount,
		Date:        e.Date,
		PaidByID:    e.PaidByID,
		PaidByName:  e.PaidByName,
		Shares:      make([]shareResponse, len(e.Shares)),
		CreatedAt:   e.CreatedAt,
	}
	for i, sh := range e.Shares {
		resp.Shares[i] = shareResponse{
			ID:              sh.ID,
			ParticipantID:   sh.ParticipantID,
			Percentage:      sh.Percentage,
			CalculatedShare: sh.CalculatedShare,
		}
	}
	return resp
}

// Create handles POST /api/trips/{tripID}/expenses.
func (h *ExpenseHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createExpenseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	in := service.CreateExpenseInput{
		Description: req.Description,
		Amount:      req.Amount,
		PayerID:     req.PayerID,
		Shares:      toShareInputs(req.Shares),
	}
	if req.Date != nil {
		in.Date = *req.Date
	}

	expense, err := h.expenses.Create(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("tripID"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toExpenseResponse(expense))
}

// Update handles PATCH /api/expenses/{expenseID}.
func (h *ExpenseHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateExpenseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	expense, err := h.expenses.Update(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("expenseID"), service.UpdateExpenseInput{
		Description: req.Description,
		Amount:      req.Amount,
		Date:        req.Date,
		Shares:      toShareInputs(req.Shares),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseResponse(expense))
}

// Delete handles DELETE /api/expenses/{expenseID}.
func (h *ExpenseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.expenses.Delete(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("expenseID")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// Balances handles GET /api/trips/{tripID}/balances.
func (h *ExpenseHandler) Balances(w http.ResponseWriter, r *http.Request) {
	sheet, err := h.expenses.Balances(r.Context(), middleware.GetUserID(r.Context()), r.PathValue("tripID"))
	if err != nil {
		writeError(w, err)
		return
	}

	resp := balanceSheetResponse{
		Balances:  make(map[string]balanceResponse, len(sheet.Balances)),
		TripTotal: sheet.TripTotal,
	}
	for id, b := range sheet.Balances {
		resp.Balances[id] = balanceResponse{Paid: b.Paid, Owed: b.Owed, Net: b.Net}
	}
	writeJSON(w, http.StatusOK, resp)
}
