package service

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/tripsplit/tripsplit/internal/calculator"
	"github.com/tripsplit/tripsplit/internal/models"
	"github.com/tripsplit/tripsplit/internal/storage"
)

// ExpenseService implements the expense-split ledger operations:
// create, update and delete expenses with percentage shares, and
// aggregate a trip's balance sheet.
type ExpenseService struct {
	store storage.Store
}

// NewExpenseService creates a new ExpenseService with the given storage backend.
func NewExpenseService(store storage.Store) *ExpenseService {
	return &ExpenseService{store: store}
}

// CreateExpenseInput carries a proposed new expense. A zero Date
// defaults to now; an empty PayerID defaults to the caller.
type CreateExpenseInput struct {
	Description string
	Amount      float64
	Date        time.Time
	PayerID     string
	Shares      []calculator.ShareInput
}

// Create validates and persists a new expense with its shares as one
// atomic operation. The caller must be a participant or the owner of
// the trip; the payer must be a registered participant or the owner.
// Calculated shares are snapshotted here (amount * percentage / 100)
// rather than derived on read.
func (s *ExpenseService) Create(ctx context.Context, userID, tripID string, in CreateExpenseInput) (*models.Expense, error) {
	trip, err := s.store.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if !trip.HasMember(userID) {
		return nil, ErrForbidden
	}

	if strings.TrimSpace(in.Description) == "" {
		return nil, &InvalidInputError{Field: "description", Reason: "must not be empty"}
	}
	if in.Amount <= 0 {
		return nil, &InvalidInputError{Field: "amount", Reason: "must be greater than zero"}
	}

	payerID := in.PayerID
	if payerID == "" {
		payerID = userID
	}
	if payerID != trip.OwnerID && trip.ParticipantByUser(payerID) == nil {
		return nil, &InvalidInputError{Field: "payerId", Reason: "payer must be a trip participant or the trip owner"}
	}

	if err := calculator.ValidateShares(in.Shares, trip.ParticipantIDs()); err != nil {
		slog.Warn("Expense rejected", "trip_id", tripID, "error", err)
		return nil, err
	}

	date := in.Date
	if date.IsZero() {
		date = time.Now()
	}

	expense := &models.Expense{
		TripID:      tripID,
		Description: in.Description,
		Amount:      in.Amount,
		Date:        date,
		PaidByID:    payerID,
	}
	for _, c := range calculator.ComputeShares(in.Amount, in.Shares) {
		expense.Shares = append(expense.Shares, models.Share{
			ParticipantID:   c.ParticipantID,
			Percentage:      c.Percentage,
			CalculatedShare: c.Amount,
		})
	}

	if err := s.store.CreateExpense(ctx, expense); err != nil {
		slog.Error("CreateExpense failed", "trip_id", tripID, "error", err)
		return nil, err
	}
	slog.Info("Expense created", "trip_id", tripID, "expense_id", expense.ID, "amount", expense.Amount)
	return expense, nil
}

// UpdateExpenseInput carries a partial expense update. Nil fields are
// left unchanged. A non-nil Shares slice fully replaces the stored
// share set.
type UpdateExpenseInput struct {
	Description *string
	Amount      *float64
	Date        *time.Time
	Shares      []calculator.ShareInput
}

// Update applies a partial update to an expense. Only the payer or the
// trip owner may modify an expense.
//
// When a replacement share list is supplied it is validated against
// the trip's current membership and every calculated share is
// recomputed from the effective amount: the new amount if one was
// supplied in the same call, else the stored amount. Without a
// replacement share list the stored shares are left untouched even if
// the amount changed; the resulting staleness is logged rather than
// silently recomputed, since calculated shares are snapshots by design.
//
// Validation happens before any write, and the write itself is a
// single transaction, so a rejected update leaves the expense exactly
// as it was.
func (s *ExpenseService) Update(ctx context.Context, userID, expenseID string, in UpdateExpenseInput) (*models.Expense, error) {
	expense, err := s.store.GetExpense(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	trip, err := s.store.GetTrip(ctx, expense.TripID)
	if err != nil {
		return nil, err
	}
	if expense.PaidByID != userID && trip.OwnerID != userID {
		return nil, ErrForbidden
	}

	if in.Description != nil {
		if strings.TrimSpace(*in.Description) == "" {
			return nil, &InvalidInputError{Field: "description", Reason: "must not be empty"}
		}
		expense.Description = *in.Description
	}
	if in.Amount != nil {
		if *in.Amount <= 0 {
			return nil, &InvalidInputError{Field: "amount", Reason: "must be greater than zero"}
		}
		expense.Amount = *in.Amount
	}
	if in.Date != nil {
		expense.Date = *in.Date
	}

	replaceShares := in.Shares != nil
	if replaceShares {
		if err := calculator.ValidateShares(in.Shares, trip.ParticipantIDs()); err != nil {
			slog.Warn("Expense update rejected", "expense_id", expenseID, "error", err)
			return nil, err
		}
		// expense.Amount already reflects the new amount when both
		// changed in this call, so the recompute uses the effective
		// amount.
		expense.Shares = nil
		for _, c := range calculator.ComputeShares(expense.Amount, in.Shares) {
			expense.Shares = append(expense.Shares, models.Share{
				ExpenseID:       expense.ID,
				ParticipantID:   c.ParticipantID,
				Percentage:      c.Percentage,
				CalculatedShare: c.Amount,
			})
		}
	} else if in.Amount != nil {
		stored := 0.0
		for _, sh := range expense.Shares {
			stored += sh.CalculatedShare
		}
		if math.Abs(stored-expense.Amount) > calculator.SumTolerance {
			slog.Warn("Amount changed without a replacement share list; stored calculated shares are stale",
				"expense_id", expenseID,
				"amount", expense.Amount,
				"calculated_share_total", stored,
			)
		}
	}

	if err := s.store.UpdateExpense(ctx, expense, replaceShares); err != nil {
		slog.Error("UpdateExpense failed", "expense_id", expenseID, "error", err)
		return nil, err
	}
	slog.Info("Expense updated", "expense_id", expenseID, "shares_replaced", replaceShares)
	return expense, nil
}

// Delete removes an expense and all its shares. Only the payer or the
// trip owner may delete an expense. Other expenses' balances are only
// affected by losing this expense's own contribution.
func (s *ExpenseService) Delete(ctx context.Context, userID, expenseID string) error {
	expense, err := s.store.GetExpense(ctx, expenseID)
	if err != nil {
		return err
	}
	trip, err := s.store.GetTrip(ctx, expense.TripID)
	if err != nil {
		return err
	}
	if expense.PaidByID != userID && trip.OwnerID != userID {
		return ErrForbidden
	}

	if err := s.store.DeleteExpense(ctx, expenseID); err != nil {
		slog.Error("DeleteExpense failed", "expense_id", expenseID, "error", err)
		return err
	}
	slog.Info("Expense deleted", "expense_id", expenseID, "trip_id", expense.TripID)
	return nil
}

// Balances aggregates the trip's balance sheet from its current
// participant and expense snapshot. The caller must be a participant
// or the trip owner. A failed zero-sum check is logged as a
// data-consistency diagnostic; the sheet is still returned unmodified.
func (s *ExpenseService) Balances(ctx context.Context, userID, tripID string) (*calculator.BalanceSheet, error) {
	trip, err := s.store.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if !trip.HasMember(userID) {
		return nil, ErrForbidden
	}

	participants := make([]calculator.ParticipantRef, len(trip.Participants))
	for i := range trip.Participants {
		participants[i] = calculator.ParticipantRef{
			ID:     trip.Participants[i].ID,
			UserID: trip.Participants[i].UserID(),
		}
	}

	expenses := make([]calculator.ExpenseForBalance, len(trip.Expenses))
	for i := range trip.Expenses {
		e := &trip.Expenses[i]
		shares := make([]calculator.ShareForBalance, len(e.Shares))
		for j, sh := range e.Shares {
			shares[j] = calculator.ShareForBalance{
				ParticipantID: sh.ParticipantID,
				Amount:        sh.CalculatedShare,
			}
		}
		expenses[i] = calculator.ExpenseForBalance{
			Amount:      e.Amount,
			PayerUserID: e.PaidByID,
			Shares:      shares,
		}
	}

	sheet, err := calculator.AggregateBalances(participants, expenses)
	if err != nil {
		var consErr *calculator.ConsistencyError
		if errors.As(err, &consErr) {
			slog.Warn("Balance sheet does not reconcile to zero",
				"trip_id", tripID,
				"residual", consErr.Residual,
			)
		} else {
			return nil, err
		}
	}
	return sheet, nil
}
