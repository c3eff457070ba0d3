package calculator

import (
	"fmt"
	"math"
)

// ParticipantRef carries the minimal participant information needed for
// balance aggregation. UserID is empty for placeholder participants.
type ParticipantRef struct {
	ID     string
	UserID string
}

// ShareForBalance is one stored share of an expense.
type ShareForBalance struct {
	ParticipantID string
	Amount        float64 // the share's snapshotted calculatedShare
}

// ExpenseForBalance carries the minimal expense information needed for
// balance aggregation. PayerUserID is the payer's user id, resolved
// against the current participant list during aggregation.
type ExpenseForBalance struct {
	Amount      float64
	PayerUserID string
	Shares      []ShareForBalance
}

// Balance is one participant's position across a trip.
// Net > 0 means the participant is owed money, Net < 0 means the
// participant owes money, Net == 0 (within tolerance) means settled.
type Balance struct {
	Paid float64 // sum of expense amounts this participant paid
	Owed float64 // sum of this participant's calculated shares
	Net  float64 // Paid - Owed
}

// BalanceSheet is the aggregation result for one trip.
type BalanceSheet struct {
	// Balances maps participant id to that participant's position.
	Balances map[string]*Balance

	// TripTotal is the sum of all expense amounts.
	TripTotal float64
}

// ConsistencyError reports that the net balances of a trip do not
// reconcile to zero. This indicates corrupted data (for example an
// expense whose payer is no longer a trip participant), not a user
// error: it should be logged, never auto-corrected.
type ConsistencyError struct {
	// Residual is the sum of all net balances, which should be zero.
	Residual float64
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("net balances sum to %+.4f, want 0", e.Residual)
}

// AggregateBalances computes every participant's paid/owed/net position
// from the trip's current participant and expense snapshot.
//
// Each expense's full amount is credited to the participant whose user
// id matches the expense's payer identity; each share's snapshotted
// amount is debited to its participant. Shares or payers that no
// longer resolve against the current participant list are left out of
// the per-participant map, which makes the resulting drift visible in
// the zero-sum check below.
//
// The returned sheet is always populated. If the net balances do not
// reconcile to zero within SumTolerance per expense, a
// ConsistencyError accompanies it as a diagnostic; the sheet itself is
// never adjusted to hide the drift.
func AggregateBalances(participants []ParticipantRef, expenses []ExpenseForBalance) (*BalanceSheet, error) {
	sheet := &BalanceSheet{
		Balances: make(map[string]*Balance, len(participants)),
	}

	byUser := make(map[string]string, len(participants))
	for _, p := range participants {
		sheet.Balances[p.ID] = &Balance{}
		if p.UserID != "" {
			byUser[p.UserID] = p.ID
		}
	}

	for _, e := range expenses {
		sheet.TripTotal += e.Amount

		if pid, ok := byUser[e.PayerUserID]; ok {
			sheet.Balances[pid].Paid += e.Amount
		}

		for _, s := range e.Shares {
			if b, ok := sheet.Balances[s.ParticipantID]; ok {
				b.Owed += s.Amount
			}
		}
	}

	residual := 0.0
	for _, b := range sheet.Balances {
		b.Net = b.Paid - b.Owed
		residual += b.Net
	}

	// Rounding accumulates per expense, so the acceptable drift scales
	// with the number of expenses.
	tolerance := SumTolerance * float64(max(1, len(expenses)))
	if math.Abs(residual) > tolerance {
		return sheet, &ConsistencyError{Residual: residual}
	}
	return sheet, nil
}
