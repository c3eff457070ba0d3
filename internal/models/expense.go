package models

import "time"

// Expense represents a cost paid by one participant and divided among
// the trip's participants by percentage.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	// TripID is the trip this expense belongs to.
	TripID string

	// Description is a short human-readable label (non-empty).
	Description string

	// Amount is the full monetary amount of the expense (> 0).
	Amount float64

	// Date is the calendar date the expense occurred.
	Date time.Time

	// PaidByID is the user ID of the payer. The payer is recorded by
	// underlying identity rather than participant-row id so that
	// balance aggregation can resolve it against the current
	// participant snapshot even after rows are recreated.
	PaidByID string

	// PaidByName is the payer's username, populated on reads for
	// display.
	PaidByName string

	// Shares are the percentage allocations of this expense. Their
	// percentages sum to 100 within tolerance.
	Shares []Share

	// CreatedAt is the Unix timestamp when the expense was recorded.
	CreatedAt int64
}

// Share represents the allocation of one expense to one participant.
type Share struct {
	// ID is the unique identifier for the share (UUID format).
	ID string

	// ExpenseID is the expense this share belongs to.
	ExpenseID string

	// ParticipantID references a participant of the expense's trip.
	// Each participant appears at most once per expense.
	ParticipantID string

	// Percentage is this participant's portion of the expense,
	// 0-100 with fractions allowed.
	Percentage float64

	// CalculatedShare is the monetary amount derived from Percentage,
	// snapshotted when the share was last written:
	// amount * percentage / 100.
	CalculatedShare float64
}
