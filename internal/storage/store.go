// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/tripsplit/tripsplit/internal/models"
)

// ErrNotFound is returned (wrapped) when a requested record does not
// exist. Services match it with errors.Is regardless of backend.
var ErrNotFound = errors.New("not found")

// Store defines the interface for TripSplit storage operations.
// This abstraction allows swapping storage backends (SQLite,
// PostgreSQL, etc.) without changing the service layer.
//
// Every mutating operation is atomic: it either fully succeeds or
// leaves no state change behind.
type Store interface {
	// CreateUser persists a new user account.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByID retrieves a user by ID, or ErrNotFound.
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// GetUserByEmail retrieves a user by email, or ErrNotFound.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByUsername retrieves a user by username, or ErrNotFound.
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)

	// CreateTrip persists a new trip together with a participant row
	// for the owner, in one transaction. The trip's ID and timestamps
	// are populated by the store if unset.
	CreateTrip(ctx context.Context, trip *models.Trip) error

	// GetTrip retrieves a trip with its full participant and expense
	// snapshot (shares included), or ErrNotFound.
	GetTrip(ctx context.Context, tripID string) (*models.Trip, error)

	// ListTripsByUser retrieves the trips the user owns or
	// participates in, most recently updated first. Participants are
	// populated; expenses are not.
	ListTripsByUser(ctx context.Context, userID string) ([]models.Trip, error)

	// UpdateTrip updates a trip's name and description.
	UpdateTrip(ctx context.Context, tripID, name, description string) error

	// DeleteTrip removes a trip and, by cascade, its participants,
	// expenses and shares.
	DeleteTrip(ctx context.Context, tripID string) error

	// AddParticipant persists a new participant row for a trip.
	AddParticipant(ctx context.Context, participant *models.Participant) error

	// CreateExpense persists an expense together with all its shares
	// in one transaction. IDs and timestamps are populated if unset.
	CreateExpense(ctx context.Context, expense *models.Expense) error

	// GetExpense retrieves an expense with its shares, or ErrNotFound.
	GetExpense(ctx context.Context, expenseID string) (*models.Expense, error)

	// UpdateExpense writes the expense's fields and, when
	// replaceShares is true, discards the stored shares and writes
	// expense.Shares in their place. Runs as a single transaction so
	// concurrent updates cannot interleave into a share set that does
	// not total 100%.
	UpdateExpense(ctx context.Context, expense *models.Expense, replaceShares bool) error

	// DeleteExpense removes the expense and all its shares atomically.
	DeleteExpense(ctx context.Context, expenseID string) error

	// Close releases any resources held by the store.
	Close() error
}
