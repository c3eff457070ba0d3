package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tripsplit/tripsplit/internal/models"
	"github.com/tripsplit/tripsplit/internal/storage"
)

// CreateTrip persists a new trip and enrolls the owner as its first
// participant in the same transaction.
func (s *SQLiteStore) CreateTrip(ctx context.Context, trip *models.Trip) error {
	if trip.ID == "" {
		trip.ID = uuid.New().String()
	}
	now := time.Now().Unix()
	if trip.CreatedAt == 0 {
		trip.CreatedAt = now
	}
	if trip.UpdatedAt == 0 {
		trip.UpdatedAt = now
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO trips (id, name, description, owner_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		trip.ID, trip.Name, trip.Description, trip.OwnerID, trip.CreatedAt, trip.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert trip: %w", err)
	}

	// The owner is always implicitly a participant.
	ownerParticipant := models.Participant{
		ID:        uuid.New().String(),
		TripID:    trip.ID,
		User:      &models.ParticipantUser{ID: trip.OwnerID},
		CreatedAt: now,
	}
	_, err = tx.ExecContext(ctx,
		"INSERT INTO participants (id, trip_id, user_id, created_at) VALUES (?, ?, ?, ?)",
		ownerParticipant.ID, trip.ID, trip.OwnerID, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert owner participant: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	trip.Participants = append(trip.Participants, ownerParticipant)
	return nil
}

// GetTrip retrieves a trip with its full participant and expense snapshot.
func (s *SQLiteStore) GetTrip(ctx context.Context, tripID string) (*models.Trip, error) {
	trip := &models.Trip{}
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, description, owner_id, created_at, updated_at FROM trips WHERE id = ?",
		tripID,
	).Scan(&trip.ID, &trip.Name, &trip.Description, &trip.OwnerID, &trip.CreatedAt, &trip.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("trip %s: %w", tripID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}

	participants, err := s.listParticipants(ctx, tripID)
	if err != nil {
		return nil, err
	}
	trip.Participants = participants

	expenses, err := s.listExpenses(ctx, tripID)
	if err != nil {
		return nil, err
	}
	trip.Expenses = expenses

	return trip, nil
}

// ListTripsByUser retrieves the trips the user owns or participates in,
// most recently updated first.
func (s *SQLiteStore) ListTripsByUser(ctx context.Context, userID string) ([]models.Trip, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT t.id, t.name, t.description, t.owner_id, t.created_at, t.updated_at
		 FROM trips t
		 LEFT JOIN participants p ON p.trip_id = t.id
		 WHERE t.owner_id = ? OR p.user_id = ?
		 ORDER BY t.updated_at DESC`,
		userID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list trips: %w", err)
	}
	defer rows.Close()

	var trips []models.Trip
	for rows.Next() {
		var t models.Trip
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.OwnerID, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan trip: %w", err)
		}
		trips = append(trips, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate trips: %w", err)
	}

	for i := range trips {
		participants, err := s.listParticipants(ctx, trips[i].ID)
		if err != nil {
			return nil, err
		}
		trips[i].Participants = participants
	}
	return trips, nil
}

// UpdateTrip updates a trip's name and description.
func (s *SQLiteStore) UpdateTrip(ctx context.Context, tripID, name, description string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE trips SET name = ?, description = ?, updated_at = ? WHERE id = ?",
		name, description, time.Now().Unix(), tripID,
	)
	if err != nil {
		return fmt.Errorf("failed to update trip: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("trip %s: %w", tripID, storage.ErrNotFound)
	}
	return nil
}

// DeleteTrip removes a trip; participants, expenses and shares cascade.
func (s *SQLiteStore) DeleteTrip(ctx context.Context, tripID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM trips WHERE id = ?", tripID)
	if err != nil {
		return fmt.Errorf("failed to delete trip: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("trip %s: %w", tripID, storage.ErrNotFound)
	}
	return nil
}

// AddParticipant persists a new participant row for a trip.
func (s *SQLiteStore) AddParticipant(ctx context.Context, participant *models.Participant) error {
	if err := participant.Validate(); err != nil {
		return err
	}
	if participant.ID == "" {
		participant.ID = uuid.New().String()
	}
	if participant.CreatedAt == 0 {
		participant.CreatedAt = time.Now().Unix()
	}

	var userID, arbitraryName interface{}
	if participant.User != nil {
		userID = participant.User.ID
	} else {
		arbitraryName = participant.ArbitraryName
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO participants (id, trip_id, user_id, arbitrary_name, created_at) VALUES (?, ?, ?, ?, ?)",
		participant.ID, participant.TripID, userID, arbitraryName, participant.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert participant: %w", err)
	}
	return nil
}

// listParticipants loads a trip's participants with their linked user
// details, in insertion order.
func (s *SQLiteStore) listParticipants(ctx context.Context, tripID string) ([]models.Participant, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT p.id, p.trip_id, p.user_id, p.arbitrary_name, p.created_at, u.username, u.email
		 FROM participants p
		 LEFT JOIN users u ON u.id = p.user_id
		 WHERE p.trip_id = ?
		 ORDER BY p.created_at, p.id`,
		tripID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}
	defer rows.Close()

	var participants []models.Participant
	for rows.Next() {
		var p models.Participant
		var userID, arbitraryName, username, email sql.NullString
		if err := rows.Scan(&p.ID, &p.TripID, &userID, &arbitraryName, &p.CreatedAt, &username, &email); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		if userID.Valid {
			p.User = &models.ParticipantUser{
				ID:       userID.String,
				Username: username.String,
				Email:    email.String,
			}
		} else {
			p.ArbitraryName = arbitraryName.String
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}
	return participants, nil
}
