package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/tripsplit/tripsplit/internal/models"
	"github.com/tripsplit/tripsplit/internal/storage"
)

// TripService manages trips and their participants.
type TripService struct {
	store storage.Store
}

// NewTripService creates a new TripService with the given storage backend.
func NewTripService(store storage.Store) *TripService {
	return &TripService{store: store}
}

// Create creates a trip owned by the given user. The owner is enrolled
// as the trip's first participant by the store.
func (s *TripService) Create(ctx context.Context, ownerID, name, description string) (*models.Trip, error) {
	if strings.TrimSpace(name) == "" {
		return nil, &InvalidInputError{Field: "name", Reason: "must not be empty"}
	}

	trip := &models.Trip{
		Name:        name,
		Description: description,
		OwnerID:     ownerID,
	}
	if err := s.store.CreateTrip(ctx, trip); err != nil {
		slog.Error("CreateTrip failed", "owner_id", ownerID, "error", err)
		return nil, err
	}
	slog.Info("Trip created", "trip_id", trip.ID, "owner_id", ownerID)
	return trip, nil
}

// Get retrieves a trip with its full participant and expense snapshot.
// The caller must be a participant or the trip owner.
func (s *TripService) Get(ctx context.Context, userID, tripID string) (*models.Trip, error) {
	trip, err := s.store.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if !trip.HasMember(userID) {
		return nil, ErrForbidden
	}
	return trip, nil
}

// List retrieves the trips the user owns or participates in.
func (s *TripService) List(ctx context.Context, userID string) ([]models.Trip, error) {
	return s.store.ListTripsByUser(ctx, userID)
}

// Update changes a trip's name and description. Owner only.
func (s *TripService) Update(ctx context.Context, userID, tripID, name, description string) (*models.Trip, error) {
	trip, err := s.store.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if trip.OwnerID != userID {
		return nil, ErrForbidden
	}
	if strings.TrimSpace(name) == "" {
		return nil, &InvalidInputError{Field: "name", Reason: "must not be empty"}
	}

	if err := s.store.UpdateTrip(ctx, tripID, name, description); err != nil {
		slog.Error("UpdateTrip failed", "trip_id", tripID, "error", err)
		return nil, err
	}
	trip.Name = name
	trip.Description = description
	return trip, nil
}

// Delete removes a trip and everything in it. Owner only.
func (s *TripService) Delete(ctx context.Context, userID, tripID string) error {
	trip, err := s.store.GetTrip(ctx, tripID)
	if err != nil {
		return err
	}
	if trip.OwnerID != userID {
		return ErrForbidden
	}

	if err := s.store.DeleteTrip(ctx, tripID); err != nil {
		slog.Error("DeleteTrip failed", "trip_id", tripID, "error", err)
		return err
	}
	slog.Info("Trip deleted", "trip_id", tripID)
	return nil
}

// AddParticipantInput selects who to add: a registered user by email or
// username, or a placeholder by arbitrary name. Exactly one selector
// must be set.
type AddParticipantInput struct {
	Email         string
	Username      string
	ArbitraryName string
}

// AddParticipant adds a person to a trip. The caller must be a
// participant or the trip owner. Registered users may join a trip only
// once; placeholders are unrestricted.
func (s *TripService) AddParticipant(ctx context.Context, userID, tripID string, in AddParticipantInput) (*models.Participant, error) {
	trip, err := s.store.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if !trip.HasMember(userID) {
		return nil, ErrForbidden
	}

	participant := &models.Participant{TripID: tripID}

	switch {
	case in.ArbitraryName != "":
		participant.ArbitraryName = in.ArbitraryName

	case in.Email != "" || in.Username != "":
		var user *models.User
		if in.Email != "" {
			user, err = s.store.GetUserByEmail(ctx, in.Email)
		} else {
			user, err = s.store.GetUserByUsername(ctx, in.Username)
		}
		if err != nil {
			return nil, err
		}
		if trip.ParticipantByUser(user.ID) != nil {
			return nil, &InvalidInputError{Field: "participant", Reason: "user is already a participant"}
		}
		participant.User = &models.ParticipantUser{
			ID:       user.ID,
			Username: user.Username,
			Email:    user.Email,
		}

	default:
		return nil, &InvalidInputError{Field: "participant", Reason: "email, username or arbitraryName required"}
	}

	if err := s.store.AddParticipant(ctx, participant); err != nil {
		slog.Error("AddParticipant failed", "trip_id", tripID, "error", err)
		return nil, err
	}
	slog.Info("Participant added", "trip_id", tripID, "participant_id", participant.ID, "registered", participant.Registered())
	return participant, nil
}
