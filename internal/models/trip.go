package models

import "errors"

// ErrInvalidParticipant is returned when a participant is neither a
// registered-user reference nor a placeholder, or tries to be both.
var ErrInvalidParticipant = errors.New("participant must reference a user or carry a placeholder name, not both")

// Trip represents a shared cost-tracking context containing
// participants and expenses.
type Trip struct {
	// ID is the unique identifier for the trip (UUID format).
	ID string

	// Name is the display name of the trip (e.g., "Lisbon 2026").
	Name string

	// Description is an optional free-form description.
	Description string

	// OwnerID is the user ID of the trip owner. The owner is always
	// also present in Participants.
	OwnerID string

	// Participants are the people splitting costs on this trip, in
	// insertion order.
	Participants []Participant

	// Expenses are the trip's expenses, newest first.
	Expenses []Expense

	// CreatedAt and UpdatedAt are Unix timestamps.
	CreatedAt int64
	UpdatedAt int64
}

// ParticipantByID returns the participant with the given ID, or nil.
func (t *Trip) ParticipantByID(id string) *Participant {
	for i := range t.Participants {
		if t.Participants[i].ID == id {
			return &t.Participants[i]
		}
	}
	return nil
}

// ParticipantByUser returns the participant row linked to the given
// user ID, or nil. Placeholder participants never match.
func (t *Trip) ParticipantByUser(userID string) *Participant {
	for i := range t.Participants {
		if u := t.Participants[i].User; u != nil && u.ID == userID {
			return &t.Participants[i]
		}
	}
	return nil
}

// HasMember reports whether the user is a participant or the owner.
func (t *Trip) HasMember(userID string) bool {
	return t.OwnerID == userID || t.ParticipantByUser(userID) != nil
}

// ParticipantIDs returns the set of participant row IDs, for share
// validation against the current membership snapshot.
func (t *Trip) ParticipantIDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(t.Participants))
	for i := range t.Participants {
		ids[t.Participants[i].ID] = struct{}{}
	}
	return ids
}

// ParticipantUser is the slice of a registered user embedded in a
// participant record for display purposes.
type ParticipantUser struct {
	ID       string
	Username string
	Email    string
}

// Participant represents one person within one trip. It is a tagged
// variant: either User is set (registered participant) or
// ArbitraryName is set (placeholder with no linked account).
// Participants are never shared across trips.
type Participant struct {
	// ID is the unique identifier for the participant row (UUID format).
	ID string

	// TripID is the trip this participant belongs to.
	TripID string

	// User references the registered user, nil for placeholders.
	User *ParticipantUser

	// ArbitraryName is the display name for placeholder participants,
	// empty for registered ones.
	ArbitraryName string

	// CreatedAt is the Unix timestamp when the participant was added.
	CreatedAt int64
}

// Registered reports whether this participant is backed by a user account.
func (p *Participant) Registered() bool {
	return p.User != nil
}

// DisplayName returns the username for registered participants and the
// arbitrary name for placeholders.
func (p *Participant) DisplayName() string {
	if p.User != nil {
		return p.User.Username
	}
	return p.ArbitraryName
}

// UserID returns the linked user's ID, or empty for placeholders.
func (p *Participant) UserID() string {
	if p.User != nil {
		return p.User.ID
	}
	return ""
}

// Validate enforces the tagged-variant invariant.
func (p *Participant) Validate() error {
	if (p.User == nil) == (p.ArbitraryName == "") {
		return ErrInvalidParticipant
	}
	return nil
}
