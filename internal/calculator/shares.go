// Package calculator implements the pure split engine: share
// allocation validation, calculated-share computation, and balance
// aggregation across a trip. It has no storage or transport
// dependencies; callers pass in the data they already hold.
package calculator

import (
	"fmt"
	"math"
)

// SumTolerance is the absolute tolerance used when comparing a share
// set's percentage total against 100, and when checking that net
// balances reconcile to zero. It absorbs floating-point rounding from
// UI input, not meaningfully incomplete splits. Both the validator and
// the balance aggregator consume this constant.
const SumTolerance = 0.01

// ShareInput is a proposed (participant, percentage) pair for one expense.
type ShareInput struct {
	ParticipantID string
	Percentage    float64
}

// ValidationError is implemented by all rejections of caller-supplied
// share allocations. These are expected, caller-recoverable conditions:
// nothing is persisted when one is returned.
type ValidationError interface {
	error
	validation()
}

// ShareSumError reports a share set whose percentages do not total 100
// within SumTolerance. Total carries the computed sum.
type ShareSumError struct {
	Total float64
}

func (e *ShareSumError) Error() string {
	return fmt.Sprintf("share percentages sum to %.4f, must total 100", e.Total)
}

func (e *ShareSumError) validation() {}

// UnknownParticipantError reports a share referencing a participant
// that is not part of the expense's trip.
type UnknownParticipantError struct {
	ParticipantID string
}

func (e *UnknownParticipantError) Error() string {
	return fmt.Sprintf("participant %s is not part of this trip", e.ParticipantID)
}

func (e *UnknownParticipantError) validation() {}

// DuplicateParticipantError reports a share set referencing the same
// participant more than once.
type DuplicateParticipantError struct {
	ParticipantID string
}

func (e *DuplicateParticipantError) Error() string {
	return fmt.Sprintf("participant %s appears more than once in the share set", e.ParticipantID)
}

func (e *DuplicateParticipantError) validation() {}

// PercentageRangeError reports a share percentage outside [0, 100].
type PercentageRangeError struct {
	ParticipantID string
	Percentage    float64
}

func (e *PercentageRangeError) Error() string {
	return fmt.Sprintf("share percentage %.4f for participant %s is outside 0-100", e.Percentage, e.ParticipantID)
}

func (e *PercentageRangeError) validation() {}

// ValidateShares checks a proposed allocation for one expense against
// the trip's current membership:
//
//   - every participant id must be in members and appear at most once;
//   - every percentage must be within [0, 100];
//   - the percentages must sum to 100 within SumTolerance.
//
// The membership set is passed in explicitly so the check runs against
// one consistent snapshot rather than re-fetched state. On failure the
// whole allocation is rejected; the returned error satisfies
// ValidationError and names the rule that failed.
func ValidateShares(shares []ShareInput, members map[string]struct{}) error {
	seen := make(map[string]struct{}, len(shares))
	total := 0.0
	for _, s := range shares {
		if _, ok := members[s.ParticipantID]; !ok {
			return &UnknownParticipantError{ParticipantID: s.ParticipantID}
		}
		if _, dup := seen[s.ParticipantID]; dup {
			return &DuplicateParticipantError{ParticipantID: s.ParticipantID}
		}
		seen[s.ParticipantID] = struct{}{}
		if s.Percentage < 0 || s.Percentage > 100 {
			return &PercentageRangeError{ParticipantID: s.ParticipantID, Percentage: s.Percentage}
		}
		total += s.Percentage
	}
	if math.Abs(total-100) > SumTolerance {
		return &ShareSumError{Total: total}
	}
	return nil
}

// ComputedShare is one participant's derived monetary share.
type ComputedShare struct {
	ParticipantID string
	Percentage    float64
	Amount        float64
}

// ComputeShares derives each participant's monetary share as
// amount * percentage / 100. The caller persists the results; they are
// not re-derived on read, so a later amount change requires an
// explicit recompute pass with the new amount.
func ComputeShares(amount float64, shares []ShareInput) []ComputedShare {
	computed := make([]ComputedShare, len(shares))
	for i, s := range shares {
		computed[i] = ComputedShare{
			ParticipantID: s.ParticipantID,
			Percentage:    s.Percentage,
			Amount:        amount * s.Percentage / 100,
		}
	}
	return computed
}
