// Package models defines the core domain models for TripSplit.
//
// # Entities
//
//   - User: a registered account, identified by unique email and username
//   - Trip: a shared cost-tracking context owned by a user
//   - Participant: a person within one trip, either a registered user
//     or an arbitrary placeholder name
//   - Expense: a cost paid by one participant and divided among the
//     trip's participants by percentage
//   - Share: the percentage-based allocation of one expense to one
//     participant, plus its derived monetary amount
//
// # Design Principles
//
//  1. Relationships use ID strings instead of pointers to avoid
//     circular references.
//  2. Participants are per-trip records. The same user joining two
//     trips gets two participant rows; expenses record the payer by
//     user id so balances survive participant-row churn.
//  3. A Participant is a tagged variant: exactly one of the registered
//     user reference or the placeholder name is set, never both.
//  4. Share.CalculatedShare is snapshotted at write time rather than
//     derived on read, so historical amounts do not drift when an
//     expense is later edited.
package models
