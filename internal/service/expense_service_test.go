package service

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tripsplit/tripsplit/internal/calculator"
	"github.com/tripsplit/tripsplit/internal/models"
	"github.com/tripsplit/tripsplit/internal/storage"
	"github.com/tripsplit/tripsplit/internal/storage/sqlite"
)

func newTestStore(t *testing.T) storage.Store {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "tripsplit-svc-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := sqlite.New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func createUser(t *testing.T, store storage.Store, username string) *models.User {
	t.Helper()
	user := models.NewUser(username+"@example.com", username, "hash")
	if err := store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	return user
}

// twoPersonTrip creates a trip owned by alice with bob as a second
// registered participant and returns (trip, alice's participant id,
// bob's participant id).
func twoPersonTrip(t *testing.T, store storage.Store, alice, bob *models.User) (*models.Trip, string, string) {
	t.Helper()
	ctx := context.Background()

	trips := NewTripService(store)
	trip, err := trips.Create(ctx, alice.ID, "Test Trip", "")
	if err != nil {
		t.Fatalf("Create trip failed: %v", err)
	}
	if _, err := trips.AddParticipant(ctx, alice.ID, trip.ID, AddParticipantInput{Email: bob.Email}); err != nil {
		t.Fatalf("AddParticipant failed: %v", err)
	}

	full, err := store.GetTrip(ctx, trip.ID)
	if err != nil {
		t.Fatalf("GetTrip failed: %v", err)
	}
	return full, full.ParticipantByUser(alice.ID).ID, full.ParticipantByUser(bob.ID).ID
}

func TestExpenseServiceCreateAndBalances(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	alice := createUser(t, store, "alice")
	bob := createUser(t, store, "bob")
	trip, pa, pb := twoPersonTrip(t, store, alice, bob)
	expenses := NewExpenseService(store)

	t.Run("even split credits payer and debits both", func(t *testing.T) {
		expense, err := expenses.Create(ctx, alice.ID, trip.ID, CreateExpenseInput{
			Description: "hotel",
			Amount:      100.0,
			Shares: []calculator.ShareInput{
				{ParticipantID: pa, Percentage: 50},
				{ParticipantID: pb, Percentage: 50},
			},
		})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		for _, sh := range expense.Shares {
			if math.Abs(sh.CalculatedShare-50.0) > 0.01 {
				t.Errorf("calculatedShare = %v, want 50.00", sh.CalculatedShare)
			}
		}

		sheet, err := expenses.Balances(ctx, alice.ID, trip.ID)
		if err != nil {
			t.Fatalf("Balances failed: %v", err)
		}
		a := sheet.Balances[pa]
		if math.Abs(a.Paid-100) > 0.01 || math.Abs(a.Owed-50) > 0.01 || math.Abs(a.Net-50) > 0.01 {
			t.Errorf("alice = %+v, want paid=100 owed=50 net=+50", a)
		}
		b := sheet.Balances[pb]
		if math.Abs(b.Paid) > 0.01 || math.Abs(b.Owed-50) > 0.01 || math.Abs(b.Net+50) > 0.01 {
			t.Errorf("bob = %+v, want paid=0 owed=50 net=-50", b)
		}
	})

	t.Run("second expense with fractional shares nets out", func(t *testing.T) {
		_, err := expenses.Create(ctx, bob.ID, trip.ID, CreateExpenseInput{
			Description: "dinner",
			Amount:      60.0,
			Shares: []calculator.ShareInput{
				{ParticipantID: pa, Percentage: 33.33},
				{ParticipantID: pb, Percentage: 66.67},
			},
		})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		sheet, err := expenses.Balances(ctx, alice.ID, trip.ID)
		if err != nil {
			t.Fatalf("Balances failed: %v", err)
		}
		if math.Abs(sheet.Balances[pa].Net-30.0) > 0.01 {
			t.Errorf("alice net = %v, want about +30", sheet.Balances[pa].Net)
		}
		if math.Abs(sheet.Balances[pb].Net+30.0) > 0.01 {
			t.Errorf("bob net = %v, want about -30", sheet.Balances[pb].Net)
		}
		if math.Abs(sheet.TripTotal-160.0) > 0.01 {
			t.Errorf("TripTotal = %v, want 160", sheet.TripTotal)
		}
	})
}

func TestExpenseServiceCreateRejections(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	alice := createUser(t, store, "alice")
	bob := createUser(t, store, "bob")
	outsider := createUser(t, store, "outsider")
	trip, pa, pb := twoPersonTrip(t, store, alice, bob)
	expenses := NewExpenseService(store)

	t.Run("incomplete share sum rejected and nothing persisted", func(t *testing.T) {
		_, err := expenses.Create(ctx, alice.ID, trip.ID, CreateExpenseInput{
			Description: "taxi",
			Amount:      50.0,
			Shares: []calculator.ShareInput{
				{ParticipantID: pa, Percentage: 60},
				{ParticipantID: pb, Percentage: 30},
			},
		})
		var sumErr *calculator.ShareSumError
		if !errors.As(err, &sumErr) {
			t.Fatalf("expected ShareSumError, got %v", err)
		}
		if math.Abs(sumErr.Total-90) > 1e-9 {
			t.Errorf("Total = %v, want 90", sumErr.Total)
		}

		fetched, err := store.GetTrip(ctx, trip.ID)
		if err != nil {
			t.Fatalf("GetTrip failed: %v", err)
		}
		if len(fetched.Expenses) != 0 {
			t.Errorf("expenses = %d, want 0 after rejection", len(fetched.Expenses))
		}
	})

	t.Run("unknown participant rejected", func(t *testing.T) {
		_, err := expenses.Create(ctx, alice.ID, trip.ID, CreateExpenseInput{
			Description: "taxi",
			Amount:      50.0,
			Shares: []calculator.ShareInput{
				{ParticipantID: pa, Percentage: 50},
				{ParticipantID: "not-a-participant", Percentage: 50},
			},
		})
		var unknownErr *calculator.UnknownParticipantError
		if !errors.As(err, &unknownErr) {
			t.Fatalf("expected UnknownParticipantError, got %v", err)
		}
	})

	t.Run("non-member caller forbidden", func(t *testing.T) {
		_, err := expenses.Create(ctx, outsider.ID, trip.ID, CreateExpenseInput{
			Description: "taxi",
			Amount:      50.0,
			Shares:      []calculator.ShareInput{{ParticipantID: pa, Percentage: 100}},
		})
		if !errors.Is(err, ErrForbidden) {
			t.Errorf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("non-positive amount rejected", func(t *testing.T) {
		_, err := expenses.Create(ctx, alice.ID, trip.ID, CreateExpenseInput{
			Description: "taxi",
			Amount:      0,
			Shares:      []calculator.ShareInput{{ParticipantID: pa, Percentage: 100}},
		})
		var invalidErr *InvalidInputError
		if !errors.As(err, &invalidErr) {
			t.Fatalf("expected InvalidInputError, got %v", err)
		}
	})

	t.Run("missing trip reported as not found", func(t *testing.T) {
		_, err := expenses.Create(ctx, alice.ID, "no-such-trip", CreateExpenseInput{
			Description: "taxi",
			Amount:      10,
			Shares:      []calculator.ShareInput{{ParticipantID: pa, Percentage: 100}},
		})
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestExpenseServiceUpdate(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	alice := createUser(t, store, "alice")
	bob := createUser(t, store, "bob")
	trip, pa, pb := twoPersonTrip(t, store, alice, bob)
	expenses := NewExpenseService(store)

	create := func(t *testing.T) *models.Expense {
		t.Helper()
		expense, err := expenses.Create(ctx, alice.ID, trip.ID, CreateExpenseInput{
			Description: "groceries",
			Amount:      100.0,
			Shares: []calculator.ShareInput{
				{ParticipantID: pa, Percentage: 50},
				{ParticipantID: pb, Percentage: 50},
			},
		})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		return expense
	}

	t.Run("description-only update leaves shares untouched", func(t *testing.T) {
		expense := create(t)
		desc := "weekly groceries"
		updated, err := expenses.Update(ctx, alice.ID, expense.ID, UpdateExpenseInput{Description: &desc})
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		if updated.Description != desc {
			t.Errorf("Description = %q, want %q", updated.Description, desc)
		}
		fetched, err := store.GetExpense(ctx, expense.ID)
		if err != nil {
			t.Fatalf("GetExpense failed: %v", err)
		}
		for _, sh := range fetched.Shares {
			if math.Abs(sh.CalculatedShare-50.0) > 0.01 {
				t.Errorf("calculatedShare = %v, want untouched 50.00", sh.CalculatedShare)
			}
		}
	})

	t.Run("amount-only update keeps snapshotted shares", func(t *testing.T) {
		// Shares are recomputed only when a replacement share list is
		// supplied, so an amount-only update leaves the stored
		// calculated shares at their old values.
		expense := create(t)
		amount := 200.0
		if _, err := expenses.Update(ctx, alice.ID, expense.ID, UpdateExpenseInput{Amount: &amount}); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		fetched, err := store.GetExpense(ctx, expense.ID)
		if err != nil {
			t.Fatalf("GetExpense failed: %v", err)
		}
		if math.Abs(fetched.Amount-200.0) > 0.01 {
			t.Errorf("Amount = %v, want 200", fetched.Amount)
		}
		for _, sh := range fetched.Shares {
			if math.Abs(sh.Percentage-50.0) > 0.01 {
				t.Errorf("percentage = %v, want retained 50", sh.Percentage)
			}
			if math.Abs(sh.CalculatedShare-50.0) > 0.01 {
				t.Errorf("calculatedShare = %v, want stale 50.00", sh.CalculatedShare)
			}
		}
	})

	t.Run("amount and shares together recompute from the new amount", func(t *testing.T) {
		expense := create(t)
		amount := 200.0
		_, err := expenses.Update(ctx, alice.ID, expense.ID, UpdateExpenseInput{
			Amount: &amount,
			Shares: []calculator.ShareInput{
				{ParticipantID: pa, Percentage: 25},
				{ParticipantID: pb, Percentage: 75},
			},
		})
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		fetched, err := store.GetExpense(ctx, expense.ID)
		if err != nil {
			t.Fatalf("GetExpense failed: %v", err)
		}
		got := map[string]float64{}
		for _, sh := range fetched.Shares {
			got[sh.ParticipantID] = sh.CalculatedShare
		}
		if math.Abs(got[pa]-50.0) > 0.01 {
			t.Errorf("pa share = %v, want 200*25%% = 50", got[pa])
		}
		if math.Abs(got[pb]-150.0) > 0.01 {
			t.Errorf("pb share = %v, want 200*75%% = 150", got[pb])
		}
	})

	t.Run("replacement share list replaces, never merges", func(t *testing.T) {
		expense := create(t)
		_, err := expenses.Update(ctx, alice.ID, expense.ID, UpdateExpenseInput{
			Shares: []calculator.ShareInput{{ParticipantID: pa, Percentage: 100}},
		})
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		fetched, err := store.GetExpense(ctx, expense.ID)
		if err != nil {
			t.Fatalf("GetExpense failed: %v", err)
		}
		if len(fetched.Shares) != 1 {
			t.Fatalf("shares = %d, want 1 (bob's share removed)", len(fetched.Shares))
		}
		if fetched.Shares[0].ParticipantID != pa {
			t.Errorf("remaining share belongs to %s, want %s", fetched.Shares[0].ParticipantID, pa)
		}
	})

	t.Run("invalid share sum leaves stored expense unchanged", func(t *testing.T) {
		expense := create(t)
		amount := 500.0
		_, err := expenses.Update(ctx, alice.ID, expense.ID, UpdateExpenseInput{
			Amount: &amount,
			Shares: []calculator.ShareInput{
				{ParticipantID: pa, Percentage: 60},
				{ParticipantID: pb, Percentage: 35},
			},
		})
		var sumErr *calculator.ShareSumError
		if !errors.As(err, &sumErr) {
			t.Fatalf("expected ShareSumError, got %v", err)
		}

		fetched, err := store.GetExpense(ctx, expense.ID)
		if err != nil {
			t.Fatalf("GetExpense failed: %v", err)
		}
		if math.Abs(fetched.Amount-100.0) > 0.01 {
			t.Errorf("Amount = %v, want unchanged 100", fetched.Amount)
		}
		if len(fetched.Shares) != 2 {
			t.Fatalf("shares = %d, want unchanged 2", len(fetched.Shares))
		}
		for _, sh := range fetched.Shares {
			if math.Abs(sh.Percentage-50.0) > 0.01 {
				t.Errorf("percentage = %v, want unchanged 50", sh.Percentage)
			}
		}
	})

	t.Run("only payer or owner may update", func(t *testing.T) {
		expense := create(t)
		desc := "sneaky edit"

		// bob is a participant but neither payer nor owner.
		_, err := expenses.Update(ctx, bob.ID, expense.ID, UpdateExpenseInput{Description: &desc})
		if !errors.Is(err, ErrForbidden) {
			t.Errorf("expected ErrForbidden for non-payer, got %v", err)
		}
	})

	t.Run("missing expense reported as not found", func(t *testing.T) {
		desc := "whatever"
		_, err := expenses.Update(ctx, alice.ID, "no-such-expense", UpdateExpenseInput{Description: &desc})
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestExpenseServiceDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	alice := createUser(t, store, "alice")
	bob := createUser(t, store, "bob")
	trip, pa, pb := twoPersonTrip(t, store, alice, bob)
	expenses := NewExpenseService(store)

	evenSplit := []calculator.ShareInput{
		{ParticipantID: pa, Percentage: 50},
		{ParticipantID: pb, Percentage: 50},
	}

	first, err := expenses.Create(ctx, alice.ID, trip.ID, CreateExpenseInput{
		Description: "hotel", Amount: 100.0, Shares: evenSplit,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	second, err := expenses.Create(ctx, bob.ID, trip.ID, CreateExpenseInput{
		Description: "dinner", Amount: 60.0,
		Shares: []calculator.ShareInput{
			{ParticipantID: pa, Percentage: 33.33},
			{ParticipantID: pb, Percentage: 66.67},
		},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	t.Run("participant who is neither payer nor owner cannot delete", func(t *testing.T) {
		// bob may not delete alice's expense even as a participant.
		if err := expenses.Delete(ctx, bob.ID, first.ID); !errors.Is(err, ErrForbidden) {
			t.Errorf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("owner may delete another payer's expense", func(t *testing.T) {
		if err := expenses.Delete(ctx, alice.ID, second.ID); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
	})

	t.Run("balances revert to the remaining expense only", func(t *testing.T) {
		sheet, err := expenses.Balances(ctx, alice.ID, trip.ID)
		if err != nil {
			t.Fatalf("Balances failed: %v", err)
		}
		a := sheet.Balances[pa]
		if math.Abs(a.Paid-100) > 0.01 || math.Abs(a.Owed-50) > 0.01 || math.Abs(a.Net-50) > 0.01 {
			t.Errorf("alice = %+v, want paid=100 owed=50 net=+50", a)
		}
		b := sheet.Balances[pb]
		if math.Abs(b.Net+50) > 0.01 {
			t.Errorf("bob net = %v, want -50", b.Net)
		}
		if math.Abs(sheet.TripTotal-100) > 0.01 {
			t.Errorf("TripTotal = %v, want 100", sheet.TripTotal)
		}
	})
}

func TestExpenseServiceBalancesTolerateParticipantChanges(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	alice := createUser(t, store, "alice")
	bob := createUser(t, store, "bob")
	trip, pa, pb := twoPersonTrip(t, store, alice, bob)
	trips := NewTripService(store)
	expenses := NewExpenseService(store)

	if _, err := expenses.Create(ctx, alice.ID, trip.ID, CreateExpenseInput{
		Description: "museum",
		Amount:      30.0,
		Shares: []calculator.ShareInput{
			{ParticipantID: pa, Percentage: 50},
			{ParticipantID: pb, Percentage: 50},
		},
	}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// A placeholder added after the expense exists must appear in the
	// sheet with a zero balance: aggregation works strictly from the
	// current snapshot.
	added, err := trips.AddParticipant(ctx, alice.ID, trip.ID, AddParticipantInput{ArbitraryName: "Late Joiner"})
	if err != nil {
		t.Fatalf("AddParticipant failed: %v", err)
	}

	sheet, err := expenses.Balances(ctx, alice.ID, trip.ID)
	if err != nil {
		t.Fatalf("Balances failed: %v", err)
	}
	if len(sheet.Balances) != 3 {
		t.Fatalf("balances = %d, want 3", len(sheet.Balances))
	}
	late := sheet.Balances[added.ID]
	if late.Paid != 0 || late.Owed != 0 || late.Net != 0 {
		t.Errorf("late joiner = %+v, want all zero", late)
	}

	sum := 0.0
	for _, b := range sheet.Balances {
		sum += b.Net
	}
	if math.Abs(sum) > 0.01 {
		t.Errorf("net sum = %v, want 0", sum)
	}
}

func TestExpenseServicePayerDefaultsAndDate(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	alice := createUser(t, store, "alice")
	bob := createUser(t, store, "bob")
	trip, pa, pb := twoPersonTrip(t, store, alice, bob)
	expenses := NewExpenseService(store)

	t.Run("payer defaults to the caller", func(t *testing.T) {
		expense, err := expenses.Create(ctx, bob.ID, trip.ID, CreateExpenseInput{
			Description: "coffee",
			Amount:      8.0,
			Shares: []calculator.ShareInput{
				{ParticipantID: pa, Percentage: 50},
				{ParticipantID: pb, Percentage: 50},
			},
		})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if expense.PaidByID != bob.ID {
			t.Errorf("PaidByID = %s, want caller %s", expense.PaidByID, bob.ID)
		}
	})

	t.Run("omitted date defaults to now", func(t *testing.T) {
		before := time.Now().Add(-time.Minute)
		expense, err := expenses.Create(ctx, alice.ID, trip.ID, CreateExpenseInput{
			Description: "snacks",
			Amount:      5.0,
			Shares: []calculator.ShareInput{
				{ParticipantID: pa, Percentage: 50},
				{ParticipantID: pb, Percentage: 50},
			},
		})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if expense.Date.Before(before) {
			t.Errorf("Date = %v, want defaulted to about now", expense.Date)
		}
	})

	t.Run("payer outside the trip rejected", func(t *testing.T) {
		stranger := createUser(t, store, "stranger")
		_, err := expenses.Create(ctx, alice.ID, trip.ID, CreateExpenseInput{
			Description: "gift",
			Amount:      20.0,
			PayerID:     stranger.ID,
			Shares: []calculator.ShareInput{
				{ParticipantID: pa, Percentage: 100},
			},
		})
		var invalidErr *InvalidInputError
		if !errors.As(err, &invalidErr) {
			t.Fatalf("expected InvalidInputError, got %v", err)
		}
	})
}
