package calculator

import (
	"errors"
	"math"
	"testing"
)

func TestAggregateBalances(t *testing.T) {
	participants := []ParticipantRef{
		{ID: "pa", UserID: "user-a"},
		{ID: "pb", UserID: "user-b"},
	}

	t.Run("single expense, even split", func(t *testing.T) {
		sheet, err := AggregateBalances(participants, []ExpenseForBalance{
			{
				Amount:      100.0,
				PayerUserID: "user-a",
				Shares: []ShareForBalance{
					{ParticipantID: "pa", Amount: 50.0},
					{ParticipantID: "pb", Amount: 50.0},
				},
			},
		})
		if err != nil {
			t.Fatalf("AggregateBalances() error = %v", err)
		}

		a := sheet.Balances["pa"]
		if math.Abs(a.Paid-100.0) > 0.01 || math.Abs(a.Owed-50.0) > 0.01 || math.Abs(a.Net-50.0) > 0.01 {
			t.Errorf("a = %+v, want paid=100 owed=50 net=+50", a)
		}
		b := sheet.Balances["pb"]
		if math.Abs(b.Paid) > 0.01 || math.Abs(b.Owed-50.0) > 0.01 || math.Abs(b.Net+50.0) > 0.01 {
			t.Errorf("b = %+v, want paid=0 owed=50 net=-50", b)
		}
		if math.Abs(sheet.TripTotal-100.0) > 0.01 {
			t.Errorf("TripTotal = %v, want 100", sheet.TripTotal)
		}
	})

	t.Run("two expenses with fractional shares reconcile", func(t *testing.T) {
		sheet, err := AggregateBalances(participants, []ExpenseForBalance{
			{
				Amount:      100.0,
				PayerUserID: "user-a",
				Shares: []ShareForBalance{
					{ParticipantID: "pa", Amount: 50.0},
					{ParticipantID: "pb", Amount: 50.0},
				},
			},
			{
				Amount:      60.0,
				PayerUserID: "user-b",
				Shares: []ShareForBalance{
					{ParticipantID: "pa", Amount: 19.998},
					{ParticipantID: "pb", Amount: 40.002},
				},
			},
		})
		if err != nil {
			t.Fatalf("AggregateBalances() error = %v", err)
		}

		a := sheet.Balances["pa"]
		if math.Abs(a.Net-30.0) > 0.01 {
			t.Errorf("a net = %v, want about +30", a.Net)
		}
		b := sheet.Balances["pb"]
		if math.Abs(b.Net+30.0) > 0.01 {
			t.Errorf("b net = %v, want about -30", b.Net)
		}
		if math.Abs(a.Net+b.Net) > 0.02 {
			t.Errorf("net sum = %v, want about 0", a.Net+b.Net)
		}
		if math.Abs(sheet.TripTotal-160.0) > 0.01 {
			t.Errorf("TripTotal = %v, want 160", sheet.TripTotal)
		}
	})

	t.Run("payer resolved by user identity after participant rows recreated", func(t *testing.T) {
		// Same users, fresh participant rows: expenses still attribute
		// payments because they record the payer's user id.
		recreated := []ParticipantRef{
			{ID: "pa2", UserID: "user-a"},
			{ID: "pb2", UserID: "user-b"},
		}
		sheet, err := AggregateBalances(recreated, []ExpenseForBalance{
			{
				Amount:      40.0,
				PayerUserID: "user-a",
				Shares: []ShareForBalance{
					{ParticipantID: "pa2", Amount: 20.0},
					{ParticipantID: "pb2", Amount: 20.0},
				},
			},
		})
		if err != nil {
			t.Fatalf("AggregateBalances() error = %v", err)
		}
		if math.Abs(sheet.Balances["pa2"].Paid-40.0) > 0.01 {
			t.Errorf("pa2 paid = %v, want 40", sheet.Balances["pa2"].Paid)
		}
	})

	t.Run("placeholder participants owe but never pay", func(t *testing.T) {
		withPlaceholder := []ParticipantRef{
			{ID: "pa", UserID: "user-a"},
			{ID: "px"}, // placeholder, no linked user
		}
		sheet, err := AggregateBalances(withPlaceholder, []ExpenseForBalance{
			{
				Amount:      80.0,
				PayerUserID: "user-a",
				Shares: []ShareForBalance{
					{ParticipantID: "pa", Amount: 40.0},
					{ParticipantID: "px", Amount: 40.0},
				},
			},
		})
		if err != nil {
			t.Fatalf("AggregateBalances() error = %v", err)
		}
		x := sheet.Balances["px"]
		if x.Paid != 0 {
			t.Errorf("placeholder paid = %v, want 0", x.Paid)
		}
		if math.Abs(x.Net+40.0) > 0.01 {
			t.Errorf("placeholder net = %v, want -40", x.Net)
		}
	})

	t.Run("missing payer surfaces as consistency diagnostic", func(t *testing.T) {
		sheet, err := AggregateBalances(participants, []ExpenseForBalance{
			{
				Amount:      100.0,
				PayerUserID: "user-gone",
				Shares: []ShareForBalance{
					{ParticipantID: "pa", Amount: 50.0},
					{ParticipantID: "pb", Amount: 50.0},
				},
			},
		})
		var consErr *ConsistencyError
		if !errors.As(err, &consErr) {
			t.Fatalf("expected ConsistencyError, got %v", err)
		}
		if math.Abs(consErr.Residual+100.0) > 0.01 {
			t.Errorf("Residual = %v, want about -100", consErr.Residual)
		}
		// The sheet is still returned, not auto-corrected.
		if sheet == nil {
			t.Fatal("expected sheet alongside the diagnostic")
		}
		if math.Abs(sheet.Balances["pa"].Owed-50.0) > 0.01 {
			t.Errorf("a owed = %v, want 50", sheet.Balances["pa"].Owed)
		}
	})

	t.Run("empty trip aggregates to empty sheet", func(t *testing.T) {
		sheet, err := AggregateBalances(nil, nil)
		if err != nil {
			t.Fatalf("AggregateBalances() error = %v", err)
		}
		if len(sheet.Balances) != 0 || sheet.TripTotal != 0 {
			t.Errorf("sheet = %+v, want empty", sheet)
		}
	})
}

// Zero-sum property: for randomized-looking but valid share sets, the
// nets always reconcile within tolerance scaled by expense count.
func TestAggregateBalancesZeroSum(t *testing.T) {
	participants := []ParticipantRef{
		{ID: "p1", UserID: "u1"},
		{ID: "p2", UserID: "u2"},
		{ID: "p3", UserID: "u3"},
	}

	amounts := []float64{12.34, 99.99, 7.5, 250.0, 0.03}
	payers := []string{"u1", "u2", "u3", "u1", "u2"}
	percents := [][]float64{
		{33.33, 33.33, 33.34},
		{50, 25, 25},
		{10, 20, 70},
		{0, 100, 0},
		{33.34, 33.33, 33.33},
	}

	var expenses []ExpenseForBalance
	for i, amount := range amounts {
		shares := make([]ShareForBalance, len(participants))
		for j, p := range participants {
			shares[j] = ShareForBalance{
				ParticipantID: p.ID,
				Amount:        amount * percents[i][j] / 100,
			}
		}
		expenses = append(expenses, ExpenseForBalance{
			Amount:      amount,
			PayerUserID: payers[i],
			Shares:      shares,
		})
	}

	sheet, err := AggregateBalances(participants, expenses)
	if err != nil {
		t.Fatalf("AggregateBalances() error = %v", err)
	}

	sum := 0.0
	for _, b := range sheet.Balances {
		sum += b.Net
	}
	if math.Abs(sum) > SumTolerance*float64(len(expenses)) {
		t.Errorf("net sum = %v, want 0 within %v", sum, SumTolerance*float64(len(expenses)))
	}
}
