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

// CreateExpense persists an expense and all its shares in one
// transaction. The expense's trip gets its updated_at bumped.
func (s *SQLiteStore) CreateExpense(ctx context.Context, expense *models.Expense) error {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.CreatedAt == 0 {
		expense.CreatedAt = time.Now().Unix()
	}
	if expense.Date.IsZero() {
		expense.Date = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO expenses (id, trip_id, description, amount, date, paid_by, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		expense.ID, expense.TripID, expense.Description, expense.Amount,
		expense.Date.Unix(), expense.PaidByID, expense.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}

	if err := insertShares(ctx, tx, expense); err != nil {
		return err
	}

	if err := touchTrip(ctx, tx, expense.TripID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetExpense retrieves an expense with its shares.
func (s *SQLiteStore) GetExpense(ctx context.Context, expenseID string) (*models.Expense, error) {
	expense := &models.Expense{}
	var date int64
	var payerName sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT e.id, e.trip_id, e.description, e.amount, e.date, e.paid_by, e.created_at, u.username
		 FROM expenses e
		 LEFT JOIN users u ON u.id = e.paid_by
		 WHERE e.id = ?`,
		expenseID,
	).Scan(&expense.ID, &expense.TripID, &expense.Description, &expense.Amount,
		&date, &expense.PaidByID, &expense.CreatedAt, &payerName)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("expense %s: %w", expenseID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	expense.Date = time.Unix(date, 0)
	expense.PaidByName = payerName.String

	shares, err := s.listShares(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	expense.Shares = shares
	return expense, nil
}

// UpdateExpense writes the expense's fields and, when replaceShares is
// true, swaps the stored share set for expense.Shares. Everything runs
// in a single transaction so concurrent updates cannot interleave into
// a share set that does not total 100%.
func (s *SQLiteStore) UpdateExpense(ctx context.Context, expense *models.Expense, replaceShares bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"UPDATE expenses SET description = ?, amount = ?, date = ?, paid_by = ? WHERE id = ?",
		expense.Description, expense.Amount, expense.Date.Unix(), expense.PaidByID, expense.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update expense: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("expense %s: %w", expense.ID, storage.ErrNotFound)
	}

	if replaceShares {
		// Old shares are discarded, not merged.
		if _, err := tx.ExecContext(ctx, "DELETE FROM shares WHERE expense_id = ?", expense.ID); err != nil {
			return fmt.Errorf("failed to delete old shares: %w", err)
		}
		if err := insertShares(ctx, tx, expense); err != nil {
			return err
		}
	}

	if err := touchTrip(ctx, tx, expense.TripID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// DeleteExpense removes an expense; its shares cascade.
func (s *SQLiteStore) DeleteExpense(ctx context.Context, expenseID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM expenses WHERE id = ?", expenseID)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("expense %s: %w", expenseID, storage.ErrNotFound)
	}
	return nil
}

// listExpenses loads a trip's expenses with their shares, newest first.
func (s *SQLiteStore) listExpenses(ctx context.Context, tripID string) ([]models.Expense, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT e.id, e.trip_id, e.description, e.amount, e.date, e.paid_by, e.created_at, u.username
		 FROM expenses e
		 LEFT JOIN users u ON u.id = e.paid_by
		 WHERE e.trip_id = ?
		 ORDER BY e.date DESC, e.created_at DESC`,
		tripID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get expenses: %w", err)
	}
	defer rows.Close()

	var expenses []models.Expense
	for rows.Next() {
		var e models.Expense
		var date int64
		var payerName sql.NullString
		if err := rows.Scan(&e.ID, &e.TripID, &e.Description, &e.Amount, &date, &e.PaidByID, &e.CreatedAt, &payerName); err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		e.Date = time.Unix(date, 0)
		e.PaidByName = payerName.String
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}

	for i := range expenses {
		shares, err := s.listShares(ctx, expenses[i].ID)
		if err != nil {
			return nil, err
		}
		expenses[i].Shares = shares
	}
	return expenses, nil
}

// listShares loads an expense's shares in insertion order.
func (s *SQLiteStore) listShares(ctx context.Context, expenseID string) ([]models.Share, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, expense_id, participant_id, percentage, calculated_share FROM shares WHERE expense_id = ? ORDER BY rowid",
		expenseID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get shares: %w", err)
	}
	defer rows.Close()

	var shares []models.Share
	for rows.Next() {
		var sh models.Share
		if err := rows.Scan(&sh.ID, &sh.ExpenseID, &sh.ParticipantID, &sh.Percentage, &sh.CalculatedShare); err != nil {
			return nil, fmt.Errorf("failed to scan share: %w", err)
		}
		shares = append(shares, sh)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate shares: %w", err)
	}
	return shares, nil
}

// insertShares writes expense.Shares within the given transaction,
// generating ids where unset.
func insertShares(ctx context.Context, tx *sql.Tx, expense *models.Expense) error {
	for i := range expense.Shares {
		share := &expense.Shares[i]
		if share.ID == "" {
			share.ID = uuid.New().String()
		}
		share.ExpenseID = expense.ID

		_, err := tx.ExecContext(ctx,
			"INSERT INTO shares (id, expense_id, participant_id, percentage, calculated_share) VALUES (?, ?, ?, ?, ?)",
			share.ID, share.ExpenseID, share.ParticipantID, share.Percentage, share.CalculatedShare,
		)
		if err != nil {
			return fmt.Errorf("failed to insert share: %w", err)
		}
	}
	return nil
}

// touchTrip bumps a trip's updated_at within the given transaction.
func touchTrip(ctx context.Context, tx *sql.Tx, tripID string) error {
	if _, err := tx.ExecContext(ctx,
		"UPDATE trips SET updated_at = ? WHERE id = ?",
		time.Now().Unix(), tripID,
	); err != nil {
		return fmt.Errorf("failed to touch trip: %w", err)
	}
	return nil
}
