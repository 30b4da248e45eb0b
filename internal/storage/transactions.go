package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/spendguard/spendguard/internal/common"
	"github.com/spendguard/spendguard/internal/model"
)

// CreateTransaction persists a classified transaction. Transactions are
// immutable once written; there is no update path.
func (s *SQLiteStorage) CreateTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransaction(txn); err != nil {
		return err
	}

	query := `
		INSERT INTO transactions (id, user_id, description, amount, category, confidence, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		txn.ID,
		txn.UserID,
		txn.Description,
		txn.Amount,
		txn.Category,
		txn.Confidence,
		txn.CreatedAt,
	)
	if err != nil {
		if isUniqueConstraintErr(err) {
			return fmt.Errorf("transaction %s: %w", txn.ID, common.ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to insert transaction %s: %w", txn.ID, err)
	}

	return nil
}

// GetTransactionByID returns a single transaction.
func (s *SQLiteStorage) GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	query := `
		SELECT id, user_id, description, amount, category, confidence, created_at
		FROM transactions
		WHERE id = ?`

	var txn model.Transaction
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&txn.ID,
		&txn.UserID,
		&txn.Description,
		&txn.Amount,
		&txn.Category,
		&txn.Confidence,
		&txn.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction: %w", err)
	}

	return &txn, nil
}

// GetTransactionsByUser returns all transactions for a user, newest first.
func (s *SQLiteStorage) GetTransactionsByUser(ctx context.Context, userID string) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	query := `
		SELECT id, user_id, description, amount, category, confidence, created_at
		FROM transactions
		WHERE user_id = ?
		ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var transactions []model.Transaction
	for rows.Next() {
		var txn model.Transaction
		if err := rows.Scan(
			&txn.ID,
			&txn.UserID,
			&txn.Description,
			&txn.Amount,
			&txn.Category,
			&txn.Confidence,
			&txn.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, txn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return transactions, nil
}

// SumSpendByUserCategory recomputes the total spend for a (user, category)
// pair from all persisted transactions. The evaluator deliberately does a
// full aggregate on every job instead of keeping a running counter, so
// out-of-band transaction changes can never cause drift.
func (s *SQLiteStorage) SumSpendByUserCategory(ctx context.Context, userID, category string) (float64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return 0, err
	}
	if err := validateString(category, "category"); err != nil {
		return 0, err
	}

	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE user_id = ? AND category = ?`

	var total float64
	if err := s.db.QueryRowContext(ctx, query, userID, category).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum spend for user %s category %s: %w", userID, category, err)
	}

	return total, nil
}
