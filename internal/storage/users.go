package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spendguard/spendguard/internal/common"
	"github.com/spendguard/spendguard/internal/model"
)

// UpsertUser creates the user if absent and leaves an existing record
// untouched. The ingestion service calls this explicitly before every
// transaction write so lazy provisioning stays a visible step.
func (s *SQLiteStorage) UpsertUser(ctx context.Context, user *model.User) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if user == nil {
		return fmt.Errorf("%w: user", ErrNilParameter)
	}
	if err := validateString(user.ID, "user.ID"); err != nil {
		return err
	}

	query := `
		INSERT INTO users (id, email, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO NOTHING`

	result, err := s.db.ExecContext(ctx, query, user.ID, user.Email, time.Now())
	if err != nil {
		return fmt.Errorf("failed to upsert user %s: %w", user.ID, err)
	}

	if rows, err := result.RowsAffected(); err == nil && rows > 0 {
		slog.Info("provisioned user", "user_id", user.ID)
	}

	return nil
}

// GetUser returns a user by id.
func (s *SQLiteStorage) GetUser(ctx context.Context, id string) (*model.User, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	query := `SELECT id, email, created_at FROM users WHERE id = ?`

	var user model.User
	err := s.db.QueryRowContext(ctx, query, id).Scan(&user.ID, &user.Email, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	return &user, nil
}

// DeleteUser removes a user. Transactions and alert rules cascade via
// foreign keys.
func (s *SQLiteStorage) DeleteUser(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user %s: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user %s: %w", id, common.ErrNotFound)
	}

	slog.Info("deleted user", "user_id", id)
	return nil
}
