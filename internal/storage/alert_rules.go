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

// CreateAlertRule inserts a threshold rule. At most one rule may exist per
// (user, category) pair; a second insert returns ErrDuplicateEntry.
func (s *SQLiteStorage) CreateAlertRule(ctx context.Context, rule *model.AlertRule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRule(rule); err != nil {
		return err
	}

	now := time.Now()
	query := `
		INSERT INTO alert_rules (user_id, category, threshold, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	result, err := s.db.ExecContext(ctx, query,
		rule.UserID,
		rule.Category,
		rule.Threshold,
		rule.IsActive,
		now,
		now,
	)
	if err != nil {
		if isUniqueConstraintErr(err) {
			return fmt.Errorf("alert rule for user %s category %s: %w",
				rule.UserID, rule.Category, common.ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to insert alert rule: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get alert rule ID: %w", err)
	}
	rule.ID = id
	rule.CreatedAt = now
	rule.UpdatedAt = now

	slog.Info("created alert rule",
		"rule_id", rule.ID,
		"user_id", rule.UserID,
		"category", rule.Category,
		"threshold", rule.Threshold)

	return nil
}

// GetAlertRule returns the rule for a (user, category) pair, or nil if no
// rule exists. Absence is not an error here: the evaluator treats a missing
// rule as "nothing to check".
func (s *SQLiteStorage) GetAlertRule(ctx context.Context, userID, category string) (*model.AlertRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}
	if err := validateString(category, "category"); err != nil {
		return nil, err
	}

	query := `
		SELECT id, user_id, category, threshold, is_active, created_at, updated_at
		FROM alert_rules
		WHERE user_id = ? AND category = ?`

	rule, err := scanAlertRule(s.db.QueryRowContext(ctx, query, userID, category))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query alert rule: %w", err)
	}

	return rule, nil
}

// GetAlertRulesByUser returns all rules for a user, active or not.
func (s *SQLiteStorage) GetAlertRulesByUser(ctx context.Context, userID string) ([]model.AlertRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	query := `
		SELECT id, user_id, category, threshold, is_active, created_at, updated_at
		FROM alert_rules
		WHERE user_id = ?
		ORDER BY category`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query alert rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var rules []model.AlertRule
	for rows.Next() {
		var rule model.AlertRule
		if err := rows.Scan(
			&rule.ID,
			&rule.UserID,
			&rule.Category,
			&rule.Threshold,
			&rule.IsActive,
			&rule.CreatedAt,
			&rule.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan alert rule: %w", err)
		}
		rules = append(rules, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alert rules: %w", err)
	}

	return rules, nil
}

// UpdateAlertRule applies a partial update to a rule. Unset patch fields
// leave the stored values untouched.
func (s *SQLiteStorage) UpdateAlertRule(ctx context.Context, id int64, patch model.AlertRulePatch) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if patch.Threshold == nil && patch.IsActive == nil {
		return fmt.Errorf("%w: patch has no fields set", ErrInvalidRule)
	}
	if patch.Threshold != nil && *patch.Threshold <= 0 {
		return fmt.Errorf("%w: threshold must be positive", ErrInvalidRule)
	}

	query := "UPDATE alert_rules SET updated_at = ?"
	args := []any{time.Now()}

	if patch.Threshold != nil {
		query += ", threshold = ?"
		args = append(args, *patch.Threshold)
	}
	if patch.IsActive != nil {
		query += ", is_active = ?"
		args = append(args, *patch.IsActive)
	}
	query += " WHERE id = ?"
	args = append(args, id)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update alert rule %d: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("alert rule %d: %w", id, common.ErrNotFound)
	}

	return nil
}

// DeleteAlertRule removes a rule by ID.
func (s *SQLiteStorage) DeleteAlertRule(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM alert_rules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete alert rule %d: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("alert rule %d: %w", id, common.ErrNotFound)
	}

	return nil
}

func scanAlertRule(row *sql.Row) (*model.AlertRule, error) {
	var rule model.AlertRule
	err := row.Scan(
		&rule.ID,
		&rule.UserID,
		&rule.Category,
		&rule.Threshold,
		&rule.IsActive,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rule, nil
}
