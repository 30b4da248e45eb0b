// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/spendguard/spendguard/internal/model"
)

// Storage defines the contract for our persistence layer.
type Storage interface {
	// User operations
	UpsertUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, id string) (*model.User, error)
	DeleteUser(ctx context.Context, id string) error

	// Transaction operations
	CreateTransaction(ctx context.Context, txn *model.Transaction) error
	GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error)
	GetTransactionsByUser(ctx context.Context, userID string) ([]model.Transaction, error)
	SumSpendByUserCategory(ctx context.Context, userID, category string) (float64, error)

	// Alert rule operations
	CreateAlertRule(ctx context.Context, rule *model.AlertRule) error
	GetAlertRulesByUser(ctx context.Context, userID string) ([]model.AlertRule, error)
	GetAlertRule(ctx context.Context, userID, category string) (*model.AlertRule, error)
	UpdateAlertRule(ctx context.Context, id int64, patch model.AlertRulePatch) error
	DeleteAlertRule(ctx context.Context, id int64) error

	// Dead job operations
	SaveDeadJob(ctx context.Context, job *model.DeadJob) error
	ListDeadJobs(ctx context.Context, limit int) ([]model.DeadJob, error)
	CountDeadJobs(ctx context.Context) (int, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// Classification is the outcome of classifying a transaction description.
type Classification struct {
	Category   string
	Confidence float64
}

// Classifier assigns a spending category to a transaction description.
// Implementations fail closed: they always return a usable classification,
// falling back to the default category rather than surfacing provider
// errors.
type Classifier interface {
	Classify(ctx context.Context, description string) Classification
}

// Dispatcher submits jobs to the durable queue for asynchronous alert
// evaluation.
type Dispatcher interface {
	Dispatch(ctx context.Context, job model.TransactionCreatedJob) error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
