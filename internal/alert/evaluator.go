// Package alert implements asynchronous threshold evaluation for ingested
// transactions.
package alert

import (
	"context"
	"log/slog"

	"github.com/spendguard/spendguard/internal/common"
	"github.com/spendguard/spendguard/internal/metrics"
	"github.com/spendguard/spendguard/internal/model"
	"github.com/spendguard/spendguard/internal/service"
)

// Notifier receives emitted alert events. The default implementation just
// logs them; a real notification channel plugs in here.
type Notifier interface {
	Notify(ctx context.Context, event model.AlertEvent) error
}

// LogNotifier writes alert events to the structured log.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n *LogNotifier) Notify(_ context.Context, event model.AlertEvent) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("spending alert",
		"user_id", event.UserID,
		"category", event.Category,
		"threshold", event.Threshold,
		"total_spent", event.TotalSpent,
		"message", event.Message)
	return nil
}

// Evaluator checks one job against the matching alert rule.
type Evaluator struct {
	storage  service.Storage
	notifier Notifier
	logger   *slog.Logger
}

// NewEvaluator creates an evaluator. A nil notifier falls back to logging.
func NewEvaluator(storage service.Storage, notifier Notifier, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = &LogNotifier{Logger: logger}
	}
	return &Evaluator{
		storage:  storage,
		notifier: notifier,
		logger:   logger,
	}
}

// Evaluate recomputes the user's total spend in the job's category and emits
// an alert event when it exceeds the rule threshold. A missing or inactive
// rule means there is nothing to check; that is success, not failure.
//
// The total is always recomputed from storage rather than accumulated
// incrementally, so redelivered jobs are naturally idempotent: re-running
// the same job sees the same total and reaches the same verdict.
func (e *Evaluator) Evaluate(ctx context.Context, job model.TransactionCreatedJob) (*model.AlertEvent, error) {
	rule, err := e.storage.GetAlertRule(ctx, job.UserID, job.Category)
	if err != nil {
		return nil, common.E(common.KindWorker, "failed to load alert rule", err)
	}
	if rule == nil || !rule.IsActive {
		e.logger.Debug("no active alert rule",
			"user_id", job.UserID,
			"category", job.Category)
		return nil, nil
	}

	total, err := e.storage.SumSpendByUserCategory(ctx, job.UserID, job.Category)
	if err != nil {
		return nil, common.E(common.KindWorker, "failed to compute category spend", err)
	}

	// Strict comparison: landing exactly on the threshold is not a breach.
	if total <= rule.Threshold {
		return nil, nil
	}

	event := model.NewAlertEvent(job.UserID, job.Category, rule.Threshold, total)
	metrics.AlertsEmitted.Inc()

	if err := e.notifier.Notify(ctx, event); err != nil {
		// The evaluation itself succeeded; a notification failure must not
		// push the job back onto the retry path.
		e.logger.Error("failed to deliver alert notification",
			"user_id", event.UserID,
			"category", event.Category,
			"error", err)
	}

	return &event, nil
}
