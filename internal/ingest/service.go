// Package ingest implements the synchronous half of the pipeline: validate,
// classify, persist, dispatch.
package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/spendguard/spendguard/internal/common"
	"github.com/spendguard/spendguard/internal/metrics"
	"github.com/spendguard/spendguard/internal/model"
	"github.com/spendguard/spendguard/internal/service"
)

// Request is a single inbound transaction before classification.
type Request struct {
	UserID      string  `validate:"required"`
	Description string  `validate:"required"`
	Amount      float64 `validate:"required,gt=0"`
}

// Service coordinates one transaction through classification, persistence
// and dispatch.
type Service struct {
	storage    service.Storage
	classifier service.Classifier
	dispatcher service.Dispatcher
	validate   *validator.Validate
	logger     *slog.Logger
}

// NewService creates an ingestion service.
func NewService(storage service.Storage, classifier service.Classifier, dispatcher service.Dispatcher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		storage:    storage,
		classifier: classifier,
		dispatcher: dispatcher,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		logger:     logger,
	}
}

// Ingest runs the synchronous pipeline for one transaction. The persisted
// transaction is returned even when dispatch fails: by then the write is
// durable, and the caller must not be told otherwise.
func (s *Service) Ingest(ctx context.Context, req Request) (*model.Transaction, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, common.E(common.KindValidation, "invalid ingestion request", err)
	}

	// The classifier fails closed, so this never errors; a provider outage
	// shows up as the default category with fallback confidence.
	classification := s.classifier.Classify(ctx, req.Description)

	// Provisioning runs unconditionally on every ingest. An upsert costs one
	// statement either way, and it removes the read-then-create race two
	// concurrent first transactions would otherwise hit.
	if err := s.storage.UpsertUser(ctx, &model.User{ID: req.UserID}); err != nil {
		return nil, common.E(common.KindPersistence, "failed to provision user", err)
	}

	txn := &model.Transaction{
		ID:          uuid.New().String(),
		UserID:      req.UserID,
		Description: req.Description,
		Amount:      req.Amount,
		Category:    classification.Category,
		Confidence:  classification.Confidence,
		CreatedAt:   time.Now(),
	}

	if err := s.storage.CreateTransaction(ctx, txn); err != nil {
		return nil, common.E(common.KindPersistence, "failed to persist transaction", err)
	}
	metrics.TransactionsIngested.Inc()

	job := model.TransactionCreatedJob{
		UserID:        txn.UserID,
		TransactionID: txn.ID,
		Category:      txn.Category,
		Amount:        txn.Amount,
	}

	if err := s.dispatcher.Dispatch(ctx, job); err != nil {
		// The transaction is already durable. Surface the dispatch failure
		// to operators and move on; re-dispatch is a manual operation.
		metrics.DispatchFailures.Inc()
		s.logger.Error("failed to dispatch alert evaluation job",
			"transaction_id", txn.ID,
			"user_id", txn.UserID,
			"error", common.E(common.KindDispatch, "job dispatch failed", err))
		return txn, nil
	}

	s.logger.Info("transaction ingested",
		"transaction_id", txn.ID,
		"user_id", txn.UserID,
		"category", txn.Category,
		"confidence", txn.Confidence,
		"amount", txn.Amount)

	return txn, nil
}
