package ingest

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spendguard/spendguard/internal/category"
	"github.com/spendguard/spendguard/internal/common"
	"github.com/spendguard/spendguard/internal/model"
	"github.com/spendguard/spendguard/internal/service"
	"github.com/spendguard/spendguard/internal/storage"
)

type fakeClassifier struct {
	result service.Classification
	calls  int
}

func (f *fakeClassifier) Classify(_ context.Context, _ string) service.Classification {
	f.calls++
	return f.result
}

type fakeDispatcher struct {
	jobs []model.TransactionCreatedJob
	err  error
}

func (f *fakeDispatcher) Dispatch(_ context.Context, job model.TransactionCreatedJob) error {
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, job)
	return nil
}

func newTestService(t *testing.T, classifier service.Classifier, dispatcher service.Dispatcher) (*Service, service.Storage) {
	t.Helper()

	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { _ = store.Close() })

	return NewService(store, classifier, dispatcher, slog.Default()), store
}

func TestIngest(t *testing.T) {
	ctx := context.Background()

	t.Run("persists classified transaction and dispatches job", func(t *testing.T) {
		classifier := &fakeClassifier{result: service.Classification{Category: "Food", Confidence: 0.9}}
		dispatcher := &fakeDispatcher{}
		svc, store := newTestService(t, classifier, dispatcher)

		txn, err := svc.Ingest(ctx, Request{
			UserID:      "user-1",
			Description: "WHOLEFDS #123",
			Amount:      54.20,
		})
		require.NoError(t, err)
		require.NotNil(t, txn)
		assert.Equal(t, "Food", txn.Category)
		assert.InDelta(t, 0.9, txn.Confidence, 0.001)

		// Persisted, not just returned.
		got, err := store.GetTransactionByID(ctx, txn.ID)
		require.NoError(t, err)
		assert.Equal(t, "user-1", got.UserID)

		// User was provisioned as part of the same ingest.
		user, err := store.GetUser(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, "user-1", user.ID)

		// Exactly one job, carrying the persisted values.
		require.Len(t, dispatcher.jobs, 1)
		job := dispatcher.jobs[0]
		assert.Equal(t, txn.ID, job.TransactionID)
		assert.Equal(t, "user-1", job.UserID)
		assert.Equal(t, "Food", job.Category)
		assert.InDelta(t, 54.20, job.Amount, 0.001)
	})

	t.Run("rejects invalid request before any side effects", func(t *testing.T) {
		classifier := &fakeClassifier{result: service.Classification{Category: "Food", Confidence: 0.9}}
		dispatcher := &fakeDispatcher{}
		svc, store := newTestService(t, classifier, dispatcher)

		cases := []struct {
			name string
			req  Request
		}{
			{"missing user", Request{Description: "x", Amount: 1}},
			{"missing description", Request{UserID: "u", Amount: 1}},
			{"zero amount", Request{UserID: "u", Description: "x", Amount: 0}},
			{"negative amount", Request{UserID: "u", Description: "x", Amount: -5}},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				txn, err := svc.Ingest(ctx, tc.req)
				require.Error(t, err)
				assert.Nil(t, txn)
				assert.Equal(t, common.KindValidation, common.KindOf(err))
			})
		}

		assert.Zero(t, classifier.calls)
		assert.Empty(t, dispatcher.jobs)
		_, err := store.GetUser(ctx, "u")
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("returns transaction when dispatch fails", func(t *testing.T) {
		classifier := &fakeClassifier{result: service.Classification{Category: "Transport", Confidence: 0.8}}
		dispatcher := &fakeDispatcher{err: errors.New("queue unavailable")}
		svc, store := newTestService(t, classifier, dispatcher)

		txn, err := svc.Ingest(ctx, Request{
			UserID:      "user-1",
			Description: "UBER TRIP",
			Amount:      18.00,
		})
		require.NoError(t, err)
		require.NotNil(t, txn)

		got, err := store.GetTransactionByID(ctx, txn.ID)
		require.NoError(t, err)
		assert.Equal(t, "Transport", got.Category)
	})

	t.Run("repeated ingests for same user reuse the record", func(t *testing.T) {
		classifier := &fakeClassifier{result: service.Classification{Category: "Food", Confidence: 0.9}}
		dispatcher := &fakeDispatcher{}
		svc, store := newTestService(t, classifier, dispatcher)

		for i := 0; i < 3; i++ {
			_, err := svc.Ingest(ctx, Request{UserID: "user-1", Description: "CORNER SHOP", Amount: 5.00})
			require.NoError(t, err)
		}

		txns, err := store.GetTransactionsByUser(ctx, "user-1")
		require.NoError(t, err)
		assert.Len(t, txns, 3)
	})

	t.Run("stores fallback classification unchanged", func(t *testing.T) {
		classifier := &fakeClassifier{result: service.Classification{
			Category:   category.Default(),
			Confidence: category.FallbackConfidence,
		}}
		dispatcher := &fakeDispatcher{}
		svc, _ := newTestService(t, classifier, dispatcher)

		txn, err := svc.Ingest(ctx, Request{UserID: "user-1", Description: "UNKNOWN MERCHANT", Amount: 9.99})
		require.NoError(t, err)
		assert.Equal(t, "Other", txn.Category)
		assert.InDelta(t, 0.5, txn.Confidence, 0.001)
	})
}
