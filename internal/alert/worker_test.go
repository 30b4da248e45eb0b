package alert

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spendguard/spendguard/internal/model"
	"github.com/spendguard/spendguard/internal/queue"
	"github.com/spendguard/spendguard/internal/service"
)

// flakyStore fails SumSpendByUserCategory a fixed number of times before
// delegating, to exercise the retry path without a real broker outage.
type flakyStore struct {
	service.Storage
	mu        sync.Mutex
	failures  int
	sumCalls  int
}

func (f *flakyStore) SumSpendByUserCategory(ctx context.Context, userID, category string) (float64, error) {
	f.mu.Lock()
	f.sumCalls++
	fail := f.sumCalls <= f.failures
	f.mu.Unlock()

	if fail {
		return 0, errors.New("transient store failure")
	}
	return f.Storage.SumSpendByUserCategory(ctx, userID, category)
}

func (f *flakyStore) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sumCalls
}

// brokenStore always fails rule lookup, so every attempt on a job fails and
// the message ends up dead-lettered.
type brokenStore struct {
	service.Storage
}

func (b *brokenStore) GetAlertRule(_ context.Context, _, _ string) (*model.AlertRule, error) {
	return nil, errors.New("store unavailable")
}

func testRouterConfig() queue.RouterConfig {
	cfg := queue.DefaultRouterConfig()
	cfg.RetryInitialInterval = 10 * time.Millisecond
	cfg.RetryMaxInterval = 50 * time.Millisecond
	cfg.CloseTimeout = 5 * time.Second
	return cfg
}

func runRouter(t *testing.T, router *message.Router) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = router.Run(ctx)
	}()
	<-router.Running()

	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(10 * time.Second):
			t.Error("router did not stop")
		}
	})
}

func publishJob(t *testing.T, pubSub *gochannel.GoChannel, job model.TransactionCreatedJob) {
	t.Helper()

	payload, err := job.Marshal()
	require.NoError(t, err)
	msg := message.NewMessage(watermill.NewUUID(), payload)
	require.NoError(t, pubSub.Publish(queue.TopicTransactionCreated, msg))
}

func TestWorker_ProcessesJobEndToEnd(t *testing.T) {
	store := createTestStorage(t)
	notifier := &recordingNotifier{}
	logger := watermill.NewSlogLogger(slog.Default())

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, logger)
	router, err := queue.NewRouter(testRouterConfig(), pubSub, logger)
	require.NoError(t, err)

	eval := NewEvaluator(store, notifier, slog.Default())
	RegisterHandlers(router, pubSub, eval, store, slog.Default())
	runRouter(t, router)

	ctx := context.Background()
	addTransaction(t, store, "user-1", "Food", 80)
	job := addTransaction(t, store, "user-1", "Food", 30)
	require.NoError(t, store.CreateAlertRule(ctx, &model.AlertRule{
		UserID: "user-1", Category: "Food", Threshold: 100, IsActive: true,
	}))

	publishJob(t, pubSub, job)

	assert.Eventually(t, func() bool {
		return len(notifier.all()) == 1
	}, 5*time.Second, 20*time.Millisecond)

	event := notifier.all()[0]
	assert.InDelta(t, 110.0, event.TotalSpent, 0.001)
}

func TestWorker_TransientFailureSucceedsOnRetry(t *testing.T) {
	store := createTestStorage(t)
	notifier := &recordingNotifier{}
	logger := watermill.NewSlogLogger(slog.Default())

	// Fail twice; the third attempt is the last one the policy allows.
	flaky := &flakyStore{Storage: store, failures: 2}

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, logger)
	router, err := queue.NewRouter(testRouterConfig(), pubSub, logger)
	require.NoError(t, err)

	eval := NewEvaluator(flaky, notifier, slog.Default())
	RegisterHandlers(router, pubSub, eval, store, slog.Default())
	runRouter(t, router)

	ctx := context.Background()
	job := addTransaction(t, store, "user-1", "Food", 150)
	require.NoError(t, store.CreateAlertRule(ctx, &model.AlertRule{
		UserID: "user-1", Category: "Food", Threshold: 100, IsActive: true,
	}))

	publishJob(t, pubSub, job)

	assert.Eventually(t, func() bool {
		return len(notifier.all()) == 1
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, 3, flaky.calls())

	// No dead job: the final attempt succeeded.
	count, err := store.CountDeadJobs(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestWorker_ExhaustedRetriesDeadLetter(t *testing.T) {
	store := createTestStorage(t)
	logger := watermill.NewSlogLogger(slog.Default())

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, logger)
	router, err := queue.NewRouter(testRouterConfig(), pubSub, logger)
	require.NoError(t, err)

	// Evaluation always fails; persistence of the dead job uses the
	// healthy store.
	eval := NewEvaluator(&brokenStore{Storage: store}, &recordingNotifier{}, slog.Default())
	RegisterHandlers(router, pubSub, eval, store, slog.Default())
	runRouter(t, router)

	ctx := context.Background()
	job := addTransaction(t, store, "user-1", "Food", 150)
	publishJob(t, pubSub, job)

	assert.Eventually(t, func() bool {
		count, err := store.CountDeadJobs(ctx)
		return err == nil && count == 1
	}, 5*time.Second, 20*time.Millisecond)

	jobs, err := store.ListDeadJobs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Contains(t, jobs[0].Payload, job.TransactionID)
	assert.Contains(t, jobs[0].Reason, "store unavailable")
	assert.NotEmpty(t, jobs[0].UUID)
}

func TestWorker_MalformedPayloadDeadLetters(t *testing.T) {
	store := createTestStorage(t)
	logger := watermill.NewSlogLogger(slog.Default())

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, logger)
	router, err := queue.NewRouter(testRouterConfig(), pubSub, logger)
	require.NoError(t, err)

	eval := NewEvaluator(store, &recordingNotifier{}, slog.Default())
	RegisterHandlers(router, pubSub, eval, store, slog.Default())
	runRouter(t, router)

	msg := message.NewMessage(watermill.NewUUID(), []byte(`{"userId":""}`))
	require.NoError(t, pubSub.Publish(queue.TopicTransactionCreated, msg))

	ctx := context.Background()
	assert.Eventually(t, func() bool {
		count, err := store.CountDeadJobs(ctx)
		return err == nil && count == 1
	}, 5*time.Second, 20*time.Millisecond)
}
