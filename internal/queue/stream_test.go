package queue

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startTestServer(t *testing.T) *EmbeddedServer {
	t.Helper()

	cfg := DefaultServerConfig(t.TempDir())
	cfg.Port = -1
	server, err := NewEmbeddedServer(cfg)
	require.NoError(t, err)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	})

	return server
}

func TestEnsureStream(t *testing.T) {
	server := startTestServer(t)
	ctx := context.Background()

	init, err := NewStreamInitializer(server.ClientURL())
	require.NoError(t, err)
	t.Cleanup(init.Close)

	require.NoError(t, init.EnsureStream(ctx))

	t.Run("is idempotent", func(t *testing.T) {
		require.NoError(t, init.EnsureStream(ctx))
	})

	t.Run("covers both topics with work-queue retention", func(t *testing.T) {
		nc, err := nats.Connect(server.ClientURL())
		require.NoError(t, err)
		defer nc.Close()

		js, err := jetstream.New(nc)
		require.NoError(t, err)

		stream, err := js.Stream(ctx, StreamName)
		require.NoError(t, err)
		info, err := stream.Info(ctx)
		require.NoError(t, err)

		assert.Equal(t, jetstream.WorkQueuePolicy, info.Config.Retention)
		assert.ElementsMatch(t,
			[]string{TopicTransactionCreated, TopicDeadLetter},
			info.Config.Subjects)
	})
}

func TestStreamRemovesAckedJobs(t *testing.T) {
	server := startTestServer(t)
	ctx := context.Background()

	init, err := NewStreamInitializer(server.ClientURL())
	require.NoError(t, err)
	t.Cleanup(init.Close)
	require.NoError(t, init.EnsureStream(ctx))

	nc, err := nats.Connect(server.ClientURL())
	require.NoError(t, err)
	defer nc.Close()

	js, err := jetstream.New(nc)
	require.NoError(t, err)

	_, err = js.Publish(ctx, TopicTransactionCreated,
		[]byte(`{"userId":"u1","transactionId":"t1","category":"Food","amount":10}`))
	require.NoError(t, err)

	consumer, err := js.CreateOrUpdateConsumer(ctx, StreamName, jetstream.ConsumerConfig{
		Durable:       "stream-test-worker",
		AckPolicy:     jetstream.AckExplicitPolicy,
		FilterSubject: TopicTransactionCreated,
	})
	require.NoError(t, err)

	batch, err := consumer.Fetch(1, jetstream.FetchMaxWait(5*time.Second))
	require.NoError(t, err)

	var msg jetstream.Msg
	for m := range batch.Messages() {
		msg = m
	}
	require.NoError(t, batch.Error())
	require.NotNil(t, msg)
	require.NoError(t, msg.DoubleAck(ctx))

	// A completed job must leave durable storage immediately; only failed
	// work is retained.
	stream, err := js.Stream(ctx, StreamName)
	require.NoError(t, err)
	info, err := stream.Info(ctx)
	require.NoError(t, err)
	assert.Zero(t, info.State.Msgs)
}
