package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// StreamInitializer ensures the job stream exists before publishers and
// subscribers start. Both the live topic and the dead-letter topic live on
// the same stream, so dead-lettered jobs get the same durability guarantees
// as live ones.
type StreamInitializer struct {
	js jetstream.JetStream
}

// NewStreamInitializer connects to the server and prepares a JetStream
// context for stream management.
func NewStreamInitializer(url string) (*StreamInitializer, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect for stream setup: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	return &StreamInitializer{js: js}, nil
}

// EnsureStream creates or updates the job stream. Idempotent; safe to call
// on every startup.
func (s *StreamInitializer) EnsureStream(ctx context.Context) error {
	// Work-queue retention: an acked job is deleted from the file store
	// immediately, so only in-flight and failed work occupies disk. Each
	// subject has exactly one consumer (the evaluator pool on the live
	// topic, the dead-letter persister on the poison topic), which is what
	// the policy requires.
	streamCfg := jetstream.StreamConfig{
		Name:      StreamName,
		Subjects:  []string{TopicTransactionCreated, TopicDeadLetter},
		Retention: jetstream.WorkQueuePolicy,
		Storage:   jetstream.FileStorage,
		// Publish-side dedup window; the publisher sets Nats-Msg-Id from
		// the message UUID.
		Duplicates: 2 * time.Minute,
	}

	_, err := s.js.Stream(ctx, StreamName)
	if err == nil {
		if _, err := s.js.UpdateStream(ctx, streamCfg); err != nil {
			return fmt.Errorf("failed to update stream %s: %w", StreamName, err)
		}
		return nil
	}

	if errors.Is(err, jetstream.ErrStreamNotFound) {
		if _, err := s.js.CreateStream(ctx, streamCfg); err != nil {
			return fmt.Errorf("failed to create stream %s: %w", StreamName, err)
		}
		return nil
	}

	return fmt.Errorf("failed to check stream %s: %w", StreamName, err)
}

// Close releases the underlying connection.
func (s *StreamInitializer) Close() {
	s.js.Conn().Close()
}
