package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/spendguard/spendguard/internal/metrics"
	"github.com/spendguard/spendguard/internal/model"
	"github.com/spendguard/spendguard/internal/service"
)

// Publisher implements service.Dispatcher on top of a Watermill NATS
// publisher. A circuit breaker sits in front of every publish so a broker
// outage fails dispatch fast instead of stacking up blocked ingests.
type Publisher struct {
	publisher      message.Publisher
	circuitBreaker *gobreaker.CircuitBreaker[any]
	logger         watermill.LoggerAdapter
	connErrs       chan error
	mu             sync.RWMutex
	closed         bool
}

var _ service.Dispatcher = (*Publisher)(nil)

// NewPublisher creates a JetStream publisher with reconnection handling.
func NewPublisher(cfg PublisherConfig, logger watermill.LoggerAdapter) (*Publisher, error) {
	if logger == nil {
		logger = watermill.NewStdLogger(false, false)
	}

	// Connection-level failures are reported on a separate channel so
	// operators can distinguish a broken broker link from per-job errors.
	connErrs := make(chan error, 16)
	reportConnErr := func(err error) {
		select {
		case connErrs <- err:
		default:
		}
	}

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("queue connection lost", err, nil)
				reportConnErr(err)
			}
		}),
		natsgo.ErrorHandler(func(_ *natsgo.Conn, _ *natsgo.Subscription, err error) {
			logger.Error("queue connection error", err, nil)
			reportConnErr(err)
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("queue reconnected", watermill.LogFields{
				"url": nc.ConnectedUrl(),
			})
		}),
	}

	wmConfig := wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: false, // stream is pre-created by StreamInitializer
			TrackMsgId:    true,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}

	pub, err := wmNats.NewPublisher(wmConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create queue publisher: %w", err)
	}

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:    "queue-publish",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Publisher{
		publisher:      pub,
		circuitBreaker: cb,
		logger:         logger,
		connErrs:       connErrs,
	}, nil
}

// Errors returns connection-level failures (disconnects, async protocol
// errors). Per-job publish failures are returned by Dispatch instead.
func (p *Publisher) Errors() <-chan error {
	return p.connErrs
}

// Dispatch publishes a transaction-created job to the durable queue. The
// message UUID doubles as the Nats-Msg-Id so broker-level dedup can drop
// republished duplicates inside the dedup window.
func (p *Publisher) Dispatch(ctx context.Context, job model.TransactionCreatedJob) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return fmt.Errorf("publisher is closed")
	}
	p.mu.RUnlock()

	payload, err := job.Marshal()
	if err != nil {
		return err
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(natsgo.MsgIdHdr, msg.UUID)
	msg.Metadata.Set("user_id", job.UserID)
	msg.Metadata.Set("transaction_id", job.TransactionID)

	_, err = p.circuitBreaker.Execute(func() (any, error) {
		return nil, p.publisher.Publish(TopicTransactionCreated, msg)
	})
	if err != nil {
		return fmt.Errorf("failed to publish job for transaction %s: %w", job.TransactionID, err)
	}

	metrics.JobsPublished.Inc()
	return nil
}

// WatermillPublisher exposes the underlying publisher for router wiring,
// notably the poison queue middleware.
func (p *Publisher) WatermillPublisher() message.Publisher {
	return p.publisher
}

// Close shuts the publisher down. Subsequent Dispatch calls fail.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	return p.publisher.Close()
}
