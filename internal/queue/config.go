// Package queue provides the durable job queue between ingestion and alert
// evaluation, built on embedded NATS JetStream.
package queue

import "time"

// Topic names. The poison topic receives jobs whose retries were exhausted.
const (
	TopicTransactionCreated = "transactions.created"
	TopicDeadLetter         = "transactions.dead"
)

// StreamName is the JetStream stream backing both topics.
const StreamName = "SPENDGUARD"

// ServerConfig configures the embedded NATS server.
type ServerConfig struct {
	Host     string
	StoreDir string
	Port     int
}

// DefaultClientURL is where client commands expect the embedded server.
const DefaultClientURL = "nats://127.0.0.1:4222"

// DefaultServerConfig returns single-node defaults on the standard NATS
// port. Tests override Port with -1 to get a random free port.
func DefaultServerConfig(storeDir string) ServerConfig {
	return ServerConfig{
		Host:     "127.0.0.1",
		Port:     4222,
		StoreDir: storeDir,
	}
}

// PublisherConfig configures the queue publisher.
type PublisherConfig struct {
	URL           string
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultPublisherConfig returns publisher defaults for the given server URL.
func DefaultPublisherConfig(url string) PublisherConfig {
	return PublisherConfig{
		URL:           url,
		MaxReconnects: 10,
		ReconnectWait: 2 * time.Second,
	}
}

// SubscriberConfig configures the worker-side subscriber.
type SubscriberConfig struct {
	URL              string
	QueueGroup       string
	DurableName      string
	SubscribersCount int
	MaxReconnects    int
	ReconnectWait    time.Duration
	AckWaitTimeout   time.Duration
	CloseTimeout     time.Duration
	MaxAckPending    int
}

// DefaultSubscriberConfig returns worker defaults: five subscribers sharing
// one queue group, so jobs are load-balanced rather than fanned out.
func DefaultSubscriberConfig(url string) SubscriberConfig {
	return SubscriberConfig{
		URL:              url,
		QueueGroup:       "alert-workers",
		DurableName:      "alert-workers",
		SubscribersCount: 5,
		MaxReconnects:    10,
		ReconnectWait:    2 * time.Second,
		AckWaitTimeout:   30 * time.Second,
		CloseTimeout:     30 * time.Second,
		MaxAckPending:    256,
	}
}

// RouterConfig configures retry and dead-letter behavior for job handlers.
type RouterConfig struct {
	CloseTimeout         time.Duration
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
	RetryMultiplier      float64
	RetryMaxRetries      int
	PoisonQueueTopic     string
}

// DefaultRouterConfig returns the processing policy: three attempts total
// (one initial plus two retries) with exponential backoff starting at two
// seconds, then dead-letter.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		CloseTimeout:         30 * time.Second,
		RetryMaxRetries:      2,
		RetryInitialInterval: 2 * time.Second,
		RetryMaxInterval:     time.Minute,
		RetryMultiplier:      2.0,
		PoisonQueueTopic:     TopicDeadLetter,
	}
}
