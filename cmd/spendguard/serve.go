package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/spendguard/spendguard/internal/alert"
	"github.com/spendguard/spendguard/internal/config"
	"github.com/spendguard/spendguard/internal/queue"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the queue server and alert worker pool",
		Long: `Starts the embedded queue server, the alert evaluation workers and the
Prometheus metrics endpoint. Runs until interrupted.

Ingestion commands connect to this process through the queue; jobs survive
restarts via the queue's file store.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	store, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	url := cfg.Queue.URL
	if url == "" {
		// No external server configured; embed one.
		server, err := queue.NewEmbeddedServer(queue.DefaultServerConfig(cfg.Queue.StoreDir))
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()
		url = server.ClientURL()
		slog.Info("embedded queue server started", "url", url)
	}

	streamInit, err := queue.NewStreamInitializer(url)
	if err != nil {
		return err
	}
	if err := streamInit.EnsureStream(ctx); err != nil {
		streamInit.Close()
		return err
	}
	streamInit.Close()

	wmLogger := watermill.NewSlogLogger(slog.Default())

	publisher, err := queue.NewPublisher(queue.DefaultPublisherConfig(url), wmLogger)
	if err != nil {
		return err
	}
	defer func() { _ = publisher.Close() }()

	// Connection-level queue failures arrive on a separate channel from
	// per-job errors; surface them so a flapping broker link is visible.
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case err := <-publisher.Errors():
				slog.Error("queue connection failure", "error", err)
			}
		}
	}()

	subscriber, err := queue.NewSubscriber(queue.DefaultSubscriberConfig(url), wmLogger)
	if err != nil {
		return err
	}
	defer func() { _ = subscriber.Close() }()

	router, err := queue.NewRouter(queue.DefaultRouterConfig(), publisher.WatermillPublisher(), wmLogger)
	if err != nil {
		return err
	}

	evaluator := alert.NewEvaluator(store, nil, slog.Default())
	alert.RegisterHandlers(router, subscriber, evaluator, store, slog.Default())

	metricsServer := &http.Server{
		Addr:              cfg.Metrics.Addr,
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		slog.Info("metrics endpoint listening", "addr", cfg.Metrics.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	slog.Info("alert workers running", "queue_url", url)
	if err := router.Run(ctx); err != nil {
		return fmt.Errorf("worker router failed: %w", err)
	}

	return nil
}
