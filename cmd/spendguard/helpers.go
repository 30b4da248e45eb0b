package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/spendguard/spendguard/internal/config"
	"github.com/spendguard/spendguard/internal/llm"
	"github.com/spendguard/spendguard/internal/queue"
	"github.com/spendguard/spendguard/internal/storage"
)

// openStorage opens the database and brings the schema up to date.
func openStorage(ctx context.Context, cfg *config.Config) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate storage: %w", err)
	}

	return store, nil
}

// newClassifier builds the LLM classification gateway from config.
func newClassifier(cfg *config.Config) (*llm.Classifier, error) {
	return llm.NewClassifier(llm.Config{
		Provider: cfg.LLM.Provider,
		APIKey:   cfg.LLM.APIKey,
		Model:    cfg.LLM.Model,
		Timeout:  cfg.LLM.Timeout,
	}, slog.Default())
}

// newDispatcher connects a queue publisher to the configured server.
func newDispatcher(cfg *config.Config) (*queue.Publisher, error) {
	url := cfg.Queue.URL
	if url == "" {
		url = queue.DefaultClientURL
	}

	wmLogger := watermill.NewSlogLogger(slog.Default())
	pub, err := queue.NewPublisher(queue.DefaultPublisherConfig(url), wmLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to queue at %s: %w", url, err)
	}

	return pub, nil
}
