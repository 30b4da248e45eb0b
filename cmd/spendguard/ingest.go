package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/spendguard/spendguard/internal/config"
	"github.com/spendguard/spendguard/internal/ingest"
)

func ingestCmd() *cobra.Command {
	var (
		userID      string
		description string
		amount      float64
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest a single transaction",
		Long: `Classifies one transaction, persists it, and dispatches it for alert
evaluation. The user is provisioned automatically on first use.

Requires a running serve process to pick up the evaluation job.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			store, err := openStorage(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			classifier, err := newClassifier(cfg)
			if err != nil {
				return err
			}

			dispatcher, err := newDispatcher(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = dispatcher.Close() }()

			svc := ingest.NewService(store, classifier, dispatcher, slog.Default())
			txn, err := svc.Ingest(ctx, ingest.Request{
				UserID:      userID,
				Description: description,
				Amount:      amount,
			})
			if err != nil {
				return fmt.Errorf("ingestion failed: %w", err)
			}

			cmd.Printf("Ingested %s\n", txn.ID)
			cmd.Printf("  Category:   %s (confidence %.2f)\n", txn.Category, txn.Confidence)
			cmd.Printf("  Amount:     $%.2f\n", txn.Amount)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user ID (required)")
	cmd.Flags().StringVar(&description, "description", "", "transaction description (required)")
	cmd.Flags().Float64Var(&amount, "amount", 0, "transaction amount, must be positive (required)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("description")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}
