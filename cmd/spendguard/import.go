package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/spendguard/spendguard/internal/config"
	"github.com/spendguard/spendguard/internal/ingest"
	"github.com/spendguard/spendguard/internal/ofx"
)

func importCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "import [file...]",
		Short: "Import transactions from OFX/QFX files",
		Long: `Parses bank export files and runs every debit through the ingestion
pipeline: classification, persistence, and alert evaluation dispatch.
Credits are skipped.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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
			parser := ofx.NewParser()

			var records []ofx.Record
			for _, path := range args {
				file, err := os.Open(path)
				if err != nil {
					return fmt.Errorf("failed to open %s: %w", path, err)
				}

				parsed, err := parser.ParseFile(ctx, file)
				_ = file.Close()
				if err != nil {
					return fmt.Errorf("failed to parse %s: %w", path, err)
				}
				records = append(records, parsed...)
			}

			// Overlapping exports repeat lines; drop them before ingesting
			// so duplicate statement rows cannot inflate spend totals.
			records, duplicates := ofx.Deduplicate(records)
			if duplicates > 0 {
				slog.Info("skipped duplicate records", "count", duplicates)
			}

			if len(records) == 0 {
				cmd.Println("No debit transactions found.")
				return nil
			}

			bar := progressbar.NewOptions(len(records),
				progressbar.OptionSetDescription("Importing"),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)

			var imported, failed int
			for _, record := range records {
				_, err := svc.Ingest(ctx, ingest.Request{
					UserID:      userID,
					Description: record.Description,
					Amount:      record.Amount,
				})
				if err != nil {
					failed++
					slog.Warn("skipping record",
						"description", record.Description,
						"error", err)
				} else {
					imported++
				}
				_ = bar.Add(1)
			}

			cmd.Printf("Imported %d transactions (%d failed)\n", imported, failed)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user ID to import transactions for (required)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
