package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/spendguard/spendguard/internal/config"
)

func jobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect queue jobs",
	}

	cmd.AddCommand(jobsDeadCmd())

	return cmd
}

func jobsDeadCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "dead",
		Short: "List dead-lettered jobs",
		Long: `Shows jobs whose processing retries were exhausted. Dead jobs are kept
until an operator deals with them; nothing removes them automatically.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			store, err := openStorage(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			jobs, err := store.ListDeadJobs(ctx, limit)
			if err != nil {
				return err
			}
			if len(jobs) == 0 {
				cmd.Println("No dead jobs.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tFAILED AT\tREASON\tPAYLOAD")
			for _, job := range jobs {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n",
					job.ID,
					job.FailedAt.Format("2006-01-02 15:04:05"),
					job.Reason,
					job.Payload)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "maximum jobs to show (0 for all)")

	return cmd
}
