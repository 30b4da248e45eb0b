package main

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/spendguard/spendguard/internal/category"
	"github.com/spendguard/spendguard/internal/config"
	"github.com/spendguard/spendguard/internal/model"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage spending alert rules",
	}

	cmd.AddCommand(rulesAddCmd())
	cmd.AddCommand(rulesListCmd())
	cmd.AddCommand(rulesSetCmd())
	cmd.AddCommand(rulesDeleteCmd())

	return cmd
}

func rulesAddCmd() *cobra.Command {
	var (
		userID    string
		cat       string
		threshold float64
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create an alert rule",
		Long: `Creates a spending threshold for a (user, category) pair. Each pair can
hold at most one rule.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			if !category.IsValid(cat) {
				return fmt.Errorf("unknown category %q (valid: %s)",
					cat, strings.Join(category.All(), ", "))
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			store, err := openStorage(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			// Rules can be created before the user's first transaction.
			if err := store.UpsertUser(ctx, &model.User{ID: userID}); err != nil {
				return err
			}

			rule := &model.AlertRule{
				UserID:    userID,
				Category:  cat,
				Threshold: threshold,
				IsActive:  true,
			}
			if err := store.CreateAlertRule(ctx, rule); err != nil {
				return err
			}

			cmd.Printf("Created rule %d: alert when %s spending for %s exceeds $%.2f\n",
				rule.ID, cat, userID, threshold)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user ID (required)")
	cmd.Flags().StringVar(&cat, "category", "", "spending category (required)")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "spend threshold, must be positive (required)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("category")
	_ = cmd.MarkFlagRequired("threshold")

	return cmd
}

func rulesListCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a user's alert rules",
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

			rules, err := store.GetAlertRulesByUser(ctx, userID)
			if err != nil {
				return err
			}
			if len(rules) == 0 {
				cmd.Println("No rules configured.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCATEGORY\tTHRESHOLD\tACTIVE")
			for _, rule := range rules {
				fmt.Fprintf(w, "%d\t%s\t$%.2f\t%t\n",
					rule.ID, rule.Category, rule.Threshold, rule.IsActive)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user ID (required)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func rulesSetCmd() *cobra.Command {
	var (
		threshold float64
		active    string
	)

	cmd := &cobra.Command{
		Use:   "set [rule-id]",
		Short: "Update a rule's threshold or active state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid rule ID %q", args[0])
			}

			var patch model.AlertRulePatch
			if cmd.Flags().Changed("threshold") {
				patch.Threshold = &threshold
			}
			if cmd.Flags().Changed("active") {
				isActive, err := strconv.ParseBool(active)
				if err != nil {
					return fmt.Errorf("invalid --active value %q", active)
				}
				patch.IsActive = &isActive
			}
			if patch.Threshold == nil && patch.IsActive == nil {
				return fmt.Errorf("nothing to update: pass --threshold or --active")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			store, err := openStorage(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.UpdateAlertRule(ctx, id, patch); err != nil {
				return err
			}

			cmd.Printf("Updated rule %d\n", id)
			return nil
		},
	}

	cmd.Flags().Float64Var(&threshold, "threshold", 0, "new spend threshold")
	cmd.Flags().StringVar(&active, "active", "", "enable or disable the rule (true/false)")

	return cmd
}

func rulesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [rule-id]",
		Short: "Delete an alert rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid rule ID %q", args[0])
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			store, err := openStorage(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.DeleteAlertRule(ctx, id); err != nil {
				return err
			}

			cmd.Printf("Deleted rule %d\n", id)
			return nil
		},
	}
}
