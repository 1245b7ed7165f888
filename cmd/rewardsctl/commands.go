package main

import (
	"errors"  // Mismatch error
	"fmt"     // Command output
	"strconv" // Numeric account ids

	"rewards_system/internal/domain" // Domain models

	"github.com/spf13/cobra" // CLI commands
)

func init() {
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(settleCmd)
	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(promoteCmd)

	reconcileCmd.Flags().Uint("account", 0, "Check a single account instead of all of them")
	promoteCmd.Flags().Bool("demote", false, "Set the role back to user")
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill empty catalog tables with the default packages, products, tasks and gifts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := application.Catalog.Seed(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Inserted %d packages, %d products, %d tasks, %d gifts\n",
			report.Packages, report.Products, report.Tasks, report.Gifts)
		return nil
	},
}

var settleCmd = &cobra.Command{
	Use:   "settle",
	Short: "Credit elapsed investment profit and pay deferred referral bonuses now",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := application.Rewards.SettleInvestments(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Credited %d investments (%s total), completed %d, failed %d, referrals paid %d\n",
			report.Credited, report.Amount.StringFixed(2), report.Completed, report.Failed, report.Referrals)
		if report.Failed > 0 {
			return fmt.Errorf("%d investments failed to settle, see the logs", report.Failed)
		}
		return nil
	},
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Check that every balance equals the sum of its transactions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		one, _ := cmd.Flags().GetUint("account")
		var ids []uint
		if one != 0 {
			ids = []uint{one}
		} else {
			for page := 1; ; page++ {
				list, err := application.Accounts.List(ctx, page, 100)
				if err != nil {
					return err
				}
				for _, acc := range list.Accounts {
					ids = append(ids, acc.ID)
				}
				if len(list.Accounts) < list.PageSize {
					break
				}
			}
		}
		bad := 0
		for _, id := range ids {
			rec, err := application.Ledger.Reconcile(ctx, id)
			if err != nil {
				return fmt.Errorf("account %d: %w", id, err)
			}
			if !rec.OK {
				bad++
				fmt.Fprintf(cmd.OutOrStdout(), "MISMATCH account %d: balance %s, ledger %s over %d entries\n",
					id, rec.Balance.StringFixed(2), rec.LedgerSum.StringFixed(2), rec.Entries)
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Checked %d accounts, %d mismatched\n", len(ids), bad)
		if bad > 0 {
			return errors.New("ledger mismatch found")
		}
		return nil
	},
}

var promoteCmd = &cobra.Command{
	Use:   "promote EMAIL_OR_ID",
	Short: "Grant an account the admin role",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		var acc *domain.Account
		var err error
		if id, convErr := strconv.ParseUint(args[0], 10, 64); convErr == nil {
			acc, err = application.Accounts.Get(ctx, uint(id))
		} else {
			acc, err = application.Accounts.FindByEmail(ctx, args[0])
		}
		if err != nil {
			return err
		}
		role := domain.RoleAdmin
		if demote, _ := cmd.Flags().GetBool("demote"); demote {
			role = domain.RoleUser
		}
		if err := application.Accounts.SetRole(ctx, acc.ID, role); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", acc.Email, role)
		return nil
	},
}
