package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/dukerupert/reloop/internal/model"
	"github.com/dukerupert/reloop/internal/store"
	"github.com/spf13/cobra"
)

func newRedemptionsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "redemptions", Short: "Reward fulfillment"}

	var status string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List redemptions in a fulfillment status",
		RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
			rs, err := store.NewRedemptionStore(e.db).ListByStatus(cmd.Context(), model.RedemptionStatus(status))
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tUSER\tREWARD\tPOINTS\tSTATUS\tCREATED")
			for _, r := range rs {
				fmt.Fprintf(tw, "%d\t%d\t%s\t%d\t%s\t%s\n", r.ID, r.UserID, r.RewardName, r.PointsSpent, r.Status, r.CreatedAt.Format(time.DateTime))
			}
			return tw.Flush()
		}),
	}
	listCmd.Flags().StringVarP(&status, "status", "s", string(model.RedemptionPending), "Pending, Shipped or Completed")
	cmd.AddCommand(listCmd)

	advanceCmd := &cobra.Command{
		Use:   "advance REDEMPTION_ID",
		Short: "Move a redemption to its next status (Pending, Shipped, Completed)",
		Args:  cobra.ExactArgs(1),
		RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid redemption id %q", args[0])
			}
			r, err := store.NewRedemptionStore(e.db).Advance(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("advance redemption %d: %w", id, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "redemption %d is now %s\n", r.ID, r.Status)
			return nil
		}),
	}
	cmd.AddCommand(advanceCmd)

	return cmd
}

func newPickupsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "pickups", Short: "Doorstep pickup operations"}

	statusCmd := &cobra.Command{
		Use:   "status PICKUP_ID STATUS",
		Short: `Set a pickup's status ("In Progress" or "Completed")`,
		Args:  cobra.ExactArgs(2),
		RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid pickup id %q", args[0])
			}
			status := model.PickupStatus(args[1])
			switch status {
			case model.PickupInProgress, model.PickupCompleted:
			default:
				return fmt.Errorf("status must be %q or %q; users cancel their own pickups", model.PickupInProgress, model.PickupCompleted)
			}
			if err := store.NewPickupStore(e.db).SetStatus(cmd.Context(), id, status); err != nil {
				return fmt.Errorf("set pickup %d status: %w", id, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pickup %d is now %s\n", id, status)
			return nil
		}),
	}
	cmd.AddCommand(statusCmd)

	return cmd
}

func newRewardsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "rewards", Short: "Reward catalog"}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List rewards users can redeem",
		RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
			rs, err := store.NewRewardStore(e.db).ListActive(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tPOINTS")
			for _, r := range rs {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%d\n", r.ID, r.Name, r.Category, r.PointCost)
			}
			return tw.Flush()
		}),
	})

	setActive := func(use, short string, active bool) *cobra.Command {
		return &cobra.Command{
			Use:   use + " REWARD_ID",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
				id, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid reward id %q", args[0])
				}
				if err := store.NewRewardStore(e.db).SetActive(cmd.Context(), id, active); err != nil {
					return fmt.Errorf("%s reward %d: %w", use, id, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "reward %d %sd\n", id, use)
				return nil
			}),
		}
	}
	cmd.AddCommand(
		setActive("enable", "Make a reward redeemable again", true),
		setActive("disable", "Withdraw a reward from the catalog", false),
	)

	return cmd
}
