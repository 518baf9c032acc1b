package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	apiclient "github.com/donaldgifford/pricely/internal/api/client"
)

func trackersCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "trackers",
		Aliases: []string{"tracker"},
		Short:   "Manage price trackers",
		Long: "A tracker watches one product URL for one user and notifies them\n" +
			"once the price drops to or below the target.",
	}

	root.AddCommand(
		trackerListCmd(),
		trackerGetCmd(),
		trackerAddCmd(),
		trackerUpdateCmd(),
		trackerDeleteCmd(),
		trackerCheckCmd(),
		trackerHistoryCmd(),
	)

	return root
}

func trackerListCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List trackers",
		Example: `  pricely trackers list
  pricely trackers list --user 7d9f... --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			trackers, err := newClient().ListTrackers(cmd.Context(), userID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOutput() {
				return outputJSON(out, trackers)
			}
			if len(trackers) == 0 {
				fmt.Fprintln(out, "No trackers found.")
				return nil
			}
			return printTrackerTable(out, trackers)
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "only trackers owned by this user ID")

	return cmd
}

func trackerGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show tracker details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := newClient().GetTracker(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(cmd.OutOrStdout(), d)
			}
			return printTrackerDetail(cmd.OutOrStdout(), d)
		},
	}
}

func trackerAddCmd() *cobra.Command {
	var (
		userID   string
		target   string
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "add <url>",
		Short: "Start tracking a product",
		Long: "Start tracking a product page. A product the server has not seen\n" +
			"before is fetched once, so an unreachable page fails immediately.",
		Example: `  pricely trackers add https://shop.example.com/p/123 --user 7d9f... --target 99.99
  pricely trackers add https://shop.example.com/p/123 --user 7d9f... --target 80 --interval 30m`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" || target == "" {
				return fmt.Errorf("--user and --target are required")
			}
			price, err := parsePrice(target)
			if err != nil {
				return err
			}

			req := apiclient.AddTrackerRequest{
				UserID:      userID,
				URL:         args[0],
				TargetPrice: price,
			}
			if interval > 0 {
				req.CheckInterval = interval.String()
			}

			d, err := newClient().AddTracker(cmd.Context(), req)
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(cmd.OutOrStdout(), d)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Tracker created: %s (%s)\n", d.ID, productName(&d.Product))
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "owning user ID")
	cmd.Flags().StringVar(&target, "target", "", "notify at or below this price")
	cmd.Flags().DurationVar(&interval, "interval", 0, "check interval (default: server setting)")

	return cmd
}

func trackerUpdateCmd() *cobra.Command {
	var (
		target   string
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a tracker",
		Long:  "Change the target, interval or active state. A new target re-arms the tracker.",
		Example: `  pricely trackers update abc123 --target 75
  pricely trackers update abc123 --pause
  pricely trackers update abc123 --resume --interval 2h`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req apiclient.UpdateTrackerRequest
			flags := cmd.Flags()

			if flags.Changed("target") {
				price, err := parsePrice(target)
				if err != nil {
					return err
				}
				req.TargetPrice = &price
			}
			if flags.Changed("interval") {
				s := interval.String()
				req.CheckInterval = &s
			}
			switch {
			case flags.Changed("pause") && flags.Changed("resume"):
				return fmt.Errorf("--pause and --resume are mutually exclusive")
			case flags.Changed("pause"):
				v := false
				req.Active = &v
			case flags.Changed("resume"):
				v := true
				req.Active = &v
			}
			if req == (apiclient.UpdateTrackerRequest{}) {
				return fmt.Errorf("nothing to update")
			}

			t, err := newClient().UpdateTracker(cmd.Context(), args[0], req)
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(cmd.OutOrStdout(), t)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Tracker %s updated.\n", t.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&target, "target", "", "new target price")
	cmd.Flags().DurationVar(&interval, "interval", 0, "new check interval")
	cmd.Flags().Bool("pause", false, "stop checking")
	cmd.Flags().Bool("resume", false, "resume checking")

	return cmd
}

func trackerDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a tracker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := newClient().DeleteTracker(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Tracker %s deleted.\n", args[0])
			return nil
		},
	}
}

func trackerCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <id>",
		Short: "Check a tracker now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := newClient().CheckTracker(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(cmd.OutOrStdout(), res)
			}
			return printCheckResult(cmd.OutOrStdout(), args[0], res)
		},
	}
}

func trackerHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history <id>",
		Short: "Show recent prices of a tracked product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			obs, err := newClient().History(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOutput() {
				return outputJSON(out, obs)
			}
			if len(obs) == 0 {
				fmt.Fprintln(out, "No observations yet.")
				return nil
			}
			return printHistoryTable(out, obs)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 30, "number of observations")

	return cmd
}
