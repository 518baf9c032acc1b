package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func notificationsCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "notifications",
		Short: "List and acknowledge price alerts",
	}

	root.AddCommand(notificationListCmd(), notificationReadCmd())
	return root
}

func notificationListCmd() *cobra.Command {
	var unread bool

	cmd := &cobra.Command{
		Use:   "list <user-id>",
		Short: "List a user's notifications",
		Example: `  pricely notifications list 7d9f...
  pricely notifications list 7d9f... --unread`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ns, err := newClient().ListNotifications(cmd.Context(), args[0], unread)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOutput() {
				return outputJSON(out, ns)
			}
			if len(ns) == 0 {
				fmt.Fprintln(out, "No notifications.")
				return nil
			}
			return printNotificationTable(out, ns)
		},
	}
	cmd.Flags().BoolVar(&unread, "unread", false, "only unread notifications")

	return cmd
}

func notificationReadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read <id>",
		Short: "Mark a notification as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := newClient().MarkNotificationRead(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Notification %s marked read.\n", args[0])
			return nil
		},
	}
}
