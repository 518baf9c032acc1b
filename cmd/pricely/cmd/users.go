package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func usersCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "users",
		Short: "Manage users",
	}

	root.AddCommand(userCreateCmd(), userGetCmd())
	return root
}

func userCreateCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:     "create <username>",
		Short:   "Register a user",
		Example: `  pricely users create alice --email alice@example.com`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				return fmt.Errorf("--email is required")
			}
			u, err := newClient().CreateUser(cmd.Context(), args[0], email)
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(cmd.OutOrStdout(), u)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "User created: %s (%s)\n", u.Username, u.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "notification address")

	return cmd
}

func userGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := newClient().GetUser(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(cmd.OutOrStdout(), u)
			}
			return printUserDetail(cmd.OutOrStdout(), u)
		},
	}
}
