// Package cmd implements the pricely CLI: the server commands (serve,
// migrate) and an API client for trackers, users and notifications.
package cmd

import (
	"context"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	apiclient "github.com/donaldgifford/pricely/internal/api/client"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "pricely",
		Short: "Track product prices and get notified when they drop",
		Long: "pricely watches product pages, records every observed price, and\n" +
			"notifies you once a price falls to or below your target.\n\n" +
			"Run \"pricely serve\" to start the monitor, then manage trackers\n" +
			"with the client commands.",
		SilenceUsage: true,
	}
)

// Root returns the root cobra command for documentation generation.
func Root() *cobra.Command {
	return rootCmd
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().
		StringVar(&cfgFile, "config", "config.yaml", "server config file")
	rootCmd.PersistentFlags().
		String("server", "http://localhost:8080", "API server URL")
	rootCmd.PersistentFlags().
		String("output", "table", "output format (table, json)")

	cobra.CheckErr(viper.BindPFlag("server", rootCmd.PersistentFlags().Lookup("server")))
	cobra.CheckErr(viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output")))

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(trackersCmd())
	rootCmd.AddCommand(usersCmd())
	rootCmd.AddCommand(notificationsCmd())
}

// initConfig lets PRICELY_SERVER and PRICELY_OUTPUT override the client
// flags' defaults.
func initConfig() {
	viper.SetEnvPrefix("PRICELY")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func newClient() *apiclient.Client {
	return apiclient.New(viper.GetString("server"))
}

func jsonOutput() bool {
	return viper.GetString("output") == "json"
}
