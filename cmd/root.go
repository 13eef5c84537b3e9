// Package cmd contains all Cobra commands for mvrodados.
//
// Running `mvrodados` with no arguments starts the HTTP server, the same
// as `mvrodados serve`. The terminal chat client is `mvrodados chat`.
package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mvrodados/mvrodados/config"
)

var profileName string

var rootCmd = &cobra.Command{
	Use:   "mvrodados",
	Short: "Asistente de ventas y administración para MvRodados",
	Long: `mvrodados is the back office of a motorcycle dealership:
  • Natural-language chat over the shop database (SQL Server, PostgreSQL or SQLite)
  • Admin API for tables, comprobantes, artículos and accounting
  • Question answering over uploaded PDF and text documents
  • Terminal chat client

Run 'mvrodados' to start the server.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&profileName, "profile", "p", "", "saved database profile to use")
	rootCmd.AddCommand(serveCmd, chatCmd, schemaCmd, migrateCmd, profileCmd)
}

// Execute runs the root command. ctx is cancelled on SIGINT/SIGTERM.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// loadConfig reads the layered configuration and applies --profile.
// dotenv reports whether a .env file was found.
func loadConfig() (cfg *config.AppConfig, dotenv bool, err error) {
	cfg, dotenv, err = config.Load()
	if err != nil {
		return nil, false, err
	}
	if profileName != "" {
		store, err := config.NewProfileStore("")
		if err != nil {
			return nil, false, err
		}
		if err := store.Apply(cfg, profileName); err != nil {
			return nil, false, err
		}
	}
	return cfg, dotenv, nil
}
