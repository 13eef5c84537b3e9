package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mvrodados/mvrodados/db"
)

var migrateDemo bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the ChatHistory table",
	Long: `Creates the ChatHistory table when missing. With --demo on a SQLite
target it also creates and seeds the shop tables for local work.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := db.Connect(cmd.Context(), cfg.DB)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.EnsureChatHistory(cmd.Context()); err != nil {
			return err
		}
		if migrateDemo {
			if store.Dialect != db.SQLite {
				return fmt.Errorf("--demo only works on sqlite, target is %s", store.Dialect)
			}
			if err := store.CreateDemoSchema(cmd.Context()); err != nil {
				return err
			}
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ migración completa")
		return nil
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateDemo, "demo", false, "also create the demo shop schema (sqlite only)")
}
