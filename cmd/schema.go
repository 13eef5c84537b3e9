package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/mvrodados/mvrodados/db"
)

var schemaCmd = &cobra.Command{
	Use:   "schema [table]",
	Short: "Print the database schema as JSON",
	Args:  cobra.MaximumNArgs(1),
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

		var out any
		if len(args) == 1 {
			out, err = store.TableColumns(cmd.Context(), args[0])
		} else {
			out, err = store.GetSchema(cmd.Context())
		}
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}
