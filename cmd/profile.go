package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mvrodados/mvrodados/config"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage saved database profiles",
}

var profileSaveCmd = &cobra.Command{
	Use:   "save <name>",
	Short: "Save the current database settings under a name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := config.NewProfileStore("")
		if err != nil {
			return err
		}
		db := cfg.DB
		db.Password = ""
		store.Put(config.Profile{Name: args[0], DB: db})
		if err := store.Save(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ perfil %q guardado (%s)\n", args[0], db.Redacted())
		return nil
	},
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := config.NewProfileStore("")
		if err != nil {
			return err
		}
		if len(store.Profiles) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no hay perfiles guardados")
			return nil
		}
		for _, p := range store.Profiles {
			fmt.Fprintf(cmd.OutOrStdout(), "%-20s %s\n", p.Name, p.DB.Redacted())
		}
		return nil
	},
}

var profileDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a saved profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := config.NewProfileStore("")
		if err != nil {
			return err
		}
		if !store.Delete(args[0]) {
			return fmt.Errorf("profile %q not found", args[0])
		}
		return store.Save()
	},
}

func init() {
	profileCmd.AddCommand(profileSaveCmd, profileListCmd, profileDeleteCmd)
}
