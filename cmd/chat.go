package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mvrodados/mvrodados/tui"
)

var (
	chatServer       string
	chatConversation string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Open the terminal chat client",
	Long:  "Connects to a running mvrodados server and opens a full-screen chat.",
	RunE: func(cmd *cobra.Command, args []string) error {
		server := chatServer
		if server == "" {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			server = fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
		}
		return tui.Start(server, chatConversation)
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatServer, "server", "", "server base URL (default http://localhost:<port>)")
	chatCmd.Flags().StringVarP(&chatConversation, "conversation", "c", "", "resume this conversation id")
}
