package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Start checks the server and runs the chat client full screen.
func Start(serverURL, conversationID string) error {
	client := NewClient(serverURL)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Health(ctx); err != nil {
		return fmt.Errorf("no se pudo contactar al servidor %s: %w", client.BaseURL(), err)
	}

	p := tea.NewProgram(NewApp(client, conversationID), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
