// app.go is the top-level Bubble Tea model of the terminal chat client.
//
// Two tabs: the chat itself and the list of saved conversations. Tab
// switches between them, F1 toggles help. Picking a conversation jumps
// back to the chat tab and resumes it.
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const appVersion = "1.0.0"

const (
	TabChat = iota
	TabConversations
)

// App is the root Bubble Tea model.
type App struct {
	client    *Client
	views     []View
	activeTab int

	width     int
	height    int
	showHelp  bool
	statusMsg string
}

// NewApp builds the client UI. conversationID resumes an existing
// conversation when set.
func NewApp(client *Client, conversationID string) *App {
	return &App{
		client: client,
		views: []View{
			NewChatView(client, conversationID),
			NewConversationsView(client),
		},
		activeTab: TabChat,
	}
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return a.views[a.activeTab].Init()
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		// header(1) + tabs(1) + status(1) + borders(2)
		for _, v := range a.views {
			v.SetSize(a.width-2, a.height-5)
		}
		return a, nil

	case StatusMsg:
		a.statusMsg = string(msg)
		return a, nil

	case OpenConversationMsg:
		a.activeTab = TabChat
		return a.forward(TabChat, msg)

	case ChatReplyMsg, HistoryMsg, ClearedMsg:
		a.statusMsg = ""
		return a.forward(TabChat, msg)

	case ConversationsMsg:
		return a.forward(TabConversations, msg)

	case tea.KeyMsg:
		return a.handleKey(msg)
	}
	return a.forward(a.activeTab, msg)
}

func (a *App) forward(tab int, msg tea.Msg) (tea.Model, tea.Cmd) {
	updated, cmd := a.views[tab].Update(msg)
	a.views[tab] = updated
	return a, cmd
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return a, tea.Quit
	case "tab", "shift+tab":
		return a.switchTab((a.activeTab + 1) % len(a.views))
	case "f1":
		a.showHelp = !a.showHelp
		return a, nil
	case "esc":
		if a.showHelp {
			a.showHelp = false
			return a, nil
		}
	case "q":
		if !a.views[a.activeTab].WantsTextInput() {
			return a, tea.Quit
		}
	}
	a.statusMsg = ""
	return a.forward(a.activeTab, msg)
}

func (a *App) switchTab(idx int) (tea.Model, tea.Cmd) {
	a.activeTab = idx
	a.showHelp = false
	if idx == TabConversations {
		return a, a.views[idx].Init()
	}
	return a, nil
}

// View implements tea.Model.
func (a *App) View() string {
	if a.width == 0 {
		return "cargando..."
	}

	var inner string
	if a.showHelp {
		inner = a.renderHelp()
	} else {
		inner = a.views[a.activeTab].View()
	}

	frameHeight := a.height - 5
	if frameHeight < 0 {
		frameHeight = 0
	}
	frame := StyleBorder.Width(a.width - 2).Height(frameHeight).Render(inner)

	return a.renderHeader() + "\n" + a.renderTabBar() + "\n" + frame + "\n" + a.renderStatusBar()
}

func (a *App) renderHeader() string {
	left := StyleBold.Render("🏍  MvRodados") + StyleDimmed.Render(" v"+appVersion)
	server := StyleSuccess.Render("  ⚡ " + a.client.BaseURL())

	content := left + server
	right := StyleDimmed.Render(fmt.Sprintf("%d×%d", a.width, a.height))
	gap := a.width - lipgloss.Width(content) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return lipgloss.NewStyle().Width(a.width).Render(content + strings.Repeat(" ", gap) + right)
}

func (a *App) renderTabBar() string {
	var tabs []string
	for i, v := range a.views {
		if i == a.activeTab {
			tabs = append(tabs, StyleTabActive.Render(v.Name()))
		} else {
			tabs = append(tabs, StyleTabInactive.Render(v.Name()))
		}
	}
	return strings.Join(tabs, StyleDimmed.Render("│"))
}

func (a *App) renderStatusBar() string {
	content := a.statusMsg
	if content == "" {
		items := append(a.views[a.activeTab].ShortHelp(),
			KeyBinding{Key: "Tab", Desc: "vista"},
			KeyBinding{Key: "F1", Desc: "ayuda"},
			KeyBinding{Key: "Ctrl+C", Desc: "salir"})
		parts := make([]string, len(items))
		for i, h := range items {
			parts[i] = StyleHelpKey.Render(h.Key) + " " + StyleHelpDesc.Render(h.Desc)
		}
		content = strings.Join(parts, "  │  ")
	}
	return StyleStatusBar.Width(a.width).Render(content)
}

func (a *App) renderHelp() string {
	help := []string{
		StyleTitle.Render("⌨ Atajos de teclado"),
		"",
		StyleHelpKey.Render("Tab") + "              Cambiar entre Chat y Conversaciones",
		StyleHelpKey.Render("F1") + "               Mostrar u ocultar esta ayuda",
		StyleHelpKey.Render("Ctrl+C") + "           Salir",
		"",
		StyleTitle.Render("Chat"),
		"",
		StyleHelpKey.Render("Enter") + "            Enviar mensaje",
		StyleHelpKey.Render("Ctrl+N") + "           Nueva conversación",
		StyleHelpKey.Render("Ctrl+L") + "           Borrar la conversación en el servidor",
		StyleHelpKey.Render("PgUp/PgDn") + "        Desplazar",
		"",
		StyleTitle.Render("Conversaciones"),
		"",
		StyleHelpKey.Render("↑/↓ j/k") + "          Elegir",
		StyleHelpKey.Render("Enter") + "            Retomar la conversación",
		StyleHelpKey.Render("r") + "                Actualizar",
		"",
		StyleDimmed.Render("F1 o Esc para cerrar"),
	}
	return lipgloss.NewStyle().Padding(1, 2).Render(strings.Join(help, "\n"))
}
