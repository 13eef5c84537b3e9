// view_chat.go is the conversation with the shop assistant.
//
// Messages go to the server asynchronously; the UI stays responsive
// while the answer is computed.
package tui

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mvrodados/mvrodados/chat"
	"github.com/mvrodados/mvrodados/retrieval"
)

// turn is a rendered message with the sources of an assistant reply.
type turn struct {
	chat.Message
	Sources []retrieval.Source
	Failed  bool
}

type ChatView struct {
	client         *Client
	conversationID string
	viewport       *Viewport
	input          string
	turns          []turn
	loading        bool
	width          int
	height         int
}

func NewChatView(client *Client, conversationID string) *ChatView {
	vp := NewViewport(80, 20)
	vp.SetWrap(true)
	return &ChatView{
		client:         client,
		conversationID: conversationID,
		viewport:       vp,
	}
}

func (v *ChatView) Name() string { return "Chat" }

func (v *ChatView) WantsTextInput() bool { return true }

// ConversationID is the active conversation, empty before the first reply.
func (v *ChatView) ConversationID() string { return v.conversationID }

func (v *ChatView) SetSize(width, height int) {
	v.width = width
	v.height = height
	v.viewport.SetSize(width-2, height-4)
}

func (v *ChatView) ShortHelp() []KeyBinding {
	return []KeyBinding{
		{Key: "Enter", Desc: "enviar"},
		{Key: "Ctrl+N", Desc: "nueva"},
		{Key: "Ctrl+L", Desc: "borrar"},
		{Key: "PgUp/PgDn", Desc: "scroll"},
	}
}

func (v *ChatView) Init() tea.Cmd {
	if v.conversationID != "" {
		v.loading = true
		return v.loadHistory(v.conversationID)
	}
	v.viewport.SetContentLines(v.welcome())
	return nil
}

func (v *ChatView) welcome() []string {
	return []string{
		StyleTitle.Render("🏍  Asistente MvRodados") + StyleDimmed.Render(" ("+v.client.BaseURL()+")"),
		"",
		"Podés pedirme cosas como:",
		"  • mostrar clientes",
		"  • agregar cliente Juan Perez",
		"  • ¿cómo viene el balance del mes?",
		"  • buscar precio honda wave",
		"",
		StyleDimmed.Render("Escribí tu mensaje y presioná Enter."),
	}
}

func (v *ChatView) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return v.handleKey(msg)

	case ChatReplyMsg:
		v.loading = false
		if msg.Err != nil {
			v.turns = append(v.turns, turn{Message: chat.Message{Role: chat.RoleAssistant, Content: msg.Err.Error()}, Failed: true})
		} else {
			v.conversationID = msg.Response.ConversationID
			v.turns = append(v.turns, turn{
				Message: chat.Message{Role: chat.RoleAssistant, Content: msg.Response.Response.Text},
				Sources: msg.Response.Response.Sources,
			})
		}
		v.refresh()
		return v, nil

	case HistoryMsg:
		v.loading = false
		if msg.Err != nil {
			v.turns = []turn{{Message: chat.Message{Role: chat.RoleAssistant, Content: msg.Err.Error()}, Failed: true}}
		} else {
			v.conversationID = msg.ConversationID
			v.turns = v.turns[:0]
			for _, m := range msg.Messages {
				v.turns = append(v.turns, turn{Message: m})
			}
		}
		v.refresh()
		return v, nil

	case OpenConversationMsg:
		v.turns = nil
		v.conversationID = msg.ID
		return v, v.Init()

	case ClearedMsg:
		if msg.Err != nil {
			return v, func() tea.Msg { return StatusMsg("no se pudo borrar: " + msg.Err.Error()) }
		}
		return v, func() tea.Msg { return StatusMsg("historial borrado") }
	}

	return v, nil
}

func (v *ChatView) handleKey(msg tea.KeyMsg) (View, tea.Cmd) {
	switch msg.String() {
	case "enter":
		return v, v.sendMessage()
	case "ctrl+n":
		v.reset()
		return v, nil
	case "ctrl+l":
		id := v.conversationID
		v.reset()
		if id == "" {
			return v, nil
		}
		return v, v.clear(id)
	case "ctrl+k":
		v.viewport.ScrollUp(1)
	case "ctrl+j":
		v.viewport.ScrollDown(1)
	case "pgup":
		v.viewport.PageUp()
	case "pgdown":
		v.viewport.PageDown()
	case "backspace":
		if r := []rune(v.input); len(r) > 0 {
			v.input = string(r[:len(r)-1])
		}
	default:
		if msg.Type == tea.KeyRunes {
			v.input += string(msg.Runes)
		} else if msg.Type == tea.KeySpace {
			v.input += " "
		}
	}
	return v, nil
}

func (v *ChatView) reset() {
	v.turns = nil
	v.conversationID = ""
	v.input = ""
	v.loading = false
	v.viewport.SetContentLines(v.welcome())
	v.viewport.Home()
}

func (v *ChatView) sendMessage() tea.Cmd {
	text := strings.TrimSpace(v.input)
	if text == "" || v.loading {
		return nil
	}

	v.turns = append(v.turns, turn{Message: chat.Message{Role: chat.RoleUser, Content: text}})
	v.input = ""
	v.loading = true
	v.refresh()

	client, id := v.client, v.conversationID
	return func() tea.Msg {
		resp, err := client.Chat(context.Background(), text, id)
		return ChatReplyMsg{Response: resp, Err: err}
	}
}

func (v *ChatView) loadHistory(id string) tea.Cmd {
	client := v.client
	return func() tea.Msg {
		msgs, err := client.History(context.Background(), id)
		return HistoryMsg{ConversationID: id, Messages: msgs, Err: err}
	}
}

func (v *ChatView) clear(id string) tea.Cmd {
	client := v.client
	return func() tea.Msg {
		return ClearedMsg{Err: client.Clear(context.Background(), id)}
	}
}

func (v *ChatView) refresh() {
	v.viewport.SetContentLines(v.renderChat())
	v.viewport.End()
}

func (v *ChatView) renderChat() []string {
	var lines []string

	title := StyleTitle.Render("🏍  Asistente MvRodados")
	if v.conversationID != "" {
		title += StyleDimmed.Render("  #" + shortID(v.conversationID))
	}
	lines = append(lines, title, "")

	userStyle := lipgloss.NewStyle().Foreground(ColorAccent).Bold(true)
	assistantStyle := lipgloss.NewStyle().Foreground(ColorSuccess)

	for _, t := range v.turns {
		switch t.Role {
		case chat.RoleUser:
			lines = append(lines, userStyle.Render("Vos: ")+t.Content, "")
		default:
			label := assistantStyle.Render("Asistente:")
			if t.Failed {
				label = StyleError.Render("Error:")
			}
			lines = append(lines, label)
			for _, line := range strings.Split(t.Content, "\n") {
				lines = append(lines, "  "+line)
			}
			if len(t.Sources) > 0 {
				names := make([]string, len(t.Sources))
				for i, s := range t.Sources {
					names[i] = s.Name
				}
				lines = append(lines, StyleDimmed.Render("  📎 Fuentes: "+strings.Join(names, ", ")))
			}
			lines = append(lines, "")
		}
	}

	if v.loading {
		lines = append(lines, StyleDimmed.Render("  ⏳ Pensando..."))
	}
	return lines
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func (v *ChatView) View() string {
	prompt := StylePrompt.Render("> ") + v.input + "█"
	if v.loading {
		prompt = StylePrompt.Render("> ") + StyleDimmed.Render("esperando respuesta...")
	}
	return lipgloss.JoinVertical(lipgloss.Left, prompt, "", v.viewport.Render())
}
