package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mvrodados/mvrodados/chat"
)

// ConversationsView lists past conversations; Enter resumes one.
type ConversationsView struct {
	client   *Client
	items    []chat.Conversation
	cursor   int
	loading  bool
	err      error
	viewport *Viewport
	width    int
	height   int
}

func NewConversationsView(client *Client) *ConversationsView {
	return &ConversationsView{client: client, viewport: NewViewport(80, 20)}
}

func (v *ConversationsView) Name() string { return "Conversaciones" }

func (v *ConversationsView) WantsTextInput() bool { return false }

func (v *ConversationsView) SetSize(width, height int) {
	v.width = width
	v.height = height
	v.viewport.SetSize(width-2, height-2)
}

func (v *ConversationsView) ShortHelp() []KeyBinding {
	return []KeyBinding{
		{Key: "↑/↓", Desc: "elegir"},
		{Key: "Enter", Desc: "abrir"},
		{Key: "r", Desc: "actualizar"},
	}
}

func (v *ConversationsView) Init() tea.Cmd {
	v.loading = true
	client := v.client
	return func() tea.Msg {
		convs, err := client.Conversations(context.Background())
		return ConversationsMsg{Conversations: convs, Err: err}
	}
}

func (v *ConversationsView) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case ConversationsMsg:
		v.loading = false
		v.err = msg.Err
		v.items = msg.Conversations
		if v.cursor >= len(v.items) {
			v.cursor = 0
		}
		v.render()
		return v, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if v.cursor > 0 {
				v.cursor--
			}
		case "down", "j":
			if v.cursor < len(v.items)-1 {
				v.cursor++
			}
		case "r":
			return v, v.Init()
		case "enter":
			if v.cursor < len(v.items) {
				id := v.items[v.cursor].ID
				return v, func() tea.Msg { return OpenConversationMsg{ID: id} }
			}
			return v, nil
		}
		v.render()
	}
	return v, nil
}

func (v *ConversationsView) render() {
	var lines []string
	switch {
	case v.err != nil:
		lines = append(lines, StyleError.Render("Error: ")+v.err.Error())
	case len(v.items) == 0:
		lines = append(lines, StyleDimmed.Render("No hay conversaciones guardadas."))
	}
	for i, c := range v.items {
		last := strings.ReplaceAll(c.LastMessage, "\n", " ")
		if r := []rune(last); len(r) > 60 {
			last = string(r[:60]) + "…"
		}
		line := fmt.Sprintf("%s  %s  %s", shortID(c.ID), c.LastActivity.Local().Format("02/01 15:04"), last)
		if i == v.cursor {
			line = StyleListItemActive.Render("▸ " + line)
		} else {
			line = "  " + line
		}
		lines = append(lines, line)
	}
	v.viewport.SetContentLines(lines)

	// keep the cursor visible
	if v.cursor < v.viewport.scrollY {
		v.viewport.scrollY = v.cursor
	} else if v.viewport.height > 0 && v.cursor >= v.viewport.scrollY+v.viewport.height {
		v.viewport.scrollY = v.cursor - v.viewport.height + 1
	}
}

func (v *ConversationsView) View() string {
	title := StyleTitle.Render("🗂  Conversaciones")
	if v.loading {
		return title + "\n" + StyleDimmed.Render("cargando...")
	}
	return title + "\n" + v.viewport.Render()
}
