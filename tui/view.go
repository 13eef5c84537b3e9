package tui

import tea "github.com/charmbracelet/bubbletea"

// View is one tab of the client. The App draws the chrome around it.
type View interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (View, tea.Cmd)

	// View renders the content only; header and status bar belong to the App.
	View() string

	Name() string
	ShortHelp() []KeyBinding
	SetSize(width, height int)

	// WantsTextInput reports whether printable keys belong to the view.
	WantsTextInput() bool
}

// KeyBinding describes a keyboard shortcut for the help bar.
type KeyBinding struct {
	Key  string
	Desc string
}
