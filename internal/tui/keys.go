package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"parsons-cli/internal/nav"
)

type keyMap struct {
	Indent     key.Binding
	Dedent     key.Binding
	Blanks     key.Binding
	Leave      key.Binding
	Cursor     key.Binding
	MoveLine   key.Binding
	MoveToEdge key.Binding
	Export     key.Binding
	Prompt     key.Binding
	Help       key.Binding
	Quit       key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Indent:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "indent / to solution")),
		Dedent:     key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "dedent")),
		Blanks:     key.NewBinding(key.WithKeys("enter", "shift+enter"), key.WithHelp("enter", "next blank")),
		Leave:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "leave blank / line")),
		Cursor:     key.NewBinding(key.WithKeys("up", "down", "left", "right"), key.WithHelp("←↑↓→", "move cursor")),
		MoveLine:   key.NewBinding(key.WithKeys("alt+up", "alt+down", "alt+left", "alt+right"), key.WithHelp("alt+←↑↓→", "move line")),
		MoveToEdge: key.NewBinding(key.WithKeys("alt+ctrl+up", "alt+ctrl+down", "home", "end"), key.WithHelp("alt+ctrl+↑↓", "line to top/bottom")),
		Export:     key.NewBinding(key.WithKeys("ctrl+e"), key.WithHelp("ctrl+e", "copy plaintext")),
		Prompt:     key.NewBinding(key.WithKeys("pgup", "pgdown"), key.WithHelp("pgup/pgdn", "scroll prompt")),
		Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:       key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Indent, k.Blanks, k.MoveLine, k.Export, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Indent, k.Dedent, k.Blanks, k.Leave},
		{k.Cursor, k.MoveLine, k.MoveToEdge},
		{k.Export, k.Prompt, k.Help, k.Quit},
	}
}

// navKey translates a terminal key into a navigation event.
func navKey(msg tea.KeyMsg) (nav.KeyEvent, bool) {
	if msg.Type == tea.KeyRunes {
		return nav.KeyEvent{}, false
	}
	return nav.ParseKey(msg.String())
}
