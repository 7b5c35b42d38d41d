package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines key bindings. The text input owns printable keys,
// so everything here rides on modifiers or keys the input ignores.
type keyMap struct {
	Quit      key.Binding
	Interrupt key.Binding
	HistPrev  key.Binding
	HistNext  key.Binding
	Complete  key.Binding
	Submit    key.Binding
	DumpUp    key.Binding
	DumpDown  key.Binding
	NextMatch key.Binding
	PrevMatch key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("ctrl+d"),
		key.WithHelp("ctrl+d", "quit"),
	),
	Interrupt: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("ctrl+c", "interrupt / quit"),
	),
	HistPrev: key.NewBinding(
		key.WithKeys("up"),
		key.WithHelp("↑", "older command"),
	),
	HistNext: key.NewBinding(
		key.WithKeys("down"),
		key.WithHelp("↓", "newer command"),
	),
	Complete: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "complete"),
	),
	Submit: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "run command"),
	),
	DumpUp: key.NewBinding(
		key.WithKeys("pgup"),
		key.WithHelp("pgup", "hexdump up"),
	),
	DumpDown: key.NewBinding(
		key.WithKeys("pgdown"),
		key.WithHelp("pgdn", "hexdump down"),
	),
	NextMatch: key.NewBinding(
		key.WithKeys("ctrl+n"),
		key.WithHelp("ctrl+n", "next match"),
	),
	PrevMatch: key.NewBinding(
		key.WithKeys("ctrl+p"),
		key.WithHelp("ctrl+p", "previous match"),
	),
}
