package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Top      key.Binding
	Bottom   key.Binding
	HalfDown key.Binding
	HalfUp   key.Binding
	Detail   key.Binding
	Search   key.Binding
	Clear    key.Binding
	Pinned   key.Binding
	NewOnly  key.Binding
	Refresh  key.Binding
	FullText key.Binding
	Yank     key.Binding
	Config   key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Up:       key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("↑/k", "previous")),
		Down:     key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("↓/j", "next")),
		Top:      key.NewBinding(key.WithKeys("g", "home"), key.WithHelp("g", "first")),
		Bottom:   key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "last")),
		HalfDown: key.NewBinding(key.WithKeys("ctrl+d"), key.WithHelp("ctrl+d", "half page down")),
		HalfUp:   key.NewBinding(key.WithKeys("ctrl+u"), key.WithHelp("ctrl+u", "half page up")),
		Detail:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "details")),
		Search:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),
		Clear:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "clear/close")),
		Pinned:   key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "pinned authors")),
		NewOnly:  key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new only")),
		Refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		FullText: key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "full text")),
		Yank:     key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy id")),
		Config:   key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "config")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Down, k.Up, k.Detail, k.Search, k.Pinned, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Down, k.Up, k.Top, k.Bottom, k.HalfDown, k.HalfUp},
		{k.Detail, k.Search, k.Clear, k.NewOnly, k.Pinned},
		{k.Refresh, k.FullText, k.Yank, k.Config, k.Help, k.Quit},
	}
}
