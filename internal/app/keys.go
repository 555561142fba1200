package app

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up         key.Binding
	Down       key.Binding
	Top        key.Binding
	Bottom     key.Binding
	Toggle     key.Binding
	StageAll   key.Binding
	UnstageAll key.Binding
	Add        key.Binding
	Forget     key.Binding
	Revert     key.Binding
	Resolve    key.Binding
	Unresolve  key.Binding
	Refresh    key.Binding
	Diff       key.Binding
	Help       key.Binding
	Close      key.Binding
	Quit       key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "down"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "bottom"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" ", "space"),
			key.WithHelp("space", "stage/unstage"),
		),
		StageAll: key.NewBinding(
			key.WithKeys("S"),
			key.WithHelp("S", "stage all"),
		),
		UnstageAll: key.NewBinding(
			key.WithKeys("U"),
			key.WithHelp("U", "unstage all"),
		),
		Add: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "hg add"),
		),
		Forget: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "hg forget"),
		),
		Revert: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x x", "revert"),
		),
		Resolve: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "mark resolved"),
		),
		Unresolve: key.NewBinding(
			key.WithKeys("M"),
			key.WithHelp("M", "mark unresolved"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Diff: key.NewBinding(
			key.WithKeys("d", "enter"),
			key.WithHelp("d/enter", "diff"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Close: key.NewBinding(
			key.WithKeys("esc", "q", "d"),
			key.WithHelp("esc/q", "close"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Diff, k.Refresh, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Top, k.Bottom},
		{k.Toggle, k.StageAll, k.UnstageAll},
		{k.Add, k.Forget, k.Revert},
		{k.Resolve, k.Unresolve},
		{k.Diff, k.Refresh, k.Help, k.Quit},
	}
}
