package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	playPause key.Binding
	next      key.Binding
	prev      key.Binding
	forward   key.Binding
	backward  key.Binding
	seekTenth key.Binding
	volUp     key.Binding
	volDown   key.Binding
	spinUp    key.Binding
	spinDown  key.Binding
	favorite  key.Binding
	favRow    key.Binding
	remove    key.Binding
	up        key.Binding
	down      key.Binding
	enter     key.Binding
	add       key.Binding
	search    key.Binding
	back      key.Binding
	quit      key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		playPause: key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "play/pause")),
		next:      key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next")),
		prev:      key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "prev")),
		forward:   key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→", "+10s")),
		backward:  key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←", "-10s")),
		seekTenth: key.NewBinding(key.WithKeys("0", "1", "2", "3", "4", "5", "6", "7", "8", "9"), key.WithHelp("0-9", "seek")),
		volUp:     key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "vol up")),
		volDown:   key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "vol down")),
		spinUp:    key.NewBinding(key.WithKeys(">", "."), key.WithHelp(">", "slower spin")),
		spinDown:  key.NewBinding(key.WithKeys("<", ","), key.WithHelp("<", "faster spin")),
		favorite:  key.NewBinding(key.WithKeys("F"), key.WithHelp("F", "favorite playing")),
		favRow:    key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "favorite row")),
		remove:    key.NewBinding(key.WithKeys("x", "delete"), key.WithHelp("x", "remove row")),
		up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		enter:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "play row")),
		add:       key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add url")),
		search:    key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		back:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.playPause, k.prev, k.next, k.add, k.search, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.playPause, k.prev, k.next, k.backward, k.forward, k.seekTenth},
		{k.volDown, k.volUp, k.spinDown, k.spinUp, k.favorite},
		{k.up, k.down, k.enter, k.favRow, k.remove},
		{k.add, k.search, k.back, k.quit},
	}
}
