package ui

import (
	"github.com/charmbracelet/lipgloss"
)

var styles = NewPalette("#E0B050", "#04B575", "#FF5F5F", "#7D56F4", "#626262")

// Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title    lipgloss.Style
	ok       lipgloss.Style
	err      lipgloss.Style
	accent   lipgloss.Style
	help     lipgloss.Style
	current  lipgloss.Style
	cursor   lipgloss.Style
	disc     lipgloss.Style
	label    lipgloss.Style
	arm      lipgloss.Style
	favorite lipgloss.Style
}

func NewPalette(t, s, e, a, h string) *Palette {
	return &Palette{
		title:    NewBold(t).MarginBottom(1),
		ok:       NewBold(s),
		err:      NewBold(e),
		accent:   NewStyle(a),
		help:     NewEm(h),
		current:  NewBold(t),
		cursor:   NewStyle(a).Reverse(true),
		disc:     NewStyle("#3A3A3A"),
		label:    NewBold(t),
		arm:      NewStyle("#C0C0C0"),
		favorite: NewStyle(e),
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}
