package ui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/huh"
)

// FormWidth clamps a form to a readable width inside a view of width w.
func FormWidth(w int) int {
	w -= 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

// FormKeyMap is huh's default key map with esc aborting the form.
func FormKeyMap() *huh.KeyMap {
	km := huh.NewDefaultKeyMap()
	km.Quit = key.NewBinding(
		key.WithKeys("esc", "ctrl+c"),
		key.WithHelp("esc", "cancel"),
	)
	return km
}

// NewForm builds a form with the console key map at a width that fits w.
func NewForm(w int, groups ...*huh.Group) *huh.Form {
	return huh.NewForm(groups...).
		WithKeyMap(FormKeyMap()).
		WithWidth(FormWidth(w)).
		WithShowHelp(true)
}
