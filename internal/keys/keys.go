package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keybindings shared by the console views.
type KeyMap struct {
	// Navigation
	Down key.Binding
	Up   key.Binding
	Tab  key.Binding

	// Selection
	Select key.Binding

	// Back / Quit
	Back key.Binding
	Quit key.Binding

	// Command palette
	Command key.Binding

	// Help toggle
	Help key.Binding

	// Manual refresh
	Refresh key.Binding

	// Blueprint list
	New        key.Binding
	TypeFilter key.Binding
	PrevPage   key.Binding
	NextPage   key.Binding
	Server     key.Binding

	// Blueprint configuration
	Rename           key.Binding
	Policy           key.Binding
	AddConnection    key.Binding
	RemoveConnection key.Binding
	Scopes           key.Binding
	Plan             key.Binding
	Advanced         key.Binding
	Transformation   key.Binding
	Project          key.Binding

	// Blueprint status
	Trigger     key.Binding
	Retransform key.Binding
	FullRefresh key.Binding
	Enable      key.Binding
	Delete      key.Binding
}

// DefaultKeyMap returns the default set of keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "down"),
		),
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "up"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "switch panel"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		Command: key.NewBinding(
			key.WithKeys(":"),
			key.WithHelp(":", "command palette"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		New: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new blueprint"),
		),
		TypeFilter: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "cycle type filter"),
		),
		PrevPage: key.NewBinding(
			key.WithKeys("["),
			key.WithHelp("[", "previous page"),
		),
		NextPage: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("]", "next page"),
		),
		Server: key.NewBinding(
			key.WithKeys("S"),
			key.WithHelp("S", "server setup"),
		),
		Rename: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "rename"),
		),
		Policy: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "sync policy"),
		),
		AddConnection: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "add connection"),
		),
		RemoveConnection: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "remove connection"),
		),
		Scopes: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "edit scopes"),
		),
		Plan: key.NewBinding(
			key.WithKeys("J"),
			key.WithHelp("J", "edit JSON plan"),
		),
		Advanced: key.NewBinding(
			key.WithKeys("M"),
			key.WithHelp("M", "switch to advanced mode"),
		),
		Transformation: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "transformation"),
		),
		Project: key.NewBinding(
			key.WithKeys("P"),
			key.WithHelp("P", "project settings"),
		),
		Trigger: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "collect data"),
		),
		Retransform: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "re-transform"),
		),
		FullRefresh: key.NewBinding(
			key.WithKeys("F"),
			key.WithHelp("F", "full refresh"),
		),
		Enable: key.NewBinding(
			key.WithKeys("E"),
			key.WithHelp("E", "enable/disable"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
	}
}

// ShortHelp returns the most essential keybindings for the compact help view.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.Up, k.Down, k.Select, k.Back,
		k.Quit, k.Help, k.Command,
	}
}

// FullHelp returns all keybindings grouped by category for the expanded
// help view.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Select, k.Back, k.Quit},
		{k.Command, k.Help, k.Refresh, k.Tab},
		{k.New, k.TypeFilter, k.PrevPage, k.NextPage, k.Server},
		{k.Rename, k.Policy, k.AddConnection, k.RemoveConnection, k.Scopes, k.Plan, k.Advanced},
		{k.Trigger, k.Retransform, k.FullRefresh, k.Enable, k.Delete},
		{k.Transformation, k.Project},
	}
}
