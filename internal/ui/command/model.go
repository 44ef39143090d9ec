package command

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/lakeconsole/internal/theme"
)

// Names of the palette commands.
const (
	Blueprints = "blueprints"
	Open       = "open"
	Pipeline   = "pipeline"
	Project    = "project"
	Read       = "read"
	Server     = "server"
	Help       = "help"
	Quit       = "quit"
)

// Spec describes one palette command.
type Spec struct {
	Name    string
	Arg     string
	Summary string
}

// Commands lists what the palette understands, in display order.
var Commands = []Spec{
	{Name: Blueprints, Summary: "show the blueprint list"},
	{Name: Open, Arg: "<blueprint id>", Summary: "open a blueprint"},
	{Name: Pipeline, Arg: "<pipeline id>", Summary: "show a pipeline and its tasks"},
	{Name: Project, Arg: "<name>", Summary: "open project settings"},
	{Name: Read, Summary: "mark all notifications read"},
	{Name: Server, Summary: "change the DevLake server"},
	{Name: Help, Summary: "show keyboard shortcuts"},
	{Name: Quit, Summary: "exit"},
}

// CommandMsg is emitted when the user executes a command.
type CommandMsg struct {
	Name string
	Arg  string
	ID   int
}

// CancelMsg is emitted when the palette is dismissed.
type CancelMsg struct{}

// Parse turns palette input into a command.
func Parse(input string) (CommandMsg, error) {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return CommandMsg{}, fmt.Errorf("empty command")
	}
	name := strings.ToLower(fields[0])
	arg := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(input), fields[0]))

	var spec *Spec
	for i := range Commands {
		if Commands[i].Name == name {
			spec = &Commands[i]
			break
		}
	}
	if spec == nil {
		return CommandMsg{}, fmt.Errorf("unknown command %q", name)
	}

	msg := CommandMsg{Name: name, Arg: arg}
	switch name {
	case Open, Pipeline:
		id, err := strconv.Atoi(arg)
		if err != nil || id <= 0 {
			return CommandMsg{}, fmt.Errorf("%s needs %s", name, spec.Arg)
		}
		msg.ID = id
	case Project:
		if arg == "" {
			return CommandMsg{}, fmt.Errorf("%s needs %s", name, spec.Arg)
		}
	}
	return msg, nil
}

// Model is the command palette view.
type Model struct {
	input  textinput.Model
	err    error
	width  int
	height int
}

// New creates a new command palette model.
func New(width, height int) Model {
	ti := textinput.New()
	ti.Placeholder = "type a command..."
	ti.Prompt = ": "
	ti.Focus()
	ti.Width = width - 6
	ti.ShowSuggestions = true
	suggestions := make([]string, len(Commands))
	for i, c := range Commands {
		suggestions[i] = c.Name
	}
	ti.SetSuggestions(suggestions)

	return Model{
		input:  ti,
		width:  width,
		height: height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages for the command palette.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			m.Reset()
			return m, func() tea.Msg { return CancelMsg{} }
		case "enter":
			raw := strings.TrimSpace(m.input.Value())
			if raw == "" {
				return m, nil
			}
			cmd, err := Parse(raw)
			if err != nil {
				m.err = err
				return m, nil
			}
			m.err = nil
			m.input.Reset()
			return m, func() tea.Msg { return cmd }
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the command palette.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)
	nameStyle := lipgloss.NewStyle().Foreground(theme.ColorBlue)
	grayStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)

	parts := []string{titleStyle.Render("Command Palette"), m.input.View()}
	if m.err != nil {
		parts = append(parts, theme.ErrorStyle.Render(m.err.Error()))
	}
	parts = append(parts, "")
	for _, c := range Commands {
		usage := c.Name
		if c.Arg != "" {
			usage += " " + c.Arg
		}
		parts = append(parts, fmt.Sprintf("%s %s", nameStyle.Render(fmt.Sprintf("%-24s", usage)), grayStyle.Render(c.Summary)))
	}

	content := lipgloss.JoinVertical(lipgloss.Left, parts...)

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Render(content)
}

// Reset clears the input and any error.
func (m *Model) Reset() {
	m.input.Reset()
	m.err = nil
}

// SetSize updates the command palette dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = width - 6
}

// Focus gives keyboard focus to the text input.
func (m *Model) Focus() tea.Cmd {
	return m.input.Focus()
}
