package command

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input   string
		want    CommandMsg
		wantErr bool
	}{
		{input: "blueprints", want: CommandMsg{Name: Blueprints}},
		{input: "  OPEN 12 ", want: CommandMsg{Name: Open, Arg: "12", ID: 12}},
		{input: "pipeline 7", want: CommandMsg{Name: Pipeline, Arg: "7", ID: 7}},
		{input: "project team/a", want: CommandMsg{Name: Project, Arg: "team/a"}},
		{input: "open", wantErr: true},
		{input: "open abc", wantErr: true},
		{input: "project", wantErr: true},
		{input: "frobnicate", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEnterEmitsCommand(t *testing.T) {
	m := New(80, 20)
	m.input.SetValue("open 3")

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	require.NotNil(t, cmd)
	assert.Equal(t, CommandMsg{Name: Open, Arg: "3", ID: 3}, cmd())
	assert.Empty(t, m.input.Value())
}

func TestEnterKeepsInvalidInput(t *testing.T) {
	m := New(80, 20)
	m.input.SetValue("open x")

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.Equal(t, "open x", m.input.Value())
	assert.Contains(t, m.View(), "open needs <blueprint id>")
}

func TestEscCancels(t *testing.T) {
	m := New(80, 24)
	m.input.SetValue("open 3")

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})

	require.NotNil(t, cmd)
	assert.Equal(t, CancelMsg{}, cmd())
	assert.Empty(t, m.input.Value())
}
