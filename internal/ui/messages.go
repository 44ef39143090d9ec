package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/lakeconsole/internal/devlake"
)

// AuthRequiredMsg asks the app to reopen server setup because the backend
// rejected the API key.
type AuthRequiredMsg struct {
	Err error
}

// CheckAuth returns a command emitting AuthRequiredMsg when err is a 401.
func CheckAuth(err error) tea.Cmd {
	if !devlake.IsAuthError(err) {
		return nil
	}
	return func() tea.Msg { return AuthRequiredMsg{Err: err} }
}
