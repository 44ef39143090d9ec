package ui

import (
	"fmt"
	"net/url"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/lakeconsole/internal/theme"
)

// AppTitle is shown at the left of the header.
const AppTitle = "DevLake Console"

// Frame is the console chrome around the active view: a one-line header
// about the backend session and a one-line key hint bar.
type Frame struct {
	Width  int
	Height int
}

// NewFrame sizes the chrome for a terminal.
func NewFrame(width, height int) Frame {
	return Frame{Width: width, Height: height}
}

// Body returns the width and height left for the active view.
func (f Frame) Body() (int, int) {
	h := f.Height - 2
	if h < 0 {
		h = 0
	}
	return f.Width, h
}

// SessionInfo is what the header reports about the backend session.
type SessionInfo struct {
	BaseURL  string
	Unread   int
	Watching int

	// Warning is the last poll failure. It replaces the watch count.
	Warning string
}

// Host returns host:port of the backend, or the raw setting when it is not
// a URL.
func (s SessionInfo) Host() string {
	if s.BaseURL == "" {
		return "no server"
	}
	if u, err := url.Parse(s.BaseURL); err == nil && u.Host != "" {
		return u.Host
	}
	return s.BaseURL
}

// Title is the header title with the unread badge.
func (s SessionInfo) Title() string {
	if s.Unread > 0 {
		return fmt.Sprintf("%s [%d new]", AppTitle, s.Unread)
	}
	return AppTitle
}

// Status is the right-hand side of the header.
func (s SessionInfo) Status() string {
	switch {
	case s.Warning != "":
		return fmt.Sprintf("%s | ⚠ %s", s.Host(), s.Warning)
	case s.Watching > 0:
		return fmt.Sprintf("%s | watching %d", s.Host(), s.Watching)
	default:
		return s.Host()
	}
}

// Header renders the title on the left and the session status on the right,
// padded to the terminal width.
func (f Frame) Header(s SessionInfo) string {
	title := theme.HeaderStyle.Render(s.Title())
	status := theme.HeaderStyle.Align(lipgloss.Right).Render(s.Status())
	return lipgloss.JoinHorizontal(lipgloss.Top,
		title,
		fill(theme.HeaderStyle, f.Width-lipgloss.Width(title)-lipgloss.Width(status)),
		status,
	)
}

// HintBar renders key hints, or an alert in the error color.
func (f Frame) HintBar(text string, alert bool) string {
	style := theme.StatusBarStyle
	if alert {
		style = style.Foreground(theme.ErrorStyle.GetForeground()).Bold(true)
	}
	rendered := style.Render(text)
	return lipgloss.JoinHorizontal(lipgloss.Top,
		rendered,
		fill(theme.StatusBarStyle, f.Width-lipgloss.Width(rendered)),
	)
}

// Render stacks header, body and hint bar.
func (f Frame) Render(header, body, hints string) string {
	return lipgloss.JoinVertical(lipgloss.Left, header, body, hints)
}

func fill(style lipgloss.Style, width int) string {
	if width <= 0 {
		return ""
	}
	return lipgloss.NewStyle().
		Width(width).
		Background(style.GetBackground()).
		Render("")
}
