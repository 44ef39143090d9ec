package app

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/lakeconsole/internal/ui/command"
)

// fetchUnreadCount returns a tea.Cmd that queries the store for the
// number of unread notifications.
func (m Model) fetchUnreadCount() tea.Cmd {
	s := m.store
	if s == nil {
		return nil
	}
	return func() tea.Msg {
		notifications, err := s.GetUnreadNotifications(context.Background())
		if err != nil {
			return unreadCountMsg{count: 0}
		}
		return unreadCountMsg{count: len(notifications)}
	}
}

// markBlueprintRead marks the notifications of one blueprint as read and
// reports how many unread remain.
func (m Model) markBlueprintRead(blueprintID int) tea.Cmd {
	s, log := m.store, m.log
	if s == nil {
		return nil
	}
	return func() tea.Msg {
		ctx := context.Background()
		notifications, err := s.GetUnreadNotifications(ctx)
		if err != nil {
			return unreadCountMsg{count: 0}
		}
		remaining := 0
		for _, n := range notifications {
			if n.BlueprintID != blueprintID {
				remaining++
				continue
			}
			if err := s.MarkNotificationRead(ctx, n.ID); err != nil {
				log.Warn().Err(err).Str("notification", n.ID).Msg("marking notification read failed")
				remaining++
			}
		}
		return unreadCountMsg{count: remaining}
	}
}

// markAllRead clears every notification.
func (m Model) markAllRead() tea.Cmd {
	s := m.store
	if s == nil {
		return nil
	}
	return func() tea.Msg {
		if err := s.MarkAllNotificationsRead(context.Background()); err != nil {
			return nil
		}
		return unreadCountMsg{count: 0}
	}
}

// executeCommand handles a parsed command from the command palette.
func (m Model) executeCommand(c command.CommandMsg) (tea.Model, tea.Cmd) {
	switch c.Name {
	case command.Blueprints:
		m.detail.Close()
		m.currentView = ViewBlueprints
		cmd := m.blueprintList.Reload()
		return m, cmd

	case command.Open:
		return m.openBlueprint(c.ID)

	case command.Pipeline:
		m.currentView = ViewPipeline
		cmd := m.pipelineView.Open(c.ID)
		return m, cmd

	case command.Project:
		m.currentView = ViewProject
		cmd := m.projectView.Open(c.Arg)
		return m, cmd

	case command.Read:
		return m, m.markAllRead()

	case command.Server:
		cmd := m.openServer()
		return m, cmd

	case command.Help:
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return m, nil

	case command.Quit:
		m.poller.Stop()
		return m, tea.Quit
	}
	return m, nil
}
