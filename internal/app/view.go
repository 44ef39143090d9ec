package app

import "github.com/nhle/lakeconsole/internal/ui"

// View renders the active view inside the console frame.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.frame.Header(m.session())
	hints := m.frame.HintBar(m.keyHints(), m.authAlert())
	return m.frame.Render(header, m.renderContent(), hints)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewBlueprints:
		return m.blueprintList.View()
	case ViewBlueprint:
		return m.detail.View()
	case ViewPipeline:
		return m.pipelineView.View()
	case ViewTransformation:
		return m.transformView.View()
	case ViewProject:
		return m.projectView.View()
	case ViewServer:
		return m.serverView.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	default:
		return ""
	}
}

// session names the backend and what the poller is doing.
func (m Model) session() ui.SessionInfo {
	return ui.SessionInfo{
		BaseURL:  m.cfg.Server.BaseURL,
		Unread:   m.unreadCount,
		Watching: m.poller.WatchCount(),
		Warning:  m.pipelineStatus,
	}
}

// authAlert reports whether the hint bar shows the rejected key message.
func (m Model) authAlert() bool {
	return m.authMessage != "" && (m.currentView == ViewBlueprints || m.currentView == ViewServer)
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	if m.authAlert() {
		return m.authMessage
	}

	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return "tab complete | enter execute | esc back"
	case ViewServer:
		return "enter submit | esc cancel"
	case ViewBlueprint:
		if m.detail.Capturing() {
			return "enter submit | esc cancel"
		}
		return "tab switch panel | esc back | ? help"
	case ViewPipeline:
		return "j/k scroll | r refresh | esc back"
	case ViewTransformation:
		if m.transformView.Capturing() {
			return "enter next | esc discard"
		}
		return "enter edit | r reload | esc back"
	case ViewProject:
		if m.projectView.Capturing() {
			return "enter submit | esc cancel"
		}
		return "e edit | d delete | esc back"
	default:
		if m.blueprintList.Capturing() {
			return "enter submit | esc cancel"
		}
		return "q quit | ? help | : command | n new | f filter | [ ] page | S server"
	}
}
