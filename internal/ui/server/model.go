package server

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/lakeconsole/internal/credential"
	"github.com/nhle/lakeconsole/internal/devlake"
	"github.com/nhle/lakeconsole/internal/keys"
	"github.com/nhle/lakeconsole/internal/model"
	"github.com/nhle/lakeconsole/internal/theme"
	"github.com/nhle/lakeconsole/internal/ui"
)

// ServerMode represents the current state of the server setup view.
type ServerMode int

const (
	ModeForm           ServerMode = iota // Editing URL and API key
	ModeValidating                       // Testing connection
	ModeValidateResult                   // Show validation result
)

// ServerDoneMsg signals the setup view should close without changes.
type ServerDoneMsg struct{}

// ServerSavedMsg is sent once the backend answered and the configuration
// has been written. Token is the resolved API key.
type ServerSavedMsg struct {
	Config model.AppConfig
	Token  string
}

// ValidateResultMsg carries the result of a connection test.
type ValidateResultMsg struct {
	Version string
	Config  model.AppConfig
	Token   string
	Err     error
}

// Checker asks the backend for its version. It is replaced in tests.
type Checker func(ctx context.Context, baseURL, token string) (string, error)

// VersionChecker checks GET /version with a short-lived client.
func VersionChecker(ctx context.Context, baseURL, token string) (string, error) {
	c := devlake.NewClient(baseURL, token, devlake.WithTimeout(10*time.Second))
	v, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	return v.Version, nil
}

// TokenSaver stores the API key. It is replaced in tests.
type TokenSaver func(token string) (ref string, err error)

// KeyringSaver puts the key in the OS keyring under credential.APIKey.
func KeyringSaver(token string) (string, error) {
	if err := credential.Set(credential.APIKey, token); err != nil {
		return "", err
	}
	return credential.Ref(credential.APIKey), nil
}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	baseURL string
	apiKey  string
}

// Model is the Bubble Tea model for the server setup view.
type Model struct {
	mode       ServerMode
	cfg        model.AppConfig
	configPath string
	token      string

	form *huh.Form
	fb   *formBindings

	check Checker
	save  TokenSaver

	version  string
	validErr error
	spinner  spinner.Model

	keys          *keys.KeyMap
	width, height int
}

// New creates the setup view prefilled from cfg. token is the key currently
// in use; leaving the key field blank keeps it.
func New(cfg model.AppConfig, configPath, token string, k *keys.KeyMap, width, height int) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		mode:       ModeForm,
		cfg:        cfg,
		configPath: configPath,
		token:      token,
		fb:         &formBindings{baseURL: cfg.Server.BaseURL},
		check:      VersionChecker,
		save:       KeyringSaver,
		spinner:    sp,
		keys:       k,
		width:      width,
		height:     height,
	}
	m.form = m.buildForm()
	return m
}

// WithChecker swaps the connection test.
func (m Model) WithChecker(c Checker) Model {
	m.check = c
	return m
}

// WithTokenSaver swaps where the API key is stored.
func (m Model) WithTokenSaver(s TokenSaver) Model {
	m.save = s
	return m
}

// Init focuses the form.
func (m Model) Init() tea.Cmd {
	return m.form.Init()
}

// Update handles messages and dispatches based on current mode.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case ValidateResultMsg:
		if m.mode != ModeValidating {
			return m, nil
		}
		m.version = msg.Version
		m.validErr = msg.Err
		m.mode = ModeValidateResult
		if msg.Err == nil {
			m.cfg = msg.Config
			m.token = msg.Token
		}
		return m, nil

	case spinner.TickMsg:
		if m.mode == ModeValidating {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case ModeValidating:
			if msg.String() == "esc" {
				m.mode = ModeForm
				m.form = m.buildForm()
				return m, m.form.Init()
			}
			return m, nil
		case ModeValidateResult:
			return m.handleResultKeys(msg)
		}
	}

	return m.updateForm(msg)
}

func (m Model) handleResultKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	if m.validErr == nil {
		switch msg.String() {
		case "enter", "esc":
			saved := ServerSavedMsg{Config: m.cfg, Token: m.token}
			return m, func() tea.Msg { return saved }
		}
		return m, nil
	}

	switch msg.String() {
	case "r":
		m.mode = ModeValidating
		return m, tea.Batch(m.spinner.Tick, m.validateAndSave())
	case "enter", "e":
		m.mode = ModeForm
		m.form = m.buildForm()
		return m, m.form.Init()
	case "esc":
		return m, func() tea.Msg { return ServerDoneMsg{} }
	}
	return m, nil
}

func (m Model) buildForm() *huh.Form {
	return ui.NewForm(m.width,
		huh.NewGroup(
			huh.NewInput().
				Title("Base URL").
				Description("DevLake API endpoint (e.g., http://localhost:8080)").
				Placeholder("http://localhost:8080").
				Value(&m.fb.baseURL).
				Validate(validateURL),
			huh.NewInput().
				Title("API Key").
				Description("Leave blank to keep the current key").
				EchoMode(huh.EchoModePassword).
				Value(&m.fb.apiKey),
		),
	)
}

func (m Model) updateForm(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil || m.mode != ModeForm {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		m.mode = ModeValidating
		m.validErr = nil
		return m, tea.Batch(m.spinner.Tick, m.validateAndSave())
	}
	if m.form.State == huh.StateAborted {
		return m, func() tea.Msg { return ServerDoneMsg{} }
	}

	return m, cmd
}

// validateAndSave tests the connection and, if it answers, stores the key
// and writes the configuration file.
func (m Model) validateAndSave() tea.Cmd {
	cfg := m.cfg
	cfg.Server.BaseURL = strings.TrimRight(strings.TrimSpace(m.fb.baseURL), "/")
	newKey := strings.TrimSpace(m.fb.apiKey)
	token := m.token
	if newKey != "" {
		token = newKey
	}
	check, save, path := m.check, m.save, m.configPath

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		version, err := check(ctx, cfg.Server.BaseURL, token)
		if err != nil {
			return ValidateResultMsg{Err: err}
		}

		if newKey != "" {
			ref, err := save(newKey)
			if err != nil {
				return ValidateResultMsg{
					Version: version,
					Err:     fmt.Errorf("connection OK but storing the API key failed: %w", err),
				}
			}
			cfg.Server.TokenRef = ref
		}

		if path != "" {
			if err := model.SaveConfig(path, &cfg); err != nil {
				return ValidateResultMsg{
					Version: version,
					Err:     fmt.Errorf("connection OK but save failed: %w", err),
				}
			}
		}

		return ValidateResultMsg{Version: version, Config: cfg, Token: token}
	}
}

// View renders the setup view based on the current mode.
func (m Model) View() string {
	style := lipgloss.NewStyle().
		Padding(1, 2).
		Width(m.width).
		Height(m.height)

	switch m.mode {
	case ModeValidating:
		return style.Render(fmt.Sprintf(
			"%s Testing connection...\n\nPress esc to cancel.",
			m.spinner.View(),
		))
	case ModeValidateResult:
		return style.Render(m.viewResult())
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)
	return style.Render(lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Server Setup"),
		m.form.View(),
	))
}

func (m Model) viewResult() string {
	hint := lipgloss.NewStyle().Foreground(theme.ColorGray)

	if m.validErr != nil {
		errStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorRed)
		return errStyle.Render("Connection failed") + "\n\n" +
			m.validErr.Error() + "\n\n" +
			hint.Render("r retry | e/enter edit | esc cancel")
	}

	okStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorGreen)
	version := m.version
	if version == "" {
		version = "unknown"
	}
	return okStyle.Render("Connection successful") + "\n\n" +
		fmt.Sprintf("Server version: %s", version) + "\n\n" +
		hint.Render("enter/esc continue")
}

// Mode returns the current mode.
func (m Model) Mode() ServerMode {
	return m.mode
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func validateURL(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("URL is required")
	}
	parsed, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("URL must include scheme and host (e.g., http://localhost:8080)")
	}
	return nil
}
