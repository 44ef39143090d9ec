package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nhle/lakeconsole/internal/app"
	"github.com/nhle/lakeconsole/internal/logging"
)

func newTUICommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive console (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(g)
		},
	}
}

// runTUI starts the full-screen console. Logs go to the configured file
// because the terminal belongs to the UI.
func runTUI(g *globalFlags) error {
	s, err := loadSession(g)
	if err != nil {
		return err
	}

	log, closer, err := logging.NewFile(s.cfg.Log.File, s.cfg.Log.Level)
	if err != nil {
		return err
	}
	defer closer.Close()

	st, err := s.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	log.Info().
		Str("config", g.configPath).
		Str("baseURL", s.cfg.Server.BaseURL).
		Bool("firstRun", s.firstRun).
		Msg("starting console")

	m := app.New(app.Options{
		Config:     *s.cfg,
		ConfigPath: g.configPath,
		Token:      s.token,
		Store:      st,
		Logger:     log,
		FirstRun:   s.firstRun,
	})

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Error().Err(err).Msg("console exited with error")
		return fmt.Errorf("running console: %w", err)
	}
	return nil
}
