package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/nhle/lakeconsole/internal/app"
	"github.com/nhle/lakeconsole/internal/credential"
	"github.com/nhle/lakeconsole/internal/devlake"
	"github.com/nhle/lakeconsole/internal/logging"
	"github.com/nhle/lakeconsole/internal/model"
	"github.com/nhle/lakeconsole/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
}

// session is the configuration a command runs with.
type session struct {
	cfg      *model.AppConfig
	token    string
	firstRun bool
}

func newRootCommand() *cobra.Command {
	g := &globalFlags{}

	cmd := &cobra.Command{
		Use:           "lakeconsole",
		Short:         "Terminal console for Apache DevLake blueprints and pipelines",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(g)
		},
	}

	cmd.PersistentFlags().StringVar(&g.configPath, "config", model.DefaultConfigPath(), "Path to the configuration file")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Override log.level (debug, info, warn, error)")

	cmd.AddCommand(newTUICommand(g))
	cmd.AddCommand(newBlueprintsCommand(g))
	cmd.AddCommand(newPipelinesCommand(g))
	cmd.AddCommand(newCronCommand())
	return cmd
}

// loadSession reads the configuration and resolves the API key. A missing
// config file without an environment override counts as a first run.
func loadSession(g *globalFlags) (*session, error) {
	_, statErr := os.Stat(g.configPath)

	cfg, err := model.LoadConfig(g.configPath)
	if err != nil {
		return nil, err
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}

	token, err := credential.Resolve(cfg.Server.TokenRef)
	if err != nil {
		return nil, fmt.Errorf("resolving API key: %w", err)
	}

	_, envURL := os.LookupEnv(model.EnvPrefix + "_SERVER_BASE_URL")
	return &session{
		cfg:      cfg,
		token:    token,
		firstRun: os.IsNotExist(statErr) && !envURL,
	}, nil
}

// client builds a backend client that logs to log.
func (s *session) client(log zerolog.Logger) *devlake.Client {
	return app.NewClient(*s.cfg, s.token, log)
}

// openStore opens the local pipeline cache, creating its directory.
func (s *session) openStore() (*store.SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(s.cfg.Cache.Path), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	st, err := store.NewSQLiteStore(s.cfg.Cache.Path)
	if err != nil {
		return nil, fmt.Errorf("opening pipeline cache: %w", err)
	}
	return st, nil
}

// consoleLogger is the stderr logger used by non-interactive commands.
func (s *session) consoleLogger() zerolog.Logger {
	return logging.NewConsole(s.cfg.Log.Level)
}
