package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"tracker/internal/access"
	"tracker/internal/analytics"
	"tracker/internal/config"
	"tracker/internal/storage/sqlite"
	"tracker/internal/util"
)

// App carries the settings shared by every command.
type App struct {
	ConfigPath string
	DBPath     string

	cfg    config.Config
	logger *slog.Logger
}

func main() {
	app := &App{}
	if err := newRootCmd(app).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "tracker",
		Short:        "Progress analytics for projects, sprints and time tracking",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.init()
		},
	}

	cmd.PersistentFlags().StringVar(&app.ConfigPath, "config", util.EnvOrDefault("TRACKER_CONFIG", "tracker.yaml"), "Path to YAML config file")
	cmd.PersistentFlags().StringVar(&app.DBPath, "db", "", "Path to sqlite database file (overrides config)")

	cmd.AddCommand(newServeCmd(app))
	cmd.AddCommand(newReportCmd(app))
	cmd.AddCommand(newLoadCmd(app))
	return cmd
}

func (a *App) init() error {
	cfg, err := config.Load(a.ConfigPath)
	if err != nil {
		return err
	}
	if a.DBPath != "" {
		cfg.DBPath = a.DBPath
	}
	a.cfg = cfg
	a.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()}))
	return nil
}

// openStore opens the configured database.
func (a *App) openStore() (*sqlite.Store, error) {
	store, err := sqlite.Open(a.cfg.DBPath, a.logger)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}
	return store, nil
}

// newEngine wires the analytics engine over store.
func (a *App) newEngine(store *sqlite.Store) (*analytics.Engine, error) {
	loc, err := a.cfg.Location()
	if err != nil {
		return nil, err
	}
	gate := access.NewGate(store, a.logger)
	return analytics.NewEngine(store, gate, a.logger, analytics.Options{Location: loc}), nil
}
