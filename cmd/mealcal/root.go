package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mealcal/internal/config"
	appLog "mealcal/internal/log"
	"mealcal/internal/store"
)

// app carries state shared by all subcommands once the config is loaded.
type app struct {
	configPath string
	logLevel   string

	cfg   *config.Config
	store *store.Store
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "mealcal",
		Short:         "mealcal turns saved meal-planner pages into calendar invites",
		Long:          "mealcal extracts meal plans from saved meal-planner HTML pages, stores them as JSON and emits iCalendar files with one event per meal.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "mealcal.yaml", "Path to config file (created with defaults if missing; empty uses built-in defaults)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")

	root.AddCommand(
		newExtractCmd(a),
		newCalendarCmd(a),
		newPlansCmd(a),
		newInspectCmd(a),
		newDebugCmd(),
		newResetCmd(a),
		newServeCmd(a),
	)
	return root
}

func (a *app) load() error {
	cfg := config.DefaultConfig()
	if a.configPath != "" {
		loaded, err := config.Load(a.configPath)
		if err != nil {
			appLog.Error("failed to load config", err, "config_path", a.configPath)
			return fmt.Errorf("load config %s: %w", a.configPath, err)
		}
		cfg = loaded
	}

	levelName := cfg.LogLevel
	if a.logLevel != "" {
		levelName = a.logLevel
	}
	level, ok := appLog.ParseLevel(levelName)
	if !ok {
		return fmt.Errorf("unknown log level %q", levelName)
	}
	appLog.SetLevel(level)

	a.cfg = cfg
	a.store = store.New(cfg.PlansDir, cfg.InvitesDir)

	appLog.Debug("effective config",
		"config_path", a.configPath,
		"plans_dir", cfg.PlansDir,
		"invites_dir", cfg.InvitesDir,
		"timezone", cfg.Timezone,
		"structured", cfg.Structured,
	)
	return nil
}
