package cli

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"option-screener/internal/config"
	"option-screener/internal/logging"
	"option-screener/internal/store"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2026-10-15"
)

// App holds the application dependencies. Config and Store are loaded on
// first use so that commands like "config init" run without a config file.
type App struct {
	ConfigPath string
	Config     *config.Config
	Logger     zerolog.Logger
	Store      store.RunStore

	debug bool
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(logger zerolog.Logger) *cobra.Command {
	return newRootCmd(&App{Logger: logger})
}

func newRootCmd(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "screener",
		Short: "Option strategy screener",
		Long: `Screener builds option strategies from an option chain snapshot,
filters them by liquidity and risk/reward constraints, and ranks the survivors.

Supported strategies: single legs, straddles, strangles and iron condors.

Use 'screener config init' to write a starting configuration.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("output")
			if !validFormat(format) {
				return fmt.Errorf("unknown output format %q (use table, json or yaml)", format)
			}
			app.ConfigPath, _ = cmd.Flags().GetString("config")
			app.debug, _ = cmd.Flags().GetBool("debug")
			if app.debug {
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config file (default: ~/.config/option-screener/config.toml)")
	rootCmd.PersistentFlags().StringP("output", "o", FormatTable, "output format: table, json or yaml")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newScreenCmd(app))
	rootCmd.AddCommand(newHistoryCmd(app))

	return rootCmd
}

// LoadConfig loads the configuration once and rebuilds the logger from its
// log section.
func (a *App) LoadConfig() (*config.Config, error) {
	if a.Config != nil {
		return a.Config, nil
	}
	cfg, err := config.Load(a.ConfigPath)
	if err != nil {
		return nil, err
	}
	a.Config = cfg

	logCfg := cfg.Log
	if a.debug {
		logCfg.Level = "debug"
	}
	a.Logger = logging.NewLoggerWithConfig(logCfg)
	a.Logger.Debug().Str("path", cfg.Path()).Msg("Configuration loaded")
	return cfg, nil
}

// OpenStore opens the run store at the configured path. Callers defer Close.
func (a *App) OpenStore() (store.RunStore, error) {
	if a.Store != nil {
		return a.Store, nil
	}
	cfg, err := a.LoadConfig()
	if err != nil {
		return nil, err
	}
	s, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	a.Store = s
	a.Logger.Debug().Str("path", cfg.Store.Path).Msg("SQLite store initialized")
	return s, nil
}

// Close releases the store if one was opened.
func (a *App) Close() error {
	if a.Store == nil {
		return nil
	}
	err := a.Store.Close()
	a.Store = nil
	return err
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsStructured() {
				return output.Encode(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			}
			output.Printf("Option Screener v%s\n", Version)
			output.Dim("Build date: %s", BuildDate)
			return nil
		},
	}
}
