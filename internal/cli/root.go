package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"price-tracker/internal/alerts"
	"price-tracker/internal/collector"
	"price-tracker/internal/config"
	"price-tracker/internal/logging"
	"price-tracker/internal/scraper"
	"price-tracker/internal/store"
)

// Version information
const (
	Version = "0.1.0"
)

// App holds the application dependencies.
type App struct {
	Config    *config.Config
	Logger    zerolog.Logger
	Store     store.DataStore
	Collector *collector.Collector
	Alerts    *alerts.Engine
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	rootCmd := &cobra.Command{
		Use:   "tracker",
		Short: "Price tracker for Chilean retail stores",
		Long: `Price tracker collects current prices for a product catalog across
Chilean retail stores, keeps an append-only price history, and derives
cheapest-store comparisons and day-over-day price-drop alerts.

Use 'tracker help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return app.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app.Store != nil {
				app.Store.Close()
			}
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/price-tracker)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newServeCmd(app))
	rootCmd.AddCommand(newRunCmd(app))
	rootCmd.AddCommand(newProductsCmd(app))
	rootCmd.AddCommand(newLatestCmd(app))
	rootCmd.AddCommand(newHistoryCmd(app))
	rootCmd.AddCommand(newAlertsCmd(app))

	return rootCmd
}

// init opens the store and wires the collector and alert engine.
func (a *App) init() error {
	if a.Store != nil {
		return nil
	}

	dataStore, err := store.NewSQLiteStore(a.Config.Database.Path)
	if err != nil {
		return err
	}
	a.Store = dataStore
	a.Logger.Debug().Str("path", a.Config.Database.Path).Msg("SQLite store initialized")

	deps := scraper.Deps{
		Client: scraper.NewClient(a.Config.Collector.APITimeout),
		Pages: scraper.NewHTTPPageFetcher(
			a.Config.Collector.PageTimeout,
			a.Config.Collector.SettleDelay,
			a.Config.Collector.HostDelay,
		),
	}
	scrapers, err := scraper.ForStores(a.Config.Collector.Stores, deps)
	if err != nil {
		return err
	}

	a.Collector = collector.New(a.Store, scrapers, a.Config.Collector, a.Logger)
	a.Alerts = alerts.New(a.Store, a.Config.Alerts.ThresholdPct)
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"version": Version})
			} else {
				output.Printf("Price Tracker v%s\n", Version)
			}
		},
	}
}
