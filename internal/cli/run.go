package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"price-tracker/internal/api"
)

func newRunCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run one collection pass over the active catalog",
		Long: `Run collects current prices for every active product: all configured
stores are queried concurrently per product and the results are appended
to the price history as they arrive.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			stats, err := app.Collector.Run(cmd.Context())
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(stats)
			}

			output.Success("Collection run finished")
			output.Printf("  Products:     %d\n", stats.Products)
			output.Printf("  With price:   %d\n", stats.Priced)
			output.Printf("  With errors:  %d\n", stats.Errored)
			output.Dim("  Took %s", stats.Duration.Round(1e6))
			return nil
		},
	}
}

func newServeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long: `Serve exposes the query surface (latest prices, history, alerts, run
status) and the collection trigger over HTTP until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			server := api.NewServer(app.Store, app.Collector, app.Alerts, app.Config.Server, app.Logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return server.ListenAndServe(ctx)
		},
	}
}
