package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"price-tracker/internal/models"
	"price-tracker/internal/store"
)

func newLatestCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "latest",
		Short: "Show the latest price per store for every product",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			records, err := app.Store.LatestAll(cmd.Context())
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(records)
			}

			if len(records) == 0 {
				output.Dim("No prices recorded yet. Run 'tracker run' first.")
				return nil
			}

			current := ""
			for _, r := range records {
				if r.ProductName != current {
					current = r.ProductName
					output.Bold("%s", current)
				}
				label := models.StoreLabels[r.Store]
				if label == "" {
					label = r.Store
				}
				line := "  " + label + ": " + FormatCLP(*r.Price)
				if r.OriginalPrice != nil {
					line += "  (before " + FormatCLP(*r.OriginalPrice) + ")"
				}
				output.Println(line)
			}
			return nil
		},
	}
}

func newHistoryCmd(app *App) *cobra.Command {
	var days int
	var storeKey string

	cmd := &cobra.Command{
		Use:   "history <product-id>",
		Short: "Show price history for a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				output.Error("Invalid product id %q", args[0])
				return nil
			}

			records, err := app.Store.History(cmd.Context(), store.HistoryFilter{
				ProductID: id,
				Store:     storeKey,
				Days:      days,
			})
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(records)
			}

			if len(records) == 0 {
				output.Dim("No history in the last %d days.", days)
				return nil
			}
			for _, r := range records {
				if r.Price != nil {
					output.Printf("%s  %-14s %s\n", r.Date, r.Store, FormatCLP(*r.Price))
				} else {
					output.Printf("%s  %-14s error: %s\n", r.Date, r.Store, r.Error)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 30, "trailing window in days")
	cmd.Flags().StringVar(&storeKey, "store", "", "filter by store key")

	return cmd
}

func newAlertsCmd(app *App) *cobra.Command {
	var threshold float64

	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "Show day-over-day price drops",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			found, err := app.Alerts.Detect(cmd.Context(), threshold)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(found)
			}

			if len(found) == 0 {
				output.Dim("No price drops detected.")
				return nil
			}
			for _, a := range found {
				label := models.StoreLabels[a.Store]
				if label == "" {
					label = a.Store
				}
				output.Success("%s at %s: %s -> %s (-%.1f%%)",
					a.ProductName, label, FormatCLP(a.Yesterday), FormatCLP(a.Today), a.DropPct)
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&threshold, "threshold", 0, "minimum drop percentage (default from config)")

	return cmd
}
