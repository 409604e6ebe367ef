package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"price-tracker/internal/models"
)

func newProductsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "products",
		Short: "Manage the tracked product catalog",
	}

	cmd.AddCommand(newProductsAddCmd(app))
	cmd.AddCommand(newProductsListCmd(app))
	cmd.AddCommand(newProductsRemoveCmd(app))

	return cmd
}

func newProductsAddCmd(app *App) *cobra.Command {
	var query, category string
	var ownBrand bool
	var urls []string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a product to the catalog",
		Long: `Add registers a product to track. Give each store either a canonical
product URL (--url store=https://...) or rely on the free-text search
query (--query) for stores without one.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			urlMap := make(map[string]string)
			for _, pair := range urls {
				store, url, ok := splitPair(pair)
				if !ok {
					output.Error("Ignoring malformed --url value %q, expected store=url", pair)
					continue
				}
				urlMap[store] = url
			}

			id, err := app.Store.AddProduct(cmd.Context(), &models.Product{
				Name:        args[0],
				SearchQuery: query,
				Category:    category,
				OwnBrand:    ownBrand,
				URLs:        urlMap,
			})
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{"id": id, "name": args[0]})
			}
			output.Success("Added product %q (id %d)", args[0], id)
			return nil
		},
	}

	cmd.Flags().StringVar(&query, "query", "", "free-text search query for stores without a URL")
	cmd.Flags().StringVar(&category, "category", "", "product category")
	cmd.Flags().BoolVar(&ownBrand, "own", false, "mark as an own product")
	cmd.Flags().StringArrayVar(&urls, "url", nil, "per-store product URL as store=url (repeatable)")

	return cmd
}

func newProductsListCmd(app *App) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tracked products",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			products, err := app.Store.ListProducts(cmd.Context(), !all)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(products)
			}

			if len(products) == 0 {
				output.Dim("No products configured.")
				return nil
			}
			for _, p := range products {
				line := strconv.FormatInt(p.ID, 10) + "  " + p.Name
				if !p.Active {
					line += "  (inactive)"
				}
				output.Println(line)
				if p.SearchQuery != "" {
					output.Dim("    query: %s", p.SearchQuery)
				}
				for store, url := range p.URLs {
					output.Dim("    %s: %s", store, url)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "include inactive products")

	return cmd
}

func newProductsRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Remove a product and all its price history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				output.Error("Invalid product id %q", args[0])
				return nil
			}

			if err := app.Store.DeleteProduct(cmd.Context(), id); err != nil {
				return err
			}

			output.Success("Removed product %d", id)
			return nil
		},
	}
}

func splitPair(pair string) (store, url string, ok bool) {
	for i := 0; i < len(pair); i++ {
		if pair[i] == '=' {
			return pair[:i], pair[i+1:], i > 0 && i < len(pair)-1
		}
	}
	return "", "", false
}
