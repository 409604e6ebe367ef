// Package store provides data persistence implementations.
package store

import (
	"context"

	"price-tracker/internal/models"
)

// DataStore defines the persistence operations used by the collector,
// the alert engine and the query surface.
type DataStore interface {
	// Catalog
	AddProduct(ctx context.Context, product *models.Product) (int64, error)
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	ListProducts(ctx context.Context, activeOnly bool) ([]models.Product, error)
	DeleteProduct(ctx context.Context, id int64) error

	// Time series
	AppendPrices(ctx context.Context, productID int64, records []models.PriceRecord) error
	LatestPerStore(ctx context.Context, productID int64) ([]models.PriceRecord, error)
	LatestAll(ctx context.Context) ([]models.PriceRecord, error)
	History(ctx context.Context, filter HistoryFilter) ([]models.PriceRecord, error)
	MinPricesByDate(ctx context.Context, date string) ([]models.PriceRecord, error)

	// Summary
	Stats(ctx context.Context) (*Stats, error)

	Close() error
}

// HistoryFilter narrows a price history query.
type HistoryFilter struct {
	ProductID int64
	Store     string // optional, empty matches all stores
	Days      int    // trailing window size in days
}

// Stats summarizes the stored time series.
type Stats struct {
	TotalRecords  int      `json:"total_records"`
	TotalProducts int      `json:"total_products"`
	LastRun       string   `json:"last_run,omitempty"` // most recent observation date
	Stores        []string `json:"stores"`
}
