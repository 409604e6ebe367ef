// Package models provides domain models for the price tracking application.
package models

import (
	"time"
)

// DateFormat is the day-granularity format used for observation dates.
const DateFormat = "2006-01-02"

// DefaultCurrency is the deployment-wide currency. All configured stores
// quote prices in Chilean pesos; currency is never parsed per item.
const DefaultCurrency = "CLP"

// Store keys identify the supported retail sources.
const (
	StoreFalabella    = "falabella"
	StoreParis        = "paris"
	StoreRipley       = "ripley"
	StoreMercadoLibre = "mercadolibre"
	StoreSodimac      = "sodimac"

	// StoreUnknown is used when a failure cannot be attributed to a store.
	StoreUnknown = "unknown"
)

// StoreLabels maps store keys to display names.
var StoreLabels = map[string]string{
	StoreFalabella:    "Falabella",
	StoreParis:        "Paris",
	StoreRipley:       "Ripley",
	StoreMercadoLibre: "MercadoLibre",
	StoreSodimac:      "Sodimac",
}

// Product is a catalog entry to track. Products are created and edited by
// the catalog surface; the collector only reads them.
type Product struct {
	ID          int64             `json:"id"`
	Name        string            `json:"name"`
	SearchQuery string            `json:"search_query,omitempty"`
	Category    string            `json:"category,omitempty"`
	OwnBrand    bool              `json:"own_brand,omitempty"`
	Active      bool              `json:"active"`
	URLs        map[string]string `json:"urls,omitempty"` // store key -> product URL
	CreatedAt   time.Time         `json:"created_at,omitempty"`
}

// PriceObservation is the result of one adapter invocation for one
// product/store at collection time. Price and Error are mutually exclusive:
// an observation never carries both a resolved price and an error, though
// both may be absent when a page loaded but no candidate yielded a price.
type PriceObservation struct {
	Store         string   `json:"store"`
	ProductName   string   `json:"product_name"`
	URL           string   `json:"url"`
	Price         *float64 `json:"price"`
	OriginalPrice *float64 `json:"original_price,omitempty"`
	Currency      string   `json:"currency"`
	SKU           string   `json:"sku,omitempty"`
	Error         string   `json:"error,omitempty"`
}

// HasPrice reports whether the observation resolved a price.
func (o PriceObservation) HasPrice() bool {
	return o.Price != nil
}

// ErrorObservation builds an observation for a failed adapter invocation.
func ErrorObservation(store, name, url string, err error) PriceObservation {
	return PriceObservation{
		Store:       store,
		ProductName: name,
		URL:         url,
		Currency:    DefaultCurrency,
		Error:       err.Error(),
	}
}

// PriceRecord is a persisted, dated PriceObservation. Records are
// append-only; they are never updated and only removed by a product
// cascade delete.
type PriceRecord struct {
	ID            int64     `json:"id,omitempty"`
	ProductID     int64     `json:"product_id"`
	ProductName   string    `json:"product_name,omitempty"`
	Date          string    `json:"date"` // day granularity, models.DateFormat
	Store         string    `json:"store"`
	URL           string    `json:"url,omitempty"`
	Price         *float64  `json:"price"`
	OriginalPrice *float64  `json:"original_price,omitempty"`
	Currency      string    `json:"currency"`
	SKU           string    `json:"sku,omitempty"`
	Error         string    `json:"error,omitempty"`
	CreatedAt     time.Time `json:"created_at,omitempty"`
}

// Alert is a detected day-over-day price drop for one (product, store) pair.
type Alert struct {
	ProductID   int64   `json:"product_id"`
	ProductName string  `json:"product_name"`
	Store       string  `json:"store"`
	Date        string  `json:"date"`
	Yesterday   float64 `json:"yesterday"`
	Today       float64 `json:"today"`
	DropPct     float64 `json:"drop_pct"` // rounded to one decimal place
}

// RunStats summarizes one collection run.
type RunStats struct {
	RunID     string        `json:"run_id"`
	Date      string        `json:"date"`
	Products  int           `json:"products"`
	Priced    int           `json:"priced"`
	Errored   int           `json:"errored"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// RunState describes the collector's current state.
type RunState string

const (
	RunIdle    RunState = "idle"
	RunRunning RunState = "running"
)

// RunStatus is the queryable collector status exposed to trigger callers.
type RunStatus struct {
	State   RunState  `json:"state"`
	LastRun *RunStats `json:"last_run,omitempty"`
}

// Float returns a pointer to v. Convenience for nullable prices.
func Float(v float64) *float64 {
	return &v
}
