// Package alerts derives day-over-day price-drop signals from the stored
// time series.
package alerts

import (
	"context"
	"math"
	"sort"
	"time"

	"price-tracker/internal/models"
	"price-tracker/internal/store"
)

// DefaultThresholdPct is the minimum drop percentage that emits an alert.
const DefaultThresholdPct = 5.0

// Engine detects price drops between consecutive calendar days.
type Engine struct {
	store     store.DataStore
	threshold float64
}

// New creates an alert engine with the given default threshold.
func New(dataStore store.DataStore, thresholdPct float64) *Engine {
	if thresholdPct <= 0 {
		thresholdPct = DefaultThresholdPct
	}
	return &Engine{store: dataStore, threshold: thresholdPct}
}

// Detect compares today's minimum price against yesterday's for every
// (product, store) pair and emits an alert when the price dropped by at
// least thresholdPct percent. Pass 0 to use the engine's configured
// threshold. Alerts are ordered by drop percentage descending.
func (e *Engine) Detect(ctx context.Context, thresholdPct float64) ([]models.Alert, error) {
	if thresholdPct <= 0 {
		thresholdPct = e.threshold
	}

	today := time.Now().Format(models.DateFormat)
	yesterday := time.Now().AddDate(0, 0, -1).Format(models.DateFormat)

	return e.detectBetween(ctx, yesterday, today, thresholdPct)
}

func (e *Engine) detectBetween(ctx context.Context, yesterday, today string, thresholdPct float64) ([]models.Alert, error) {
	previous, err := e.store.MinPricesByDate(ctx, yesterday)
	if err != nil {
		return nil, err
	}
	current, err := e.store.MinPricesByDate(ctx, today)
	if err != nil {
		return nil, err
	}

	type key struct {
		productID int64
		store     string
	}
	previousByKey := make(map[key]models.PriceRecord, len(previous))
	for _, r := range previous {
		previousByKey[key{r.ProductID, r.Store}] = r
	}

	var alerts []models.Alert
	for _, r := range current {
		prev, ok := previousByKey[key{r.ProductID, r.Store}]
		if !ok || prev.Price == nil || r.Price == nil {
			continue
		}
		if *r.Price >= *prev.Price {
			continue
		}

		drop := (1 - *r.Price / *prev.Price) * 100
		if drop < thresholdPct {
			continue
		}

		alerts = append(alerts, models.Alert{
			ProductID:   r.ProductID,
			ProductName: r.ProductName,
			Store:       r.Store,
			Date:        today,
			Yesterday:   *prev.Price,
			Today:       *r.Price,
			DropPct:     math.Round(drop*10) / 10,
		})
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].DropPct > alerts[j].DropPct
	})

	return alerts, nil
}
