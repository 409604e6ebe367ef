// Package collector orchestrates collection runs: the concurrent per-store
// fan-out for each product and the streaming persistence of results.
package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"price-tracker/internal/config"
	apperrors "price-tracker/internal/errors"
	"price-tracker/internal/logging"
	"price-tracker/internal/models"
	"price-tracker/internal/scraper"
	"price-tracker/internal/store"
)

// Collector runs price collection over the active product catalog. It owns
// the run-in-progress guard: at most one run executes at a time, and a
// second trigger is rejected rather than queued.
type Collector struct {
	store    store.DataStore
	scrapers []scraper.Scraper
	cfg      config.CollectorConfig
	logger   zerolog.Logger

	mu      sync.Mutex
	running bool
	lastRun *models.RunStats
}

// New creates a collector over the given adapters and store.
func New(dataStore store.DataStore, scrapers []scraper.Scraper, cfg config.CollectorConfig, logger zerolog.Logger) *Collector {
	return &Collector{
		store:    dataStore,
		scrapers: scrapers,
		cfg:      cfg,
		logger:   logger,
	}
}

// Status returns the collector's current state and the last run's stats.
func (c *Collector) Status() models.RunStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	state := models.RunIdle
	if c.running {
		state = models.RunRunning
	}
	return models.RunStatus{State: state, LastRun: c.lastRun}
}

// Run executes one collection run over all active products. Products are
// processed sequentially; within a product all store adapters are invoked
// concurrently. Each product's observations are persisted before the next
// product starts, so an interrupted run still leaves usable data behind.
// Returns ErrRunInProgress when a run is already active.
func (c *Collector) Run(ctx context.Context) (*models.RunStats, error) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil, apperrors.ErrRunInProgress
	}
	c.running = true
	c.mu.Unlock()

	stats := &models.RunStats{
		RunID:     uuid.NewString(),
		Date:      time.Now().Format(models.DateFormat),
		StartedAt: time.Now(),
	}

	defer func() {
		stats.Duration = time.Since(stats.StartedAt)
		c.mu.Lock()
		c.running = false
		c.lastRun = stats
		c.mu.Unlock()
		logging.LogRun(c.logger, stats.Products, stats.Priced, stats.Errored, stats.Duration)
	}()

	products, err := c.store.ListProducts(ctx, true)
	if err != nil {
		return stats, apperrors.Wrap(err, "listing products")
	}
	if len(products) == 0 {
		c.logger.Warn().Msg("No products configured")
		return stats, nil
	}

	for _, product := range products {
		// Interruption happens at product granularity; already
		// persisted products stay intact.
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}

		logger := logging.WithProduct(c.logger, product.Name)
		logger.Info().Msg("Collecting product")

		observations := c.collectProduct(ctx, product)
		for _, obs := range observations {
			logging.LogObservation(logger, obs.Store, obs.ProductName, obs.Price, obs.Error)
			if obs.HasPrice() {
				stats.Priced++
			} else if obs.Error != "" {
				stats.Errored++
			}
		}

		records := toRecords(product.ID, stats.Date, observations)
		if err := c.store.AppendPrices(ctx, product.ID, records); err != nil {
			// Fatal for this product's batch only; the run goes on.
			logger.Error().Err(err).Msg("Persisting product batch failed")
			continue
		}
		stats.Products++
	}

	return stats, nil
}

// invocation is one adapter call planned for a product.
type invocation struct {
	scraper scraper.Scraper
	url     string // empty means resolve by search query
}

// collectProduct fans out to every configured adapter for one product and
// collects all results. A failing or panicking adapter never affects its
// siblings; its slot degrades to an error observation.
func (c *Collector) collectProduct(ctx context.Context, product models.Product) []models.PriceObservation {
	var invocations []invocation
	for _, s := range c.scrapers {
		if url := product.URLs[s.Store()]; url != "" {
			invocations = append(invocations, invocation{scraper: s, url: url})
		} else if product.SearchQuery != "" {
			invocations = append(invocations, invocation{scraper: s})
		}
	}

	results := make([][]models.PriceObservation, len(invocations))
	var wg sync.WaitGroup
	for i, inv := range invocations {
		wg.Add(1)
		go func(i int, inv invocation) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					results[i] = []models.PriceObservation{
						models.ErrorObservation(models.StoreUnknown, product.Name, "",
							fmt.Errorf("adapter panic: %v", r)),
					}
				}
			}()
			results[i] = c.invoke(ctx, inv, product)
		}(i, inv)
	}
	wg.Wait()

	var observations []models.PriceObservation
	for _, r := range results {
		observations = append(observations, r...)
	}
	return observations
}

// invoke performs one adapter call under its own timeout and converts any
// error into an error observation for that store.
func (c *Collector) invoke(ctx context.Context, inv invocation, product models.Product) []models.PriceObservation {
	// Ceiling over the transports' own timeouts so a stuck call can
	// never hang the run.
	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout())
	defer cancel()

	storeKey := inv.scraper.Store()

	if inv.url != "" {
		obs, err := inv.scraper.ScrapeURL(callCtx, inv.url)
		if err != nil {
			return []models.PriceObservation{models.ErrorObservation(storeKey, product.Name, inv.url, err)}
		}
		obs.ProductName = product.Name
		return []models.PriceObservation{obs}
	}

	found, err := inv.scraper.Search(callCtx, product.SearchQuery, c.searchLimit())
	if err != nil {
		return []models.PriceObservation{models.ErrorObservation(storeKey, product.Name, "", err)}
	}
	if len(found) == 0 {
		return []models.PriceObservation{models.ErrorObservation(storeKey, product.Name, "", apperrors.ErrNoResults)}
	}

	obs := found[0]
	obs.ProductName = product.Name
	return []models.PriceObservation{obs}
}

func (c *Collector) callTimeout() time.Duration {
	timeout := c.cfg.PageTimeout + c.cfg.SettleDelay + c.cfg.HostDelay
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return timeout
}

func (c *Collector) searchLimit() int {
	if c.cfg.SearchLimit < 1 {
		return 1
	}
	return c.cfg.SearchLimit
}

// toRecords converts a product's observations into dated price records.
func toRecords(productID int64, date string, observations []models.PriceObservation) []models.PriceRecord {
	records := make([]models.PriceRecord, 0, len(observations))
	for _, obs := range observations {
		records = append(records, models.PriceRecord{
			ProductID:     productID,
			Date:          date,
			Store:         obs.Store,
			URL:           obs.URL,
			Price:         obs.Price,
			OriginalPrice: obs.OriginalPrice,
			Currency:      obs.Currency,
			SKU:           obs.SKU,
			Error:         obs.Error,
		})
	}
	return records
}
