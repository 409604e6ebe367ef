package collector

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"price-tracker/internal/config"
	apperrors "price-tracker/internal/errors"
	"price-tracker/internal/models"
	"price-tracker/internal/scraper"
	"price-tracker/internal/store"
)

// fakeScraper lets each test script adapter behavior per store.
type fakeScraper struct {
	key    string
	scrape func(ctx context.Context, url string) (models.PriceObservation, error)
	search func(ctx context.Context, query string, limit int) ([]models.PriceObservation, error)
}

func (f *fakeScraper) Store() string { return f.key }

func (f *fakeScraper) ScrapeURL(ctx context.Context, url string) (models.PriceObservation, error) {
	return f.scrape(ctx, url)
}

func (f *fakeScraper) Search(ctx context.Context, query string, limit int) ([]models.PriceObservation, error) {
	return f.search(ctx, query, limit)
}

func pricedScraper(key string, price, original float64) *fakeScraper {
	obs := models.PriceObservation{
		Store:    key,
		Price:    models.Float(price),
		Currency: models.DefaultCurrency,
	}
	if original > 0 {
		obs.OriginalPrice = models.Float(original)
	}
	return &fakeScraper{
		key: key,
		scrape: func(_ context.Context, url string) (models.PriceObservation, error) {
			o := obs
			o.URL = url
			return o, nil
		},
		search: func(_ context.Context, _ string, _ int) ([]models.PriceObservation, error) {
			return []models.PriceObservation{obs}, nil
		},
	}
}

func newTestStore(t *testing.T, dbPath string) *store.SQLiteStore {
	t.Helper()
	t.Cleanup(func() {
		os.Remove(dbPath)
		os.Remove(dbPath + "-wal")
		os.Remove(dbPath + "-shm")
	})

	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testCfg() config.CollectorConfig {
	return config.CollectorConfig{
		PageTimeout: 2 * time.Second,
		SearchLimit: 3,
	}
}

func TestRun_URLAndSearchResolution(t *testing.T) {
	ds := newTestStore(t, "test_collector_run.db")
	ctx := context.Background()

	productID, err := ds.AddProduct(ctx, &models.Product{
		Name:        "Phone X",
		SearchQuery: "phone x",
		URLs:        map[string]string{models.StoreFalabella: "https://f/product/1/phone-x"},
	})
	if err != nil {
		t.Fatalf("AddProduct: %v", err)
	}

	scrapers := []*fakeScraper{
		pricedScraper(models.StoreFalabella, 499990, 549990),
		{
			key: models.StoreParis,
			scrape: func(_ context.Context, _ string) (models.PriceObservation, error) {
				t.Error("paris has no URL, ScrapeURL must not be called")
				return models.PriceObservation{}, nil
			},
			search: func(_ context.Context, query string, _ int) ([]models.PriceObservation, error) {
				if query != "phone x" {
					t.Errorf("search query = %q", query)
				}
				return nil, nil
			},
		},
	}

	c := New(ds, asScrapers(scrapers), testCfg(), zerolog.Nop())
	stats, err := c.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if stats.Products != 1 || stats.Priced != 1 || stats.Errored != 1 {
		t.Fatalf("stats = %+v, want 1 product, 1 priced, 1 errored", stats)
	}
	if stats.RunID == "" || stats.Date == "" {
		t.Fatalf("stats missing run id or date: %+v", stats)
	}

	// The URL-based store resolved a price and is the only latest record.
	latest, err := ds.LatestPerStore(ctx, productID)
	if err != nil {
		t.Fatalf("LatestPerStore: %v", err)
	}
	if len(latest) != 1 || latest[0].Store != models.StoreFalabella {
		t.Fatalf("latest = %+v, want one falabella record", latest)
	}
	if *latest[0].Price != 499990 || *latest[0].OriginalPrice != 549990 {
		t.Fatalf("latest prices = %v/%v", *latest[0].Price, *latest[0].OriginalPrice)
	}

	// The empty search is persisted as an error record for the audit trail.
	history, err := ds.History(ctx, store.HistoryFilter{ProductID: productID, Days: 1})
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("got %d history records, want 2", len(history))
	}
	var sawNoResults bool
	for _, r := range history {
		if r.Store == models.StoreParis && strings.Contains(r.Error, "no results") {
			sawNoResults = true
		}
	}
	if !sawNoResults {
		t.Fatalf("history = %+v, want a paris record with a no-results error", history)
	}
}

func TestRun_AdapterFailureIsolation(t *testing.T) {
	ds := newTestStore(t, "test_collector_isolation.db")
	ctx := context.Background()

	productID, err := ds.AddProduct(ctx, &models.Product{
		Name: "Phone X",
		URLs: map[string]string{
			models.StoreFalabella: "https://f/product/1",
			models.StoreParis:     "https://p/phone/p/",
			models.StoreRipley:    "https://r/product/1",
		},
	})
	if err != nil {
		t.Fatalf("AddProduct: %v", err)
	}

	scrapers := []*fakeScraper{
		pricedScraper(models.StoreFalabella, 499990, 0),
		{
			key: models.StoreParis,
			scrape: func(_ context.Context, _ string) (models.PriceObservation, error) {
				panic("adapter bug")
			},
		},
		{
			key: models.StoreRipley,
			scrape: func(_ context.Context, url string) (models.PriceObservation, error) {
				return models.PriceObservation{}, apperrors.NewFetchError(models.StoreRipley, url, 503, nil)
			},
		},
	}

	c := New(ds, asScrapers(scrapers), testCfg(), zerolog.Nop())
	stats, err := c.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if stats.Priced != 1 || stats.Errored != 2 {
		t.Fatalf("stats = %+v, want 1 priced and 2 errored", stats)
	}

	history, err := ds.History(ctx, store.HistoryFilter{ProductID: productID, Days: 1})
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("got %d history records, want 3", len(history))
	}

	// The panicking adapter degrades to an unattributable error record.
	var sawPanic bool
	for _, r := range history {
		if r.Store == models.StoreUnknown && strings.Contains(r.Error, "adapter panic") {
			sawPanic = true
		}
	}
	if !sawPanic {
		t.Fatalf("history = %+v, want an unknown-store panic record", history)
	}
}

func TestRun_RejectsConcurrentRun(t *testing.T) {
	ds := newTestStore(t, "test_collector_guard.db")
	ctx := context.Background()

	if _, err := ds.AddProduct(ctx, &models.Product{
		Name: "Phone X",
		URLs: map[string]string{models.StoreFalabella: "https://f/product/1"},
	}); err != nil {
		t.Fatalf("AddProduct: %v", err)
	}

	started := make(chan struct{})
	release := make(chan struct{})
	blocking := &fakeScraper{
		key: models.StoreFalabella,
		scrape: func(_ context.Context, _ string) (models.PriceObservation, error) {
			close(started)
			<-release
			return models.PriceObservation{Store: models.StoreFalabella, Price: models.Float(1000)}, nil
		},
	}

	c := New(ds, asScrapers([]*fakeScraper{blocking}), testCfg(), zerolog.Nop())

	errCh := make(chan error, 1)
	go func() {
		_, err := c.Run(ctx)
		errCh <- err
	}()

	<-started
	if c.Status().State != models.RunRunning {
		t.Fatal("Status = idle while a run is active")
	}
	if _, err := c.Run(ctx); !apperrors.Is(err, apperrors.ErrRunInProgress) {
		t.Fatalf("second Run = %v, want ErrRunInProgress", err)
	}

	close(release)
	if err := <-errCh; err != nil {
		t.Fatalf("first Run: %v", err)
	}

	status := c.Status()
	if status.State != models.RunIdle {
		t.Fatal("Status still running after run finished")
	}
	if status.LastRun == nil || status.LastRun.Priced != 1 {
		t.Fatalf("LastRun = %+v", status.LastRun)
	}
}

func TestRun_NoProducts(t *testing.T) {
	ds := newTestStore(t, "test_collector_empty.db")

	c := New(ds, nil, testCfg(), zerolog.Nop())
	stats, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Products != 0 || stats.Priced != 0 || stats.Errored != 0 {
		t.Fatalf("stats = %+v, want all zero", stats)
	}
}

func TestRun_StopsBetweenProducts(t *testing.T) {
	ds := newTestStore(t, "test_collector_cancel.db")
	ctx := context.Background()

	for _, name := range []string{"A", "B"} {
		if _, err := ds.AddProduct(ctx, &models.Product{
			Name: name,
			URLs: map[string]string{models.StoreFalabella: "https://f/product/" + name},
		}); err != nil {
			t.Fatalf("AddProduct: %v", err)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	cancelling := &fakeScraper{
		key: models.StoreFalabella,
		scrape: func(_ context.Context, url string) (models.PriceObservation, error) {
			cancel() // takes effect before the next product starts
			return models.PriceObservation{Store: models.StoreFalabella, URL: url, Price: models.Float(1000)}, nil
		},
	}

	c := New(ds, asScrapers([]*fakeScraper{cancelling}), testCfg(), zerolog.Nop())
	stats, err := c.Run(runCtx)
	if err == nil {
		t.Fatal("Run returned nil error after cancellation")
	}
	if stats.Products != 1 {
		t.Fatalf("Products = %d, want the first product persisted before the stop", stats.Products)
	}
}

func asScrapers(fakes []*fakeScraper) []scraper.Scraper {
	out := make([]scraper.Scraper, 0, len(fakes))
	for _, f := range fakes {
		out = append(out, f)
	}
	return out
}
