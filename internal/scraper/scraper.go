// Package scraper provides store adapters that extract price data from
// retail sources, plus the shared fetch and normalization helpers they
// build on.
package scraper

import (
	"context"
	"sort"

	apperrors "price-tracker/internal/errors"
	"price-tracker/internal/models"
)

// Scraper is the contract every retail source adapter implements. An
// adapter resolves a product either from its canonical URL or from a
// free-text search. Failures are returned as typed errors; the caller
// decides how to degrade them. No adapter panics across this boundary.
type Scraper interface {
	// Store returns the adapter's store key.
	Store() string

	// ScrapeURL resolves the price for a product URL.
	ScrapeURL(ctx context.Context, url string) (models.PriceObservation, error)

	// Search resolves prices for a free-text query, returning at most
	// limit observations. An empty result is not an error.
	Search(ctx context.Context, query string, limit int) ([]models.PriceObservation, error)
}

// Deps carries the transports adapters are built on: a JSON API client and
// a page fetcher for sources that require rendered DOM access.
type Deps struct {
	Client *Client
	Pages  PageFetcher
}

// registry maps store keys to adapter constructors. Adapters register
// statically; the enabled set comes from configuration.
var registry = map[string]func(Deps) Scraper{
	models.StoreFalabella:    func(d Deps) Scraper { return NewFalabella(d.Client) },
	models.StoreParis:        func(d Deps) Scraper { return NewParis(d.Client) },
	models.StoreSodimac:      func(d Deps) Scraper { return NewSodimac(d.Client) },
	models.StoreRipley:       func(d Deps) Scraper { return NewRipley(d.Pages) },
	models.StoreMercadoLibre: func(d Deps) Scraper { return NewMercadoLibre(d.Pages) },
}

// New builds the adapter for one store key.
func New(store string, deps Deps) (Scraper, error) {
	ctor, ok := registry[store]
	if !ok {
		return nil, apperrors.Wrapf(apperrors.ErrStoreUnknown, "store %q", store)
	}
	return ctor(deps), nil
}

// ForStores builds adapters for the given store keys in deterministic order.
func ForStores(stores []string, deps Deps) ([]Scraper, error) {
	keys := append([]string(nil), stores...)
	sort.Strings(keys)

	scrapers := make([]Scraper, 0, len(keys))
	for _, key := range keys {
		s, err := New(key, deps)
		if err != nil {
			return nil, err
		}
		scrapers = append(scrapers, s)
	}
	return scrapers, nil
}
