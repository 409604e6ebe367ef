package scraper

import (
	"context"
	"net/url"
	"strings"

	apperrors "price-tracker/internal/errors"
	"price-tracker/internal/models"
)

const mercadoLibreListingURL = "https://listado.mercadolibre.cl/"

// MercadoLibre resolves prices from rendered mercadolibre.cl pages.
type MercadoLibre struct {
	pages PageFetcher
}

// NewMercadoLibre creates the MercadoLibre adapter.
func NewMercadoLibre(pages PageFetcher) *MercadoLibre {
	return &MercadoLibre{pages: pages}
}

// Store returns the adapter's store key.
func (m *MercadoLibre) Store() string {
	return models.StoreMercadoLibre
}

var (
	mercadoLibreNameSelectors = []string{
		"h1.ui-pdp-title",
		"h1",
	}
	mercadoLibrePriceSelectors = []string{
		".ui-pdp-price__second-line .andes-money-amount__fraction",
		".andes-money-amount__fraction",
	}
	mercadoLibreOriginalSelectors = []string{
		".ui-pdp-price__original-value .andes-money-amount__fraction",
	}
)

// ScrapeURL loads the product page and extracts name and prices.
func (m *MercadoLibre) ScrapeURL(ctx context.Context, rawURL string) (models.PriceObservation, error) {
	if _, err := url.ParseRequestURI(rawURL); err != nil {
		return models.PriceObservation{}, apperrors.NewValidationError(m.Store(), "url", rawURL, err.Error())
	}

	doc, err := m.pages.FetchPage(ctx, rawURL)
	if err != nil {
		return models.PriceObservation{}, err
	}

	name := textFromSelectors(doc, mercadoLibreNameSelectors)
	if name == "" {
		name = rawURL
	}

	return Normalize(models.PriceObservation{
		Store:         m.Store(),
		ProductName:   name,
		URL:           rawURL,
		Price:         priceFromSelectors(doc, mercadoLibrePriceSelectors),
		OriginalPrice: priceFromSelectors(doc, mercadoLibreOriginalSelectors),
	}), nil
}

// Search loads the listing page for the query and scrapes the first
// product links.
func (m *MercadoLibre) Search(ctx context.Context, query string, limit int) ([]models.PriceObservation, error) {
	slug := strings.ReplaceAll(strings.TrimSpace(query), " ", "-")
	searchURL := mercadoLibreListingURL + url.PathEscape(slug)

	doc, err := m.pages.FetchPage(ctx, searchURL)
	if err != nil {
		return nil, err
	}

	base, _ := url.Parse(searchURL)
	links := collectLinks(doc, "a.ui-search-link", base, limit)

	observations := make([]models.PriceObservation, 0, len(links))
	for _, link := range links {
		obs, err := m.ScrapeURL(ctx, link)
		if err != nil {
			obs = models.ErrorObservation(m.Store(), query, link, err)
		}
		observations = append(observations, obs)
	}

	return observations, nil
}
