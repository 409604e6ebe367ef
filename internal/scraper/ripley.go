package scraper

import (
	"context"
	"net/url"
	"strings"

	apperrors "price-tracker/internal/errors"
	"price-tracker/internal/models"
)

const ripleySearchURL = "https://simple.ripley.cl/search"

// Ripley resolves prices from rendered ripley.cl product pages. The site
// serves no stable JSON API, so extraction runs over DOM selectors.
type Ripley struct {
	pages PageFetcher
}

// NewRipley creates the Ripley adapter.
func NewRipley(pages PageFetcher) *Ripley {
	return &Ripley{pages: pages}
}

// Store returns the adapter's store key.
func (r *Ripley) Store() string {
	return models.StoreRipley
}

// Selector candidates, most specific first. Markup differs between
// product categories, so each candidate list is tried in order.
var (
	ripleyNameSelectors = []string{
		"h1.product-title",
		"h1[class*='product']",
		"h1",
	}
	ripleyPriceSelectors = []string{
		".price-box .price--best",
		"[class*='best-price'] span",
		".price span",
	}
	ripleyOriginalSelectors = []string{
		"[class*='normal-price'] span",
	}
)

// ScrapeURL loads the product page and extracts name and prices.
func (r *Ripley) ScrapeURL(ctx context.Context, rawURL string) (models.PriceObservation, error) {
	if _, err := url.ParseRequestURI(rawURL); err != nil {
		return models.PriceObservation{}, apperrors.NewValidationError(r.Store(), "url", rawURL, err.Error())
	}

	doc, err := r.pages.FetchPage(ctx, rawURL)
	if err != nil {
		return models.PriceObservation{}, err
	}

	name := textFromSelectors(doc, ripleyNameSelectors)
	if name == "" {
		name = rawURL
	}

	return Normalize(models.PriceObservation{
		Store:         r.Store(),
		ProductName:   name,
		URL:           rawURL,
		Price:         priceFromSelectors(doc, ripleyPriceSelectors),
		OriginalPrice: priceFromSelectors(doc, ripleyOriginalSelectors),
	}), nil
}

// Search loads the search results page and scrapes the first product links.
func (r *Ripley) Search(ctx context.Context, query string, limit int) ([]models.PriceObservation, error) {
	searchURL := ripleySearchURL + "?query=" + url.QueryEscape(strings.TrimSpace(query))

	doc, err := r.pages.FetchPage(ctx, searchURL)
	if err != nil {
		return nil, err
	}

	base, _ := url.Parse(searchURL)
	links := collectLinks(doc, "a[href*='/product/']", base, limit)

	observations := make([]models.PriceObservation, 0, len(links))
	for _, link := range links {
		obs, err := r.ScrapeURL(ctx, link)
		if err != nil {
			obs = models.ErrorObservation(r.Store(), query, link, err)
		}
		observations = append(observations, obs)
	}

	return observations, nil
}
