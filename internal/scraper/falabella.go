package scraper

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	apperrors "price-tracker/internal/errors"
	"price-tracker/internal/models"
)

// Endpoints are vars so tests can point adapters at a fake upstream.
var (
	falabellaSearchURL  = "https://www.falabella.com/s/browse/v1/listing/cl"
	falabellaProductURL = "https://www.falabella.com/s/browse/v1/product/cl/%s"
)

const falabellaZone = "RM_13_1"

var falabellaProductRe = regexp.MustCompile(`/product/(\d+)`)

// Falabella resolves prices through the falabella.com browse API.
type Falabella struct {
	client *Client
}

// NewFalabella creates the Falabella adapter.
func NewFalabella(client *Client) *Falabella {
	return &Falabella{client: client}
}

// Store returns the adapter's store key.
func (f *Falabella) Store() string {
	return models.StoreFalabella
}

type falabellaPrice struct {
	Label string      `json:"label"`
	Price interface{} `json:"price"`
}

type falabellaItem struct {
	ID          string           `json:"id"`
	DisplayName string           `json:"displayName"`
	Slug        string           `json:"slug"`
	Prices      []falabellaPrice `json:"prices"`
}

// ScrapeURL resolves a product URL through the product endpoint. The URL
// must carry the numeric product id in its /product/ segment.
func (f *Falabella) ScrapeURL(ctx context.Context, rawURL string) (models.PriceObservation, error) {
	match := falabellaProductRe.FindStringSubmatch(rawURL)
	if match == nil {
		return models.PriceObservation{}, apperrors.NewValidationError(
			f.Store(), "url", rawURL, "missing /product/<id> segment")
	}
	pid := match[1]

	var payload struct {
		Data falabellaItem `json:"data"`
	}
	endpoint := fmt.Sprintf(falabellaProductURL, pid)
	params := url.Values{"zones": {falabellaZone}}
	if err := f.client.GetJSON(ctx, f.Store(), endpoint, params, &payload); err != nil {
		return models.PriceObservation{}, err
	}

	price, original := falabellaPrices(payload.Data.Prices)

	return Normalize(models.PriceObservation{
		Store:         f.Store(),
		ProductName:   payload.Data.DisplayName,
		URL:           rawURL,
		Price:         price,
		OriginalPrice: original,
		SKU:           pid,
	}), nil
}

// Search resolves a free-text query through the listing endpoint.
func (f *Falabella) Search(ctx context.Context, query string, limit int) ([]models.PriceObservation, error) {
	var payload struct {
		Data struct {
			Results []falabellaItem `json:"results"`
		} `json:"data"`
	}
	params := url.Values{
		"query": {query},
		"page":  {"1"},
		"limit": {fmt.Sprint(limit)},
		"zones": {falabellaZone},
	}
	if err := f.client.GetJSON(ctx, f.Store(), falabellaSearchURL, params, &payload); err != nil {
		return nil, err
	}

	items := payload.Data.Results
	if len(items) > limit {
		items = items[:limit]
	}

	observations := make([]models.PriceObservation, 0, len(items))
	for _, item := range items {
		price, original := falabellaPrices(item.Prices)

		productURL := ""
		if item.ID != "" {
			productURL = fmt.Sprintf("https://www.falabella.com/falabella-cl/product/%s/%s", item.ID, item.Slug)
		}

		name := item.DisplayName
		if name == "" {
			name = query
		}

		observations = append(observations, Normalize(models.PriceObservation{
			Store:         f.Store(),
			ProductName:   name,
			URL:           productURL,
			Price:         price,
			OriginalPrice: original,
			SKU:           item.ID,
		}))
	}

	return observations, nil
}

// falabellaPrices picks the current and original price out of the labeled
// price list. The "internet"/"cmr" labels carry the selling price and
// "normal" the list price; when no label matches the first entry is used
// as a last resort, because labeling varies by product category.
func falabellaPrices(prices []falabellaPrice) (price, original *float64) {
	for _, p := range prices {
		label := strings.ToLower(p.Label)
		value := numeric(p.Price)
		switch {
		case strings.Contains(label, "internet") || strings.Contains(label, "cmr"):
			price = value
		case strings.Contains(label, "normal"):
			original = value
		}
	}
	if price == nil && len(prices) > 0 {
		price = numeric(prices[0].Price)
	}
	return price, original
}
