package scraper

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	apperrors "price-tracker/internal/errors"
	"price-tracker/internal/models"
)

var parisSearchURL = "https://www.paris.cl/api/catalog_system/pub/products/search/"

// Paris resolves prices through the paris.cl VTEX catalog API.
type Paris struct {
	client *Client
}

// NewParis creates the Paris adapter.
func NewParis(client *Client) *Paris {
	return &Paris{client: client}
}

// Store returns the adapter's store key.
func (p *Paris) Store() string {
	return models.StoreParis
}

type parisProduct struct {
	ProductID   string `json:"productId"`
	ProductName string `json:"productName"`
	Link        string `json:"link"`
	Items       []struct {
		Sellers []struct {
			CommertialOffer struct {
				Price     float64 `json:"Price"`
				ListPrice float64 `json:"ListPrice"`
			} `json:"commertialOffer"`
		} `json:"sellers"`
	} `json:"items"`
}

// offer returns the first seller's commercial offer prices.
func (pp parisProduct) offer() (price, original *float64) {
	if len(pp.Items) == 0 || len(pp.Items[0].Sellers) == 0 {
		return nil, nil
	}
	o := pp.Items[0].Sellers[0].CommertialOffer
	if o.Price != 0 {
		price = models.Float(o.Price)
	}
	if o.ListPrice != 0 {
		original = models.Float(o.ListPrice)
	}
	return price, original
}

// ScrapeURL resolves a product URL through the catalog slug endpoint. The
// slug is the path segment after /p/, or the last path segment for legacy
// URLs.
func (p *Paris) ScrapeURL(ctx context.Context, rawURL string) (models.PriceObservation, error) {
	slug := parisSlug(rawURL)
	if slug == "" {
		return models.PriceObservation{}, apperrors.NewValidationError(
			p.Store(), "url", rawURL, "could not extract product slug")
	}

	var payload []parisProduct
	endpoint := parisSearchURL + slug + "/p"
	if err := p.client.GetJSON(ctx, p.Store(), endpoint, nil, &payload); err != nil {
		return models.PriceObservation{}, err
	}
	if len(payload) == 0 {
		return models.PriceObservation{}, apperrors.NewExtractError(p.Store(), rawURL, "empty catalog response")
	}

	item := payload[0]
	price, original := item.offer()

	return Normalize(models.PriceObservation{
		Store:         p.Store(),
		ProductName:   item.ProductName,
		URL:           rawURL,
		Price:         price,
		OriginalPrice: original,
		SKU:           item.ProductID,
	}), nil
}

// Search resolves a free-text query through the catalog full-text endpoint.
func (p *Paris) Search(ctx context.Context, query string, limit int) ([]models.PriceObservation, error) {
	var payload []parisProduct
	params := url.Values{
		"ft":    {query},
		"_from": {"0"},
		"_to":   {fmt.Sprint(limit - 1)},
	}
	if err := p.client.GetJSON(ctx, p.Store(), parisSearchURL, params, &payload); err != nil {
		return nil, err
	}

	if len(payload) > limit {
		payload = payload[:limit]
	}

	observations := make([]models.PriceObservation, 0, len(payload))
	for _, item := range payload {
		price, original := item.offer()

		name := item.ProductName
		if name == "" {
			name = query
		}

		observations = append(observations, Normalize(models.PriceObservation{
			Store:         p.Store(),
			ProductName:   name,
			URL:           item.Link,
			Price:         price,
			OriginalPrice: original,
			SKU:           item.ProductID,
		}))
	}

	return observations, nil
}

// parisSlug extracts the catalog slug from a product URL.
func parisSlug(rawURL string) string {
	trimmed := strings.TrimRight(rawURL, "/")
	if i := strings.Index(trimmed, "/p/"); i >= 0 {
		rest := trimmed[i+len("/p/"):]
		if j := strings.Index(rest, "/"); j >= 0 {
			rest = rest[:j]
		}
		return rest
	}
	if i := strings.LastIndex(trimmed, "/"); i >= 0 && i+1 < len(trimmed) {
		return trimmed[i+1:]
	}
	return ""
}
