package scraper

import (
	"context"
	"fmt"
	"net/url"
	"regexp"

	apperrors "price-tracker/internal/errors"
	"price-tracker/internal/models"
)

var (
	sodimacSearchURL  = "https://www.sodimac.cl/sodimac-cl/search/results"
	sodimacProductURL = "https://www.sodimac.cl/sodimac-cl/product/%s/json"
)

var sodimacProductRe = regexp.MustCompile(`/product/([^/]+)`)

// Sodimac resolves prices through the sodimac.cl JSON endpoints.
type Sodimac struct {
	client *Client
}

// NewSodimac creates the Sodimac adapter.
func NewSodimac(client *Client) *Sodimac {
	return &Sodimac{client: client}
}

// Store returns the adapter's store key.
func (s *Sodimac) Store() string {
	return models.StoreSodimac
}

type sodimacPrices struct {
	InternetPrice interface{} `json:"internetPrice"`
	NormalPrice   interface{} `json:"normalPrice"`
}

// resolve prefers the internet price; the normal price only counts as the
// original when a separate internet price exists, otherwise it is the
// selling price itself.
func (sp sodimacPrices) resolve() (price, original *float64) {
	internet := numeric(sp.InternetPrice)
	normal := numeric(sp.NormalPrice)
	if internet != nil {
		return internet, normal
	}
	return normal, nil
}

// ScrapeURL resolves a product URL through the product JSON endpoint.
func (s *Sodimac) ScrapeURL(ctx context.Context, rawURL string) (models.PriceObservation, error) {
	match := sodimacProductRe.FindStringSubmatch(rawURL)
	if match == nil {
		return models.PriceObservation{}, apperrors.NewValidationError(
			s.Store(), "url", rawURL, "missing /product/<id> segment")
	}
	pid := match[1]

	var payload struct {
		Name   string        `json:"name"`
		Prices sodimacPrices `json:"prices"`
	}
	endpoint := fmt.Sprintf(sodimacProductURL, pid)
	if err := s.client.GetJSON(ctx, s.Store(), endpoint, nil, &payload); err != nil {
		return models.PriceObservation{}, err
	}

	price, original := payload.Prices.resolve()

	return Normalize(models.PriceObservation{
		Store:         s.Store(),
		ProductName:   payload.Name,
		URL:           rawURL,
		Price:         price,
		OriginalPrice: original,
		SKU:           pid,
	}), nil
}

// Search resolves a free-text query through the search results endpoint.
func (s *Sodimac) Search(ctx context.Context, query string, limit int) ([]models.PriceObservation, error) {
	var payload struct {
		Data struct {
			SearchResults struct {
				Resultsets []struct {
					Results []struct {
						ID     string        `json:"id"`
						Name   string        `json:"name"`
						Prices sodimacPrices `json:"prices"`
					} `json:"results"`
				} `json:"resultsets"`
			} `json:"searchResults"`
		} `json:"data"`
	}
	params := url.Values{
		"Ntt":    {query},
		"No":     {"0"},
		"Nrpp":   {fmt.Sprint(limit)},
		"sortBy": {"Default"},
		"v":      {"json"},
	}
	if err := s.client.GetJSON(ctx, s.Store(), sodimacSearchURL, params, &payload); err != nil {
		return nil, err
	}

	sets := payload.Data.SearchResults.Resultsets
	if len(sets) == 0 {
		return nil, nil
	}

	results := sets[0].Results
	if len(results) > limit {
		results = results[:limit]
	}

	observations := make([]models.PriceObservation, 0, len(results))
	for _, item := range results {
		price, original := item.Prices.resolve()

		productURL := ""
		if item.ID != "" {
			productURL = "https://www.sodimac.cl/sodimac-cl/product/" + item.ID
		}

		name := item.Name
		if name == "" {
			name = query
		}

		observations = append(observations, Normalize(models.PriceObservation{
			Store:         s.Store(),
			ProductName:   name,
			URL:           productURL,
			Price:         price,
			OriginalPrice: original,
			SKU:           item.ID,
		}))
	}

	return observations, nil
}
