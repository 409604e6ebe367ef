package scraper

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	apperrors "price-tracker/internal/errors"
)

// Request headers sent to every upstream. The desktop user agent and the
// es-CL locale keep the sources serving the same payloads a Chilean
// browser session would see.
var defaultHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Accept":          "application/json, text/plain, */*",
	"Accept-Language": "es-CL,es;q=0.9",
}

// Client fetches JSON payloads from store APIs.
type Client struct {
	http *http.Client
}

// NewClient creates a JSON API client with the given per-call timeout.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		http: &http.Client{
			Timeout: timeout,
		},
	}
}

// GetJSON performs a GET against rawURL with optional query parameters and
// decodes the JSON response into out. Connection failures, timeouts and
// non-2xx statuses surface as FetchError; an unparseable body surfaces as
// ExtractError.
func (c *Client) GetJSON(ctx context.Context, store, rawURL string, params url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return apperrors.NewValidationError(store, "url", rawURL, err.Error())
	}

	if len(params) > 0 {
		q := req.URL.Query()
		for key, values := range params {
			for _, v := range values {
				q.Add(key, v)
			}
		}
		req.URL.RawQuery = q.Encode()
	}

	for key, value := range defaultHeaders {
		req.Header.Set(key, value)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.NewFetchError(store, rawURL, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apperrors.NewFetchError(store, rawURL, resp.StatusCode, nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.NewExtractError(store, rawURL, "invalid JSON response: "+err.Error())
	}

	return nil
}
