package scraper

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	apperrors "price-tracker/internal/errors"
)

// PageFetcher is the "fetch page" primitive for sources that need rendered
// DOM access. A browser-driver implementation can be swapped in behind
// this interface; the adapters only ever see the resulting document.
type PageFetcher interface {
	FetchPage(ctx context.Context, pageURL string) (*goquery.Document, error)
}

// HTTPPageFetcher fetches pages over plain HTTP. It applies a settle delay
// after each load and enforces a minimum gap between consecutive fetches
// against the same host, matching what the upstreams tolerate without
// triggering anti-automation defenses.
type HTTPPageFetcher struct {
	client      *http.Client
	settleDelay time.Duration
	hostDelay   time.Duration

	mu        sync.Mutex
	lastFetch map[string]time.Time
}

// NewHTTPPageFetcher creates a page fetcher with the given navigation
// timeout, settle delay and per-host politeness gap.
func NewHTTPPageFetcher(timeout, settleDelay, hostDelay time.Duration) *HTTPPageFetcher {
	return &HTTPPageFetcher{
		client: &http.Client{
			Timeout: timeout,
		},
		settleDelay: settleDelay,
		hostDelay:   hostDelay,
		lastFetch:   make(map[string]time.Time),
	}
}

// FetchPage retrieves a page and parses it into a queryable document.
func (f *HTTPPageFetcher) FetchPage(ctx context.Context, pageURL string) (*goquery.Document, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil || parsed.Host == "" {
		return nil, apperrors.NewValidationError("", "url", pageURL, "not a valid absolute URL")
	}

	if err := f.waitForHost(ctx, parsed.Host); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, apperrors.NewValidationError("", "url", pageURL, err.Error())
	}
	for key, value := range defaultHeaders {
		req.Header.Set(key, value)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, apperrors.NewFetchError("", pageURL, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperrors.NewFetchError("", pageURL, resp.StatusCode, nil)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, apperrors.NewExtractError("", pageURL, "parsing page: "+err.Error())
	}

	if f.settleDelay > 0 {
		select {
		case <-time.After(f.settleDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return doc, nil
}

// waitForHost sleeps until at least hostDelay has passed since the last
// fetch against the same host.
func (f *HTTPPageFetcher) waitForHost(ctx context.Context, host string) error {
	if f.hostDelay <= 0 {
		return nil
	}

	f.mu.Lock()
	last, ok := f.lastFetch[host]
	now := time.Now()
	wait := time.Duration(0)
	if ok {
		if elapsed := now.Sub(last); elapsed < f.hostDelay {
			wait = f.hostDelay - elapsed
		}
	}
	f.lastFetch[host] = now.Add(wait)
	f.mu.Unlock()

	if wait > 0 {
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// textFromSelectors tries each selector in order and returns the first
// non-empty text it finds. Upstream markup varies by product category, so
// every page adapter carries an ordered candidate list.
func textFromSelectors(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		text := strings.TrimSpace(doc.Find(sel).First().Text())
		if text != "" {
			return text
		}
	}
	return ""
}

// priceFromSelectors tries each selector in order and returns the first
// candidate that parses to a non-zero price.
func priceFromSelectors(doc *goquery.Document, selectors []string) *float64 {
	for _, sel := range selectors {
		text := strings.TrimSpace(doc.Find(sel).First().Text())
		if text == "" {
			continue
		}
		if price := ParsePrice(text); price != nil {
			return price
		}
	}
	return nil
}

// collectLinks gathers unique absolute hrefs matched by selector, up to
// limit, preserving document order.
func collectLinks(doc *goquery.Document, selector string, base *url.URL, limit int) []string {
	seen := make(map[string]bool)
	var links []string

	doc.Find(selector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return true
		}
		if parsed, err := url.Parse(href); err == nil && base != nil {
			href = base.ResolveReference(parsed).String()
		}
		if seen[href] {
			return true
		}
		seen[href] = true
		links = append(links, href)
		return len(links) < limit
	})

	return links
}
