package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	apperrors "price-tracker/internal/errors"
)

func docFromHTML(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parsing fixture: %v", err)
	}
	return doc
}

func TestTextFromSelectors_OrderedFallback(t *testing.T) {
	doc := docFromHTML(t, `<html><body><h1>Generic Title</h1></body></html>`)

	got := textFromSelectors(doc, []string{"h1.product-title", "h1"})
	if got != "Generic Title" {
		t.Fatalf("got %q, want fallback selector match", got)
	}

	if got := textFromSelectors(doc, []string{".missing"}); got != "" {
		t.Fatalf("got %q, want empty for no match", got)
	}
}

func TestPriceFromSelectors_SkipsUnparseableCandidates(t *testing.T) {
	doc := docFromHTML(t, `<html><body>
		<span class="badge">Oferta</span>
		<span class="price">$12.990</span>
	</body></html>`)

	got := priceFromSelectors(doc, []string{".badge", ".price"})
	if got == nil || *got != 12990 {
		t.Fatalf("got %v, want 12990", got)
	}
}

func TestCollectLinks_DedupAndLimit(t *testing.T) {
	doc := docFromHTML(t, `<html><body>
		<a href="/product/1">a</a>
		<a href="/product/1">dup</a>
		<a href="/product/2">b</a>
		<a href="/product/3">c</a>
	</body></html>`)

	base, _ := url.Parse("https://example.cl/search")
	links := collectLinks(doc, "a", base, 2)

	if len(links) != 2 {
		t.Fatalf("got %d links, want 2", len(links))
	}
	if links[0] != "https://example.cl/product/1" || links[1] != "https://example.cl/product/2" {
		t.Fatalf("links = %v", links)
	}
}

func TestHTTPPageFetcher_FetchPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><h1>Producto</h1></body></html>`))
	}))
	defer srv.Close()

	f := NewHTTPPageFetcher(5*time.Second, 0, 0)
	doc, err := f.FetchPage(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if doc.Find("h1").Text() != "Producto" {
		t.Fatalf("h1 = %q", doc.Find("h1").Text())
	}
}

func TestHTTPPageFetcher_RejectsRelativeURL(t *testing.T) {
	f := NewHTTPPageFetcher(time.Second, 0, 0)
	_, err := f.FetchPage(context.Background(), "/product/1")

	var verr *apperrors.ValidationError
	if !apperrors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestHTTPPageFetcher_HostPoliteness(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html></html>`))
	}))
	defer srv.Close()

	gap := 60 * time.Millisecond
	f := NewHTTPPageFetcher(5*time.Second, 0, gap)

	start := time.Now()
	for i := 0; i < 2; i++ {
		if _, err := f.FetchPage(context.Background(), srv.URL); err != nil {
			t.Fatalf("FetchPage #%d: %v", i+1, err)
		}
	}
	if elapsed := time.Since(start); elapsed < gap {
		t.Fatalf("two fetches to one host took %v, want at least %v apart", elapsed, gap)
	}
}

func TestHTTPPageFetcher_SettleDelayHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html></html>`))
	}))
	defer srv.Close()

	f := NewHTTPPageFetcher(5*time.Second, time.Minute, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := f.FetchPage(ctx, srv.URL)
	if err == nil {
		t.Fatal("expected error from cancelled settle wait")
	}
}
