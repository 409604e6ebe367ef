package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	apperrors "price-tracker/internal/errors"
)

func TestGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("query") != "taladro" {
			t.Errorf("query param = %q", r.URL.Query().Get("query"))
		}
		if !strings.Contains(r.Header.Get("User-Agent"), "Mozilla") {
			t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
		}
		w.Write([]byte(`{"name":"ok"}`))
	}))
	defer srv.Close()

	var out struct {
		Name string `json:"name"`
	}
	client := NewClient(5 * time.Second)
	err := client.GetJSON(context.Background(), "falabella", srv.URL, url.Values{"query": {"taladro"}}, &out)
	if err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if out.Name != "ok" {
		t.Fatalf("decoded name = %q", out.Name)
	}
}

func TestGetJSON_Non2xxStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	var out struct{}
	err := NewClient(5*time.Second).GetJSON(context.Background(), "paris", srv.URL, nil, &out)

	var ferr *apperrors.FetchError
	if !apperrors.As(err, &ferr) {
		t.Fatalf("err = %v, want FetchError", err)
	}
	if ferr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("StatusCode = %d, want 500", ferr.StatusCode)
	}
	if ferr.Store != "paris" {
		t.Fatalf("Store = %q", ferr.Store)
	}
}

func TestGetJSON_InvalidBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>not json</html>`))
	}))
	defer srv.Close()

	var out struct{}
	err := NewClient(5*time.Second).GetJSON(context.Background(), "sodimac", srv.URL, nil, &out)

	var eerr *apperrors.ExtractError
	if !apperrors.As(err, &eerr) {
		t.Fatalf("err = %v, want ExtractError", err)
	}
}

func TestGetJSON_ConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening anymore

	var out struct{}
	err := NewClient(time.Second).GetJSON(context.Background(), "ripley", srv.URL, nil, &out)

	var ferr *apperrors.FetchError
	if !apperrors.As(err, &ferr) {
		t.Fatalf("err = %v, want FetchError", err)
	}
	if ferr.StatusCode != 0 {
		t.Fatalf("StatusCode = %d, want 0 for transport failure", ferr.StatusCode)
	}
}
