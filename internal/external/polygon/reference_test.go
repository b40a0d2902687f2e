package polygon

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestTickerDetails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/reference/tickers/NVDA" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"status": "OK",
			"results": {
				"ticker": "NVDA",
				"name": "NVIDIA Corp",
				"description": "NVIDIA designs GPUs and SoCs."
			}
		}`))
	}))
	defer server.Close()

	client := testClient(server.URL)
	meta, err := client.TickerDetails(context.Background(), "NVDA")
	if err != nil {
		t.Fatalf("TickerDetails failed: %v", err)
	}

	if meta.Symbol != "NVDA" {
		t.Errorf("Symbol = %s, want NVDA", meta.Symbol)
	}
	if meta.Name != "NVIDIA Corp" {
		t.Errorf("Name = %s, want NVIDIA Corp", meta.Name)
	}
	if meta.Description == "" {
		t.Error("Expected non-empty description")
	}
	if meta.UpdatedAt.IsZero() {
		t.Error("Expected UpdatedAt to be set")
	}
}

func TestTickerDetails_Unknown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status": "OK", "results": {}}`))
	}))
	defer server.Close()

	client := testClient(server.URL)
	_, err := client.TickerDetails(context.Background(), "ZZZZ")
	if !errors.Is(err, ErrNoResults) {
		t.Fatalf("Expected ErrNoResults, got %v", err)
	}
}

func TestRecentNews(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/reference/news" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("ticker") != "DECK" {
			t.Errorf("ticker = %s, want DECK", q.Get("ticker"))
		}
		if q.Get("limit") != "5" {
			t.Errorf("limit = %s, want 5", q.Get("limit"))
		}
		if q.Get("order") != "desc" || q.Get("sort") != "published_utc" {
			t.Error("Expected order=desc and sort=published_utc")
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"status": "OK",
			"results": [
				{"title": "Deckers beats estimates", "article_url": "https://example.com/a", "published_utc": "2025-08-20T13:00:00Z"},
				{"title": "Broken timestamp story", "article_url": "https://example.com/b", "published_utc": "yesterday"},
				{"title": "HOKA momentum continues", "article_url": "https://example.com/c", "published_utc": "2025-08-18T09:30:00Z"}
			]
		}`))
	}))
	defer server.Close()

	client := testClient(server.URL)
	items, err := client.RecentNews(context.Background(), "DECK", 5)
	if err != nil {
		t.Fatalf("RecentNews failed: %v", err)
	}

	// The unparseable story is skipped
	if len(items) != 2 {
		t.Fatalf("Expected 2 stories, got %d", len(items))
	}

	first := items[0]
	if first.Symbol != "DECK" {
		t.Errorf("Symbol = %s, want DECK", first.Symbol)
	}
	if first.Headline != "Deckers beats estimates" {
		t.Errorf("Headline = %q", first.Headline)
	}
	want := time.Date(2025, 8, 20, 13, 0, 0, 0, time.UTC)
	if !first.PublishedUTC.Equal(want) {
		t.Errorf("PublishedUTC = %s, want %s", first.PublishedUTC, want)
	}
}
