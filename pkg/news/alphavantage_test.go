package news

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
)

func newAlphaVantageServer(matches []map[string]interface{}, feed []map[string]interface{}) (*httptest.Server, *[]url.Values) {
	var calls []url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.URL.Query())
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("function") {
		case "SYMBOL_SEARCH":
			json.NewEncoder(w).Encode(map[string]interface{}{"bestMatches": matches})
		case "NEWS_SENTIMENT":
			json.NewEncoder(w).Encode(map[string]interface{}{"feed": feed})
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	return srv, &calls
}

func newTestAlphaVantage(srv *httptest.Server) *AlphaVantageClient {
	return &AlphaVantageClient{
		apiKey:     "test-key",
		baseURL:    srv.URL,
		from:       time.Date(2026, 2, 24, 0, 0, 0, 0, time.UTC),
		to:         time.Date(2026, 2, 25, 0, 0, 0, 0, time.UTC),
		httpClient: srv.Client(),
	}
}

func TestAlphaVantageSearch(t *testing.T) {
	matches := []map[string]interface{}{
		{"1. symbol": "ACME", "2. name": "Acme Corp"},
		{"1. symbol": "ACMX", "2. name": "Acme Holdings"},
	}
	feed := []map[string]interface{}{
		{"title": "Acme beats estimates", "time_published": "20260224T213000"},
		{"title": "Acme expands fab capacity", "time_published": "20260224T090000"},
		{"title": "bad timestamp, skipped", "time_published": "yesterday"},
	}

	srv, calls := newAlphaVantageServer(matches, feed)
	defer srv.Close()

	stories, err := newTestAlphaVantage(srv).Search(context.Background(), "Acme Corp")

	assert.Equal(t, nil, err)
	assert.Equal(t, 2, len(stories))
	assert.Equal(t, "Acme beats estimates", stories[0].Title)
	assert.Equal(t, "2/24/2026", stories[0].Date)
	assert.Equal(t, "Acme expands fab capacity", stories[1].Title)

	assert.Equal(t, 2, len(*calls))
	search, news := (*calls)[0], (*calls)[1]
	assert.Equal(t, "Acme Corp", search.Get("keywords"))
	assert.Equal(t, "ACME", news.Get("tickers"))
	assert.Equal(t, "20260224T0000", news.Get("time_from"))
	assert.Equal(t, "20260225T0000", news.Get("time_to"))
}

func TestAlphaVantageSearchUnknownEntity(t *testing.T) {
	srv, calls := newAlphaVantageServer(nil, nil)
	defer srv.Close()

	stories, err := newTestAlphaVantage(srv).Search(context.Background(), "Nobody Famous")

	assert.Equal(t, nil, err)
	assert.Equal(t, 0, len(stories))
	assert.Equal(t, 1, len(*calls))
}

func TestAlphaVantageSearchErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestAlphaVantage(srv).Search(context.Background(), "Acme Corp")

	assert.NotEqual(t, nil, err)
}
