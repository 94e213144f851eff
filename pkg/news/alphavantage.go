package news

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// avTimeLayout is the timestamp form NEWS_SENTIMENT takes for its range
// parameters; published times come back with seconds appended.
const avTimeLayout = "20060102T1504"

// AlphaVantageClient resolves an entity to its best-matching symbol and reads
// that symbol's news sentiment feed. Entities with no listed company simply
// yield no stories.
type AlphaVantageClient struct {
	apiKey     string
	baseURL    string
	from       time.Time
	to         time.Time
	httpClient *http.Client
}

// NewAlphaVantageClient scopes news lookups to the [from, to] span.
func NewAlphaVantageClient(apiKey string, from, to time.Time) *AlphaVantageClient {
	return &AlphaVantageClient{
		apiKey:     apiKey,
		baseURL:    "https://www.alphavantage.co/query",
		from:       from,
		to:         to,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *AlphaVantageClient) Name() string {
	return "AlphaVantage"
}

func (c *AlphaVantageClient) Search(ctx context.Context, entity string) ([]Story, error) {
	symbol, err := c.bestSymbol(ctx, entity)
	if err != nil {
		return nil, err
	}
	if symbol == "" {
		return nil, nil
	}

	params := url.Values{}
	params.Set("function", "NEWS_SENTIMENT")
	params.Set("tickers", symbol)
	params.Set("time_from", c.from.Format(avTimeLayout))
	params.Set("time_to", c.to.Format(avTimeLayout))
	params.Set("sort", "LATEST")
	params.Set("apikey", c.apiKey)

	var raw avNewsResponse
	if err := c.get(ctx, params, &raw); err != nil {
		return nil, fmt.Errorf("alphavantage news %s: %w", symbol, err)
	}

	var stories []Story
	for _, item := range raw.Feed {
		if item.Title == "" {
			continue
		}
		published, err := time.Parse("20060102T150405", item.TimePublished)
		if err != nil {
			continue
		}
		stories = append(stories, Story{
			Title: item.Title,
			Date:  published.Format("1/2/2006"),
		})
	}
	return stories, nil
}

func (c *AlphaVantageClient) bestSymbol(ctx context.Context, entity string) (string, error) {
	params := url.Values{}
	params.Set("function", "SYMBOL_SEARCH")
	params.Set("keywords", entity)
	params.Set("apikey", c.apiKey)

	var raw avSearchResponse
	if err := c.get(ctx, params, &raw); err != nil {
		return "", fmt.Errorf("alphavantage symbol search: %w", err)
	}
	if len(raw.BestMatches) == 0 {
		return "", nil
	}
	return raw.BestMatches[0].Symbol, nil
}

func (c *AlphaVantageClient) get(ctx context.Context, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type avSearchResponse struct {
	BestMatches []avMatch `json:"bestMatches"`
}

type avMatch struct {
	Symbol string `json:"1. symbol"`
}

type avNewsResponse struct {
	Feed []avFeedItem `json:"feed"`
}

type avFeedItem struct {
	Title         string `json:"title"`
	TimePublished string `json:"time_published"`
}
