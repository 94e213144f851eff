package news

import (
	"context"
	"fmt"
	"time"

	finnhub "github.com/Finnhub-Stock-API/finnhub-go/v2"
)

// FinnHubClient resolves an entity to its closest listed symbol and uses
// company news as the story source. Suited to deployments that already hold
// a Finnhub key; entities with no listed company simply yield no stories.
type FinnHubClient struct {
	client *finnhub.DefaultApiService
	from   time.Time
	to     time.Time
}

// NewFinnHubClient scopes company-news lookups to the [from, to] span.
func NewFinnHubClient(apiKey string, from, to time.Time) *FinnHubClient {
	cfg := finnhub.NewConfiguration()
	cfg.AddDefaultHeader("X-Finnhub-Token", apiKey)
	client := finnhub.NewAPIClient(cfg).DefaultApi
	return &FinnHubClient{client: client, from: from, to: to}
}

func (c *FinnHubClient) Name() string {
	return "FinnHub"
}

func (c *FinnHubClient) Search(ctx context.Context, entity string) ([]Story, error) {
	lookup, _, err := c.client.SymbolSearch(ctx).Q(entity).Execute()
	if err != nil {
		return nil, fmt.Errorf("finnhub symbol search: %w", err)
	}
	if lookup.Result == nil || len(*lookup.Result) == 0 {
		return nil, nil
	}
	best := (*lookup.Result)[0]
	if best.Symbol == nil || *best.Symbol == "" {
		return nil, nil
	}

	items, _, err := c.client.CompanyNews(ctx).
		Symbol(*best.Symbol).
		From(c.from.Format("2006-01-02")).
		To(c.to.Format("2006-01-02")).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("finnhub company news %s: %w", *best.Symbol, err)
	}

	var stories []Story
	for _, item := range items {
		if item.Headline == nil || *item.Headline == "" || item.Datetime == nil {
			continue
		}
		published := time.Unix(*item.Datetime, 0).UTC()
		stories = append(stories, Story{
			Title: *item.Headline,
			Date:  published.Format("1/2/2006"),
		})
	}
	return stories, nil
}
