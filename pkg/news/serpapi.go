package news

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// SerpAPIClient queries the Google News engine through SerpApi. Results
// arrive either as flat entries or grouped under a parent story; both carry
// a title and a date string in month/day/year form.
type SerpAPIClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewSerpAPIClient(apiKey string) *SerpAPIClient {
	return &SerpAPIClient{
		apiKey:     apiKey,
		baseURL:    "https://serpapi.com/search",
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *SerpAPIClient) Name() string {
	return "SerpApi"
}

func (c *SerpAPIClient) Search(ctx context.Context, entity string) ([]Story, error) {
	params := url.Values{}
	params.Set("engine", "google_news")
	params.Set("q", entity)
	params.Set("hl", "en")
	params.Set("gl", "us")
	params.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("serpapi request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("serpapi search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("serpapi search: status %d", resp.StatusCode)
	}

	var raw serpResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("serpapi decode: %w", err)
	}

	var stories []Story
	for _, result := range raw.NewsResults {
		if result.Title != "" {
			stories = append(stories, Story{Title: result.Title, Date: result.Date})
		}
		for _, nested := range result.Stories {
			if nested.Title != "" {
				stories = append(stories, Story{Title: nested.Title, Date: nested.Date})
			}
		}
	}
	return stories, nil
}

type serpResponse struct {
	NewsResults []serpResult `json:"news_results"`
}

type serpResult struct {
	Title   string       `json:"title"`
	Date    string       `json:"date"`
	Stories []serpResult `json:"stories"`
}
