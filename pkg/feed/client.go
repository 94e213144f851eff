package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL  = "https://x.com/i/api"
	defaultMaxPosts = 200
	pageSize        = 100

	userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
)

// Credentials are the session values the timeline API expects on every
// request, lifted from a logged-in browser session.
type Credentials struct {
	AuthToken         string
	CSRFToken         string
	GuestID           string
	PersonalizationID string
	BearerToken       string
	QueryID           string
}

// Client pages through the latest-first home timeline.
type Client struct {
	baseURL    string
	creds      Credentials
	maxPosts   int
	pageDelay  time.Duration
	httpClient *http.Client
}

type Options struct {
	BaseURL     string
	Credentials Credentials
	// MaxPosts caps how many posts one Collect gathers across pages.
	MaxPosts int
	// PageDelay spaces successive page requests apart.
	PageDelay time.Duration
}

func NewClient(opts Options) *Client {
	c := &Client{
		baseURL:    opts.BaseURL,
		creds:      opts.Credentials,
		maxPosts:   opts.MaxPosts,
		pageDelay:  opts.PageDelay,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	if c.maxPosts <= 0 {
		c.maxPosts = defaultMaxPosts
	}
	return c
}

// Collect pages through the timeline until it has gathered MaxPosts posts or
// the API stops handing back a continuation token. A page answered with a
// non-2xx status ends collection with whatever was gathered so far. An empty
// result is data, not an error.
func (c *Client) Collect(ctx context.Context) ([]Post, error) {
	var posts []Post
	cursor := ""
	for page := 1; len(posts) < c.maxPosts; page++ {
		resp, err := c.fetchPage(ctx, cursor)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			resp.Body.Close()
			slog.Error("feed API error, stopping collection",
				"status", resp.StatusCode, "body", string(body), "page", page)
			break
		}

		var tr timelineResponse
		if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
			resp.Body.Close()
			return nil, fmt.Errorf("feed page decode: %w", err)
		}
		resp.Body.Close()

		pagePosts, next := extractEntries(&tr)
		posts = append(posts, pagePosts...)
		slog.Info("fetched feed page", "page", page, "posts", len(pagePosts), "total", len(posts))

		if next == "" {
			break
		}
		cursor = next
		time.Sleep(c.pageDelay)
	}

	if len(posts) > c.maxPosts {
		posts = posts[:c.maxPosts]
	}
	return posts, nil
}

func (c *Client) fetchPage(ctx context.Context, cursor string) (*http.Response, error) {
	payload, err := json.Marshal(c.pagePayload(cursor))
	if err != nil {
		return nil, fmt.Errorf("feed payload: %w", err)
	}

	url := fmt.Sprintf("%s/graphql/%s/HomeLatestTimeline", c.baseURL, c.creds.QueryID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("feed request: %w", err)
	}

	req.Header.Set("Authorization", c.creds.BearerToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("x-csrf-token", c.creds.CSRFToken)
	req.Header.Set("x-twitter-active-user", "yes")
	req.Header.Set("x-twitter-client-language", "en")
	req.Header.Set("Referer", "https://x.com/home")

	for _, cookie := range []*http.Cookie{
		{Name: "auth_token", Value: c.creds.AuthToken},
		{Name: "ct0", Value: c.creds.CSRFToken},
		{Name: "guest_id", Value: c.creds.GuestID},
		{Name: "personalization_id", Value: c.creds.PersonalizationID},
	} {
		req.AddCookie(cookie)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed page fetch: %w", err)
	}
	return resp, nil
}

func (c *Client) pagePayload(cursor string) map[string]any {
	variables := map[string]any{
		"count":                  pageSize,
		"includePromotedContent": true,
		"latestControlAvailable": true,
		"requestContext":         "launch",
		"seenTweetIds":           []string{},
	}
	if cursor != "" {
		variables["cursor"] = cursor
	}
	return map[string]any{
		"variables": variables,
		"features":  timelineFeatures,
		"queryId":   c.creds.QueryID,
	}
}

// timelineFeatures is the flag set the GraphQL endpoint insists on receiving.
var timelineFeatures = map[string]bool{
	"rweb_video_screen_enabled":                                               false,
	"profile_label_improvements_pcf_label_in_post_enabled":                    true,
	"responsive_web_graphql_exclude_directive_enabled":                        true,
	"responsive_web_graphql_timeline_navigation_enabled":                      true,
	"responsive_web_graphql_skip_user_profile_image_extensions_enabled":       false,
	"creator_subscriptions_tweet_preview_api_enabled":                         true,
	"tweetypie_unmention_optimization_enabled":                                true,
	"responsive_web_edit_tweet_api_enabled":                                   true,
	"graphql_is_translatable_rweb_tweet_is_translatable_enabled":              true,
	"view_counts_everywhere_api_enabled":                                      true,
	"longform_notetweets_consumption_enabled":                                 true,
	"responsive_web_twitter_article_tweet_consumption_enabled":                true,
	"tweet_awards_web_tipping_enabled":                                        false,
	"freedom_of_speech_not_reach_fetch_enabled":                               true,
	"standardized_nudges_misinfo":                                             true,
	"tweet_with_visibility_results_prefer_gql_limited_actions_policy_enabled": true,
	"longform_notetweets_rich_text_read_enabled":                              true,
	"longform_notetweets_inline_media_enabled":                                true,
	"responsive_web_enhance_cards_enabled":                                    false,
}

// extractEntries pulls posts and the bottom continuation token out of one
// timeline page. Posts with no text or an unparsable timestamp are skipped.
func extractEntries(tr *timelineResponse) ([]Post, string) {
	var posts []Post
	next := ""
	for _, instruction := range tr.Data.Home.HomeTimelineURT.Instructions {
		for _, e := range instruction.Entries {
			switch {
			case strings.HasPrefix(e.EntryID, "tweet-"):
				result := e.Content.ItemContent.TweetResults.Result
				if result.Legacy.FullText == "" {
					continue
				}
				postedAt, err := time.Parse(time.RubyDate, result.Legacy.CreatedAt)
				if err != nil {
					slog.Warn("skipping post with unparsable timestamp",
						"entry", e.EntryID, "created_at", result.Legacy.CreatedAt)
					continue
				}
				user := result.Core.UserResults.Result.Core
				posts = append(posts, Post{
					AuthorName:   user.Name,
					AuthorHandle: user.ScreenName,
					Text:         result.Legacy.FullText,
					PostedAt:     postedAt.UTC(),
				})
			case strings.HasPrefix(e.EntryID, "cursor-bottom-"):
				next = e.Content.Value
			}
		}
	}
	return posts, next
}

type timelineResponse struct {
	Data struct {
		Home struct {
			HomeTimelineURT struct {
				Instructions []struct {
					Entries []timelineEntry `json:"entries"`
				} `json:"instructions"`
			} `json:"home_timeline_urt"`
		} `json:"home"`
	} `json:"data"`
}

type timelineEntry struct {
	EntryID string `json:"entryId"`
	Content struct {
		Value       string `json:"value"`
		ItemContent struct {
			TweetResults struct {
				Result struct {
					Legacy struct {
						FullText  string `json:"full_text"`
						CreatedAt string `json:"created_at"`
					} `json:"legacy"`
					Core struct {
						UserResults struct {
							Result struct {
								Core struct {
									Name       string `json:"name"`
									ScreenName string `json:"screen_name"`
								} `json:"core"`
							} `json:"result"`
						} `json:"user_results"`
					} `json:"core"`
				} `json:"result"`
			} `json:"tweet_results"`
		} `json:"itemContent"`
	} `json:"content"`
}
