package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
)

func timelinePage(entries ...map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"data": map[string]interface{}{
			"home": map[string]interface{}{
				"home_timeline_urt": map[string]interface{}{
					"instructions": []map[string]interface{}{
						{"entries": entries},
					},
				},
			},
		},
	}
}

func postEntry(id, name, handle, text, createdAt string) map[string]interface{} {
	return map[string]interface{}{
		"entryId": "tweet-" + id,
		"content": map[string]interface{}{
			"itemContent": map[string]interface{}{
				"tweet_results": map[string]interface{}{
					"result": map[string]interface{}{
						"legacy": map[string]interface{}{
							"full_text":  text,
							"created_at": createdAt,
						},
						"core": map[string]interface{}{
							"user_results": map[string]interface{}{
								"result": map[string]interface{}{
									"core": map[string]interface{}{
										"name":        name,
										"screen_name": handle,
									},
								},
							},
						},
					},
				},
			},
		},
	}
}

func cursorEntry(value string) map[string]interface{} {
	return map[string]interface{}{
		"entryId": "cursor-bottom-1",
		"content": map[string]interface{}{
			"value": value,
		},
	}
}

func TestCollectPaginates(t *testing.T) {
	pages := []map[string]interface{}{
		timelinePage(
			postEntry("1", "Jane Doe", "jdoe", "Acme Corp shipped a new chip", "Wed Feb 25 18:30:00 +0000 2026"),
			postEntry("2", "Sam Lee", "slee", "Acme earnings call at 5", "Wed Feb 25 17:00:00 +0000 2026"),
			cursorEntry("cursor-page-2"),
		),
		timelinePage(
			postEntry("3", "Ana Cruz", "acruz", "Rates held steady again", "Wed Feb 25 12:00:00 +0000 2026"),
		),
	}

	var requests int
	var cursors []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Variables map[string]interface{} `json:"variables"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		cursor, _ := body.Variables["cursor"].(string)
		cursors = append(cursors, cursor)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(pages[requests])
		requests++
	}))
	defer srv.Close()

	client := NewClient(Options{
		BaseURL:     srv.URL,
		Credentials: Credentials{QueryID: "q1"},
	})
	client.httpClient = srv.Client()

	posts, err := client.Collect(context.Background())

	assert.Equal(t, nil, err)
	assert.Equal(t, 2, requests)
	assert.Equal(t, []string{"", "cursor-page-2"}, cursors)
	assert.Equal(t, 3, len(posts))

	first := posts[0]
	assert.Equal(t, "Jane Doe", first.AuthorName)
	assert.Equal(t, "jdoe", first.AuthorHandle)
	assert.Equal(t, "Acme Corp shipped a new chip", first.Text)
	assert.Equal(t, time.Date(2026, 2, 25, 18, 30, 0, 0, time.UTC), first.PostedAt)
	assert.Equal(t, "Jane Doe (@jdoe): Acme Corp shipped a new chip", first.Line())
}

func TestCollectStopsAtMaxPosts(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(timelinePage(
			postEntry("1", "Jane Doe", "jdoe", "one", "Wed Feb 25 18:30:00 +0000 2026"),
			postEntry("2", "Jane Doe", "jdoe", "two", "Wed Feb 25 18:29:00 +0000 2026"),
			cursorEntry("cursor-next"),
		))
	}))
	defer srv.Close()

	client := NewClient(Options{
		BaseURL:     srv.URL,
		Credentials: Credentials{QueryID: "q1"},
		MaxPosts:    3,
	})
	client.httpClient = srv.Client()

	posts, err := client.Collect(context.Background())

	assert.Equal(t, nil, err)
	assert.Equal(t, 2, requests)
	assert.Equal(t, 3, len(posts))
}

func TestCollectReturnsPartialResultOnAPIError(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests > 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(timelinePage(
			postEntry("1", "Jane Doe", "jdoe", "still here", "Wed Feb 25 18:30:00 +0000 2026"),
			cursorEntry("cursor-next"),
		))
	}))
	defer srv.Close()

	client := NewClient(Options{
		BaseURL:     srv.URL,
		Credentials: Credentials{QueryID: "q1"},
	})
	client.httpClient = srv.Client()

	posts, err := client.Collect(context.Background())

	assert.Equal(t, nil, err)
	assert.Equal(t, 2, requests)
	assert.Equal(t, 1, len(posts))
	assert.Equal(t, "still here", posts[0].Text)
}

func TestCollectSkipsMalformedEntries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(timelinePage(
			postEntry("1", "Jane Doe", "jdoe", "", "Wed Feb 25 18:30:00 +0000 2026"),
			postEntry("2", "Sam Lee", "slee", "bad clock", "not a timestamp"),
			postEntry("3", "Ana Cruz", "acruz", "good one", "Wed Feb 25 12:00:00 +0000 2026"),
		))
	}))
	defer srv.Close()

	client := NewClient(Options{
		BaseURL:     srv.URL,
		Credentials: Credentials{QueryID: "q1"},
	})
	client.httpClient = srv.Client()

	posts, err := client.Collect(context.Background())

	assert.Equal(t, nil, err)
	assert.Equal(t, 1, len(posts))
	assert.Equal(t, "good one", posts[0].Text)
}

func TestCollectEmptyTimelineIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(timelinePage())
	}))
	defer srv.Close()

	client := NewClient(Options{
		BaseURL:     srv.URL,
		Credentials: Credentials{QueryID: "q1"},
	})
	client.httpClient = srv.Client()

	posts, err := client.Collect(context.Background())

	assert.Equal(t, nil, err)
	assert.Equal(t, 0, len(posts))
}

func TestCollectSendsSessionCredentials(t *testing.T) {
	var gotAuth, gotCSRF string
	var cookieNames []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotCSRF = r.Header.Get("x-csrf-token")
		for _, c := range r.Cookies() {
			cookieNames = append(cookieNames, c.Name)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(timelinePage())
	}))
	defer srv.Close()

	client := NewClient(Options{
		BaseURL: srv.URL,
		Credentials: Credentials{
			AuthToken:         "tok",
			CSRFToken:         "csrf",
			GuestID:           "guest",
			PersonalizationID: "pers",
			BearerToken:       "Bearer abc",
			QueryID:           "q1",
		},
	})
	client.httpClient = srv.Client()

	_, err := client.Collect(context.Background())

	assert.Equal(t, nil, err)
	assert.Equal(t, "Bearer abc", gotAuth)
	assert.Equal(t, "csrf", gotCSRF)
	assert.Equal(t, []string{"auth_token", "ct0", "guest_id", "personalization_id"}, cookieNames)
}
