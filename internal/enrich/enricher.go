// Package enrich produces one news summary per extracted entity: grounded in
// recent headlines when the model judges them related to the feed chatter,
// from the posts alone otherwise.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"buzzdigest/internal/cache"
	"buzzdigest/internal/model"
	"buzzdigest/internal/retry"
	"buzzdigest/pkg/feed"
	"buzzdigest/pkg/llm"
	"buzzdigest/pkg/news"
)

const (
	maxHeadlines    = 10
	defaultAttempts = 2

	// headlineDateLayout matches the month/day/year date text news search
	// results carry; anything after the first comma is ignored.
	headlineDateLayout = "1/2/2006"
)

// ErrBadVerdict marks a relevance reply that was neither RELEVANT nor
// IRRELEVANT.
var ErrBadVerdict = errors.New("unexpected relevance verdict")

// Enricher runs the enrichment sequence for one entity at a time. Failures
// are scoped to the entity; the caller decides what an absent summary means.
type Enricher struct {
	llm      llm.Client
	provider news.Provider
	cache    *cache.Cache
	opts     Options
}

type Options struct {
	// PrimaryModel handles calls with few matched posts. EconomyModel takes
	// over once ModelThreshold posts match, keeping large-context calls cheap.
	PrimaryModel   string
	EconomyModel   string
	ModelThreshold int
	// Attempts bounds the whole per-entity unit, first try included.
	Attempts int
	Delay    time.Duration
}

func New(client llm.Client, provider news.Provider, c *cache.Cache, opts Options) *Enricher {
	if opts.Attempts <= 0 {
		opts.Attempts = defaultAttempts
	}
	if opts.ModelThreshold <= 0 {
		opts.ModelThreshold = 50
	}
	return &Enricher{llm: client, provider: provider, cache: c, opts: opts}
}

// Summarize returns the entity's summary for the day, retrying the whole
// sequence once on any failure. Story lookups are cached per (day, entity),
// so a retry or a rerun never repeats a search that already returned data.
func (e *Enricher) Summarize(ctx context.Context, day model.Date, entity string, posts []feed.Post) (string, error) {
	cfg := retry.Config{Attempts: e.opts.Attempts, Delay: e.opts.Delay}
	return retry.Do(ctx, cfg, "enrich "+entity, func(ctx context.Context, _ string) (string, error) {
		return e.summarizeOnce(ctx, day, entity, posts)
	})
}

func (e *Enricher) summarizeOnce(ctx context.Context, day model.Date, entity string, posts []feed.Post) (string, error) {
	stories, err := e.lookupStories(ctx, day, entity)
	if err != nil {
		return "", fmt.Errorf("story lookup for %s: %w", entity, err)
	}
	headlines := recentHeadlines(stories, day.Window(), maxHeadlines)

	matched := MatchPosts(entity, posts)
	modelName := e.modelFor(len(matched))

	grounded := false
	if len(headlines) > 0 {
		grounded, err = e.classifyRelevance(ctx, modelName, entity, headlines, matched)
		if err != nil {
			return "", err
		}
	} else {
		slog.Info("no recent headlines", "entity", entity, "provider", e.provider.Name())
	}

	prompt := ungroundedPrompt(entity, matched)
	if grounded {
		prompt = groundedPrompt(entity, headlines, matched)
	}

	slog.Info("summarizing entity",
		"entity", entity, "grounded", grounded, "matched_posts", len(matched), "model", modelName)

	summary, err := e.llm.Complete(ctx, llm.Request{
		Model:    modelName,
		Messages: []llm.Message{{Role: llm.RoleUser, Content: prompt}},
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(summary), nil
}

func (e *Enricher) lookupStories(ctx context.Context, day model.Date, entity string) ([]news.Story, error) {
	return cache.GetOrCompute(ctx, e.cache, day, model.OpNews, cache.Fingerprint(entity),
		func(ctx context.Context) ([]news.Story, error) {
			slog.Info("searching stories", "entity", entity, "provider", e.provider.Name())
			return e.provider.Search(ctx, entity)
		},
		func(stories []news.Story) bool { return len(stories) > 0 },
	)
}

// classifyRelevance forces a binary answer on whether the headlines line up
// with what the posts are talking about.
func (e *Enricher) classifyRelevance(ctx context.Context, modelName, entity string, headlines []string, posts []feed.Post) (bool, error) {
	reply, err := e.llm.Complete(ctx, llm.Request{
		Model:    modelName,
		Messages: []llm.Message{{Role: llm.RoleUser, Content: relevancePrompt(entity, headlines, posts)}},
	})
	if err != nil {
		return false, err
	}

	verdict := strings.ToUpper(strings.TrimSpace(reply))
	slog.Info("relevance verdict", "entity", entity, "verdict", verdict)
	switch verdict {
	case "RELEVANT":
		return true, nil
	case "IRRELEVANT":
		return false, nil
	default:
		return false, fmt.Errorf("%w: %q", ErrBadVerdict, reply)
	}
}

func (e *Enricher) modelFor(matchedPosts int) string {
	if matchedPosts < e.opts.ModelThreshold {
		return e.opts.PrimaryModel
	}
	return e.opts.EconomyModel
}

// recentHeadlines keeps story titles dated inside the window, capped at max.
// Stories whose date text does not parse are skipped.
func recentHeadlines(stories []news.Story, win model.Window, max int) []string {
	headlines := make([]string, 0, max)
	for _, story := range stories {
		dateText := story.Date
		if i := strings.Index(dateText, ","); i >= 0 {
			dateText = dateText[:i]
		}
		published, err := time.Parse(headlineDateLayout, strings.TrimSpace(dateText))
		if err != nil {
			continue
		}
		if !win.Contains(published) {
			continue
		}
		headlines = append(headlines, story.Title)
		if len(headlines) == max {
			break
		}
	}
	return headlines
}

// MatchPosts keeps the posts whose text contains any whitespace-delimited
// token of the entity name, case-insensitively. Deliberately permissive: for
// "Jane Doe", a mention of either "jane" or "doe" counts.
func MatchPosts(entity string, posts []feed.Post) []feed.Post {
	tokens := strings.Fields(strings.ToLower(entity))
	matched := make([]feed.Post, 0, len(posts))
	for _, p := range posts {
		text := strings.ToLower(p.Text)
		for _, token := range tokens {
			if strings.Contains(text, token) {
				matched = append(matched, p)
				break
			}
		}
	}
	return matched
}

func relevancePrompt(entity string, headlines []string, posts []feed.Post) string {
	return fmt.Sprintf(`Are any of the following headlines related to the posts about %s? If not, respond saying that this is not related.

IMPORTANT: RESPOND WITH A SINGLE WORD, EITHER "RELEVANT" OR "IRRELEVANT". DO NOT SAY ANYTHING ADDITIONAL.

Headlines:
%s

Posts:
%s`, entity, headlineLines(headlines), feed.Lines(posts))
}

func groundedPrompt(entity string, headlines []string, posts []feed.Post) string {
	return fmt.Sprintf(`You are a friend explaining to me current events. Your output is intended for people reading a summary of the latest events.
Summarize the main news around %s as referenced in the posts below.
When you give your answer, DO NOT say anything like "based on the posts". You should start your response with "%s".

I will provide a list of headlines for additional context, and a bunch of posts.
Many of the posts may be unrelated to %s or the headlines. Please ONLY look at the posts related to %s.
ONLY include information from headlines that could plausibly relate to the posts. If the headlines look unrelated,
then just try to guess what's going on based on the posts alone.

Headlines:
%s

Posts:
%s`, entity, entity, entity, entity, headlineLines(headlines), feed.Lines(posts))
}

func ungroundedPrompt(entity string, posts []feed.Post) string {
	return fmt.Sprintf(`You are a friend explaining to me current events. Your output is intended for people reading a summary of the latest events.
Summarize the key announcement or controversy around %s as referenced in the posts below.
When you give your answer, DO NOT say anything like "based on the posts". You should start the first sentence of your response with "%s".
Posts can be jokes or sarcasm; tell genuine news signal apart from banter and summarize only the news.
Many of the posts may be unrelated to %s. Please ONLY look at the posts related to %s.

Posts:
%s`, entity, entity, entity, entity, feed.Lines(posts))
}

func headlineLines(headlines []string) string {
	lines := make([]string, len(headlines))
	for i, h := range headlines {
		lines[i] = "- " + h
	}
	return strings.Join(lines, "\n")
}
