// Package run sequences one daily digest run: collect posts, extract
// entities, enrich each, persist the digest.
package run

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"buzzdigest/internal/cache"
	"buzzdigest/internal/model"
	"buzzdigest/internal/retry"
	"buzzdigest/pkg/feed"
	"buzzdigest/pkg/llm"
)

const (
	defaultCollectAttempts = 2

	// shrinkBy is how many of the oldest posts get dropped when the
	// completion service rejects the extraction input as too large.
	shrinkBy = 30
)

// Collector gathers the raw posts for a run.
type Collector interface {
	Collect(ctx context.Context) ([]feed.Post, error)
}

// Extractor names the day's top entities.
type Extractor interface {
	Extract(ctx context.Context, posts []feed.Post) ([]string, error)
}

// Summarizer produces one entity's summary.
type Summarizer interface {
	Summarize(ctx context.Context, day model.Date, entity string, posts []feed.Post) (string, error)
}

// Recorder archives finished invocations. Optional.
type Recorder interface {
	Save(run *model.Run) error
}

// Runner drives the pipeline. The digest itself is written through the
// result cache, so invoking the same date twice returns the stored digest
// without touching any external service.
type Runner struct {
	collector  Collector
	extractor  Extractor
	summarizer Summarizer
	cache      *cache.Cache
	recorder   Recorder
	opts       Options
}

type Options struct {
	CollectAttempts int
	RetryDelay      time.Duration
}

func New(collector Collector, extractor Extractor, summarizer Summarizer, c *cache.Cache, recorder Recorder, opts Options) *Runner {
	if opts.CollectAttempts <= 0 {
		opts.CollectAttempts = defaultCollectAttempts
	}
	return &Runner{
		collector:  collector,
		extractor:  extractor,
		summarizer: summarizer,
		cache:      c,
		recorder:   recorder,
		opts:       opts,
	}
}

// Report is what a finished run hands back: where the digest landed and what
// it covers.
type Report struct {
	Status     string   `json:"status"`
	Date       string   `json:"date"`
	SummaryKey string   `json:"summary_key"`
	Entities   []string `json:"entities"`
}

// ResolveDate turns the optional CLI argument into a run date: empty means
// today UTC, anything else must be YYYY-MM-DD.
func ResolveDate(arg string) (model.Date, error) {
	if arg == "" {
		return model.Today(), nil
	}
	return model.ParseDate(arg)
}

// Run produces and persists the digest for the given date.
func (r *Runner) Run(ctx context.Context, day model.Date) (Report, error) {
	digest, err := cache.GetOrCompute(ctx, r.cache, day, model.OpSummary, "",
		func(ctx context.Context) (model.Digest, error) {
			return r.assemble(ctx, day)
		},
		nil, // a finished digest is always worth keeping
	)
	if err != nil {
		r.record(day, model.RunStatusFailed, "", 0)
		return Report{}, err
	}

	entities := make([]string, 0, len(digest.LatestNews))
	for entity := range digest.LatestNews {
		entities = append(entities, entity)
	}
	sort.Strings(entities)

	key := cache.Key(day, model.OpSummary, "")
	r.record(day, model.RunStatusSuccess, key, len(entities))
	return Report{
		Status:     model.RunStatusSuccess,
		Date:       day.String(),
		SummaryKey: key,
		Entities:   entities,
	}, nil
}

func (r *Runner) assemble(ctx context.Context, day model.Date) (model.Digest, error) {
	posts, err := r.collectPosts(ctx, day)
	if err != nil {
		return model.Digest{}, fmt.Errorf("collecting posts: %w", err)
	}

	items := postsInWindow(posts, day.Window())
	slog.Info("collected posts", "date", day.String(), "fetched", len(posts), "in_window", len(items))
	if len(items) == 0 {
		return model.Digest{}, fmt.Errorf("no posts in the 24h window ending %s", day)
	}

	entities, err := r.extractEntities(ctx, items)
	if err != nil {
		return model.Digest{}, fmt.Errorf("extracting entities: %w", err)
	}

	latest := make(map[string]*string, len(entities))
	for _, entity := range entities {
		summary, err := r.summarizer.Summarize(ctx, day, entity, items)
		if err != nil {
			slog.Warn("entity summary failed, leaving it absent", "entity", entity, "error", err)
			latest[entity] = nil
			continue
		}
		s := summary
		latest[entity] = &s
	}

	return model.Digest{
		Date:        day.String(),
		GeneratedAt: time.Now().UTC(),
		LatestNews:  latest,
	}, nil
}

// collectPosts fetches the feed through the cache: a rerun the same day
// reuses the stored posts, and an empty fetch is never stored so a later
// invocation tries again.
func (r *Runner) collectPosts(ctx context.Context, day model.Date) ([]feed.Post, error) {
	return cache.GetOrCompute(ctx, r.cache, day, model.OpPosts, "",
		func(ctx context.Context) ([]feed.Post, error) {
			cfg := retry.Config{Attempts: r.opts.CollectAttempts, Delay: r.opts.RetryDelay}
			return retry.Do(ctx, cfg, "feed collection", func(ctx context.Context, _ string) ([]feed.Post, error) {
				return r.collector.Collect(ctx)
			})
		},
		func(posts []feed.Post) bool { return len(posts) > 0 },
	)
}

// extractEntities runs the extraction loop, with a single shrink-and-retry
// recovery when the completion service rejects the input as too large.
func (r *Runner) extractEntities(ctx context.Context, posts []feed.Post) ([]string, error) {
	entities, err := r.extractor.Extract(ctx, posts)
	if err == nil {
		return entities, nil
	}
	if !errors.Is(err, llm.ErrRejected) {
		return nil, err
	}

	slog.Warn("extraction input rejected, dropping oldest posts",
		"drop", shrinkBy, "posts", len(posts))
	return r.extractor.Extract(ctx, dropOldest(posts, shrinkBy))
}

func dropOldest(posts []feed.Post, n int) []feed.Post {
	if n >= len(posts) {
		return []feed.Post{}
	}
	sorted := make([]feed.Post, len(posts))
	copy(sorted, posts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].PostedAt.After(sorted[j].PostedAt) })
	return sorted[:len(sorted)-n]
}

func postsInWindow(posts []feed.Post, win model.Window) []feed.Post {
	out := make([]feed.Post, 0, len(posts))
	for _, p := range posts {
		if win.Contains(p.PostedAt) {
			out = append(out, p)
		}
	}
	return out
}

func (r *Runner) record(day model.Date, status, key string, entityCount int) {
	if r.recorder == nil {
		return
	}
	archived := &model.Run{
		ID:          uuid.NewString(),
		Date:        day.String(),
		Status:      status,
		SummaryKey:  key,
		EntityCount: entityCount,
	}
	if err := r.recorder.Save(archived); err != nil {
		slog.Warn("recording run failed", "date", day.String(), "error", err)
	}
}
