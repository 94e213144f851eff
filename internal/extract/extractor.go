// Package extract drafts the day's top entities from feed posts and has the
// model cross-check its own draft against a rule set before accepting it.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"buzzdigest/internal/retry"
	"buzzdigest/pkg/feed"
	"buzzdigest/pkg/llm"
)

const (
	maxEntities      = 3
	validationSample = 50
	defaultAttempts  = 4
)

// ErrBadReply marks a completion that was not the shape the prompt demanded.
// Unlike a rule violation it carries no feedback a retry could use, so it
// surfaces immediately.
var ErrBadReply = errors.New("malformed model reply")

// entityRules ride along in both the drafting and the validation prompt.
const entityRules = `Rules:
1. DO NOT include the poster or the media outlet as one of the three entities, unless the news is about the poster/media outlet itself.
2. It MUST be specific people, places, companies, or events. It CANNOT be vague concepts or technologies, unless a SPECIFIC person or entity is named.
For example, DO NOT include "AI" or "Biotechnology". Instead, you should include the SPECIFIC COMPANY OR PERSON.
3. Note that if an entity is only mentioned a couple times and it's by the same poster, that is less compelling than if multiple different posters have mentioned it.
4. Ensure that not all three entities are too tightly related. For example, ["Elon Musk", "Tesla", "SpaceX"] would NOT be acceptable. Only pick 2 of those 3.`

// Extractor drafts a three-entity list and keeps redrafting with the
// validator's feedback until the list passes or attempts run out.
type Extractor struct {
	llm      llm.Client
	model    string
	attempts int
	delay    time.Duration
}

type Options struct {
	Model string
	// Attempts bounds the draft-validate loop, first try included.
	Attempts int
	// Delay spaces attempts apart.
	Delay time.Duration
}

func New(client llm.Client, opts Options) *Extractor {
	e := &Extractor{
		llm:      client,
		model:    opts.Model,
		attempts: opts.Attempts,
		delay:    opts.Delay,
	}
	if e.attempts <= 0 {
		e.attempts = defaultAttempts
	}
	return e
}

// Extract returns up to three entity names drawn from the posts.
// llm.ErrRejected and ErrBadReply surface immediately; rule violations are
// retried with the violation fed back into the next draft.
func (e *Extractor) Extract(ctx context.Context, posts []feed.Post) ([]string, error) {
	cfg := retry.Config{
		Attempts: e.attempts,
		Delay:    e.delay,
		NonRetryable: func(err error) bool {
			return errors.Is(err, llm.ErrRejected) || errors.Is(err, ErrBadReply)
		},
	}
	return retry.Do(ctx, cfg, "entity extraction", func(ctx context.Context, feedback string) ([]string, error) {
		return e.attempt(ctx, posts, feedback)
	})
}

func (e *Extractor) attempt(ctx context.Context, posts []feed.Post, feedback string) ([]string, error) {
	slog.Info("drafting entity list", "posts", len(posts), "with_feedback", feedback != "")

	reply, err := e.llm.Complete(ctx, llm.Request{
		Model:    e.model,
		Messages: []llm.Message{{Role: llm.RoleUser, Content: draftPrompt(posts, feedback)}},
	})
	if err != nil {
		return nil, err
	}

	entities, err := parseEntityList(reply)
	if err != nil {
		return nil, err
	}
	slog.Info("drafted entities", "entities", entities)

	verdict, err := e.validate(ctx, reply, posts)
	if err != nil {
		return nil, err
	}
	if !verdict.Valid {
		slog.Warn("entity list rejected", "reason", verdict.Reason)
		return nil, &retry.FeedbackError{Reason: verdict.Reason}
	}
	return entities, nil
}

// Verdict is the validation outcome: Valid, or the model's one-sentence
// explanation of which rule the draft violated.
type Verdict struct {
	Valid  bool
	Reason string
}

// validate shows the raw drafted list and a sample of the source posts to
// the model and asks whether the list conforms to the rules.
func (e *Extractor) validate(ctx context.Context, listText string, posts []feed.Post) (Verdict, error) {
	reply, err := e.llm.Complete(ctx, llm.Request{
		Model:    e.model,
		Messages: []llm.Message{{Role: llm.RoleUser, Content: validationPrompt(listText, posts)}},
	})
	if err != nil {
		return Verdict{}, err
	}

	answer := strings.TrimSpace(reply)
	if strings.EqualFold(answer, "valid") {
		return Verdict{Valid: true}, nil
	}
	return Verdict{Reason: answer}, nil
}

// parseEntityList decodes a reply of the form ["A", "B", "C"], tolerating
// markdown fences and stray prose around the array.
func parseEntityList(reply string) ([]string, error) {
	cleaned := cleanJSONArray(reply)

	var entities []string
	if err := json.Unmarshal([]byte(cleaned), &entities); err != nil {
		return nil, fmt.Errorf("%w: not a JSON string array: %q", ErrBadReply, reply)
	}
	if len(entities) == 0 {
		return nil, fmt.Errorf("%w: empty entity list", ErrBadReply)
	}
	if len(entities) > maxEntities {
		entities = entities[:maxEntities]
	}
	return entities, nil
}

func cleanJSONArray(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	// Some model responses include extra prose around the array.
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start >= 0 && end > start {
		content = content[start : end+1]
	}
	return content
}

func draftPrompt(posts []feed.Post, feedback string) string {
	pastMistake := ""
	if feedback != "" {
		pastMistake = "\n\nIMPORTANT, YOU PREVIOUSLY MADE THIS MISTAKE: " + feedback
	}

	// The nonce keeps repeated drafts from hitting a provider-side
	// completion cache.
	return fmt.Sprintf(`Name the top 3 biggest announcements or most controversial people, places, companies, events that are referenced in these posts.

%s%s

IMPORTANT: You MUST respond in the following format and DO NOT SAY ANYTHING ADDITIONAL: ["Entity 1", "Entity 2", ...]

Posts:
%s

Random nonce: %f`, entityRules, pastMistake, feed.Lines(posts), rand.Float64())
}

func validationPrompt(listText string, posts []feed.Post) string {
	sample := posts
	if len(sample) > validationSample {
		sample = sample[:validationSample]
	}

	return fmt.Sprintf(`Does the following list conform to these rules?

%s

IMPORTANT: You MUST respond with either VALID or feedback explaining which rule was violated in ONE sentence.
IMPORTANT: IF VALID, YOU MUST NOT SAY ANYTHING ADDITIONAL OTHER THAN "VALID".
IMPORTANT: DO NOT CHECK IF THE ENTITIES ARE REFERENCED IN THE POSTS. AN ENTITY MAY NOT BE MENTIONED IN THE POSTS AND THAT IS STILL VALID.

List: %s

Sample of the posts the list was derived from:
%s`, entityRules, listText, feed.Lines(sample))
}
