// Package feed pulls posts from the social feed's timeline API.
package feed

import (
	"fmt"
	"strings"
	"time"
)

// Post is one normalized feed item.
type Post struct {
	AuthorName   string    `json:"author_name"`
	AuthorHandle string    `json:"author_handle"`
	Text         string    `json:"text"`
	PostedAt     time.Time `json:"posted_at"`
}

// Line renders the post the way prompts consume it.
func (p Post) Line() string {
	return fmt.Sprintf("%s (@%s): %s", p.AuthorName, p.AuthorHandle, p.Text)
}

// Lines renders posts one per line for prompt bodies.
func Lines(posts []Post) string {
	lines := make([]string, len(posts))
	for i, p := range posts {
		lines[i] = p.Line()
	}
	return strings.Join(lines, "\n")
}
