// Package news looks up recent stories about an entity through pluggable
// search providers.
package news

import "context"

// Story is one raw news result: a title plus the loosely formatted date text
// the provider returned for it. Dates stay text here; interpreting them is
// the caller's business.
type Story struct {
	Title string `json:"title"`
	Date  string `json:"date"`
}

// Provider searches recent stories mentioning an entity by name.
type Provider interface {
	Search(ctx context.Context, entity string) ([]Story, error)
	Name() string
}
