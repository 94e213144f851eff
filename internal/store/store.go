// Package store holds the blob backends the result cache writes through.
package store

import (
	"context"
	"errors"
)

// ErrNotFound reports that no blob exists under the requested key.
var ErrNotFound = errors.New("store: key not found")

// Store is a flat key-value blob store. Put overwrites; Get returns
// ErrNotFound when the key is absent.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
}
