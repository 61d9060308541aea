// Package cache provides short-lived storage for completed session reports
// so repeated dashboard fetches avoid round-trips to the report store.
package cache

import (
	"context"
	"errors"
	"time"
)

var ErrCacheMiss = errors.New("cache miss")

type Cache interface {
	Set(ctx context.Context, key string, value any) error

	SetWithTTL(ctx context.Context, key string, value any, ttl time.Duration) error

	// Get returns the cached value or ErrCacheMiss.
	Get(ctx context.Context, key string) (any, error)

	Delete(ctx context.Context, key string) error

	Exists(ctx context.Context, key string) (bool, error)

	Stats() Stats

	Close() error
}

type Stats struct {
	Items  int   `json:"items"`
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}
