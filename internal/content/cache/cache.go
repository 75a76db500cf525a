// Package cache holds read-through caches for the current content document.
package cache

import (
	"context"
	"time"

	"github.com/gogotex/gogotex/backend/content-service/internal/content"
)

// Loader fetches the current document from the store.
type Loader func(ctx context.Context) (*content.Document, error)

// Cache is a read-through cache of the complete content document.
type Cache interface {
	// GetOrRefresh returns the cached document when it is younger than ttl and
	// otherwise calls load and caches its result. Load errors are not cached.
	GetOrRefresh(ctx context.Context, ttl time.Duration, load Loader) (*content.Document, error)
	Invalidate(ctx context.Context) error
}

// Nop never caches.
type Nop struct{}

func (Nop) GetOrRefresh(ctx context.Context, ttl time.Duration, load Loader) (*content.Document, error) {
	return load(ctx)
}

func (Nop) Invalidate(ctx context.Context) error { return nil }
