package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/patrickmn/go-cache"
)

// CachedCatalog wraps a Catalog with an in-memory TTL cache. Hits and
// not-found answers are cached; unavailability is not, so recovery is immediate.
type CachedCatalog struct {
	inner Catalog
	cache *cache.Cache
}

// cachedMiss marks a cached ErrNotFound.
type cachedMiss struct{}

// NewCachedCatalog wraps inner with the given TTL.
func NewCachedCatalog(inner Catalog, ttl time.Duration) *CachedCatalog {
	return &CachedCatalog{
		inner: inner,
		cache: cache.New(ttl, 2*ttl),
	}
}

// Lookup serves from cache or delegates to the wrapped catalog.
func (c *CachedCatalog) Lookup(ctx context.Context, nodeType string) (*Entry, error) {
	if v, ok := c.cache.Get(nodeType); ok {
		switch e := v.(type) {
		case Entry:
			return &e, nil
		case cachedMiss:
			return nil, ErrNotFound
		}
	}

	entry, err := c.inner.Lookup(ctx, nodeType)
	switch {
	case err == nil:
		c.cache.SetDefault(nodeType, *entry)
		return entry, nil
	case errors.Is(err, ErrNotFound):
		c.cache.SetDefault(nodeType, cachedMiss{})
		return nil, err
	default:
		return nil, err
	}
}

// Len reports the number of cached answers.
func (c *CachedCatalog) Len() int {
	return c.cache.ItemCount()
}
