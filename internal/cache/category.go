// Package cache holds the in-process caches in front of the inventory API:
// a single-slot folder cache and keyed caches of derived query results.
package cache

import (
	"context"
	"sync"
	"time"

	"storefront/catalog/internal/domain"

	"github.com/benbjohnson/clock"
	log "github.com/sirupsen/logrus"
)

// DefaultCategoryTTL is how long a folder listing is served without refetching.
const DefaultCategoryTTL = 5 * time.Minute

// FolderFetcher loads the complete folder list.
type FolderFetcher func(ctx context.Context) ([]domain.Folder, error)

// CategoryCache keeps the last successful folder listing for a short time.
type CategoryCache struct {
	fetch FolderFetcher
	ttl   time.Duration
	clock clock.Clock

	mu        sync.Mutex
	folders   []domain.Folder
	fetchedAt time.Time
	filled    bool
}

func NewCategoryCache(fetch FolderFetcher, ttl time.Duration, clk clock.Clock) *CategoryCache {
	if ttl <= 0 {
		ttl = DefaultCategoryTTL
	}
	if clk == nil {
		clk = clock.New()
	}
	return &CategoryCache{fetch: fetch, ttl: ttl, clock: clk}
}

// Get returns the cached folders while they are younger than the TTL and
// fetches a fresh listing otherwise. A failed fetch leaves the slot as is.
func (c *CategoryCache) Get(ctx context.Context) ([]domain.Folder, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.filled && c.clock.Since(c.fetchedAt) < c.ttl {
		log.Debugf("Category cache hit (%d folders)", len(c.folders))
		return c.folders, nil
	}

	folders, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}

	c.folders = folders
	c.fetchedAt = c.clock.Now()
	c.filled = true
	log.Debugf("Category cache refilled with %d folders", len(folders))
	return folders, nil
}

// Invalidate empties the slot unconditionally.
func (c *CategoryCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.folders = nil
	c.fetchedAt = time.Time{}
	c.filled = false
}
