package catalog

import (
	"strings"
	"sync"
	"time"

	"github.com/gravitypharm/gravistock/internal/services/master"
)

// NameCache is an in-process snapshot of the master's product list, used to
// answer free-text name lookups without a round-trip. It is constructed once
// per process and injected into the sync service; there is no package-level
// instance.
type NameCache struct {
	mu       sync.RWMutex
	products []master.Product
	loadedAt time.Time
}

func NewNameCache() *NameCache {
	return &NameCache{}
}

// Replace swaps the cached product list atomically
func (c *NameCache) Replace(products []master.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products = products
	c.loadedAt = time.Now()
}

// Empty reports whether the cache has never been loaded or holds nothing
func (c *NameCache) Empty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.products) == 0
}

// Len returns the number of cached products
func (c *NameCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.products)
}

// Search performs a case-insensitive contains match on designation or code,
// capped at limit results.
func (c *NameCache) Search(query string, limit int) []master.Product {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	var results []master.Product
	for _, p := range c.products {
		if strings.Contains(strings.ToLower(p.Designation), query) ||
			strings.Contains(strings.ToLower(p.Code), query) {
			results = append(results, p)
			if limit > 0 && len(results) >= limit {
				break
			}
		}
	}
	return results
}
