package gallery

import (
	"log"
	"sync"
)

// Cache holds the one loaded Gallery shared by all concurrent queries.
// The first access triggers a single load; callers arriving during the load
// block on the write lock instead of loading redundantly. A failed or
// absent load degrades to the empty gallery so the serving path keeps
// answering, with every face reported as unknown.
type Cache struct {
	store Store

	mu     sync.RWMutex
	g      *Gallery
	loaded bool
}

// NewCache creates a cache backed by the given store. Nothing is loaded
// until the first Get or Reload.
func NewCache(store Store) *Cache {
	return &Cache{store: store}
}

// Get returns the current gallery, loading it on first access. Never
// returns nil.
func (c *Cache) Get() *Gallery {
	c.mu.RLock()
	if c.loaded {
		g := c.g
		c.mu.RUnlock()
		return g
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded {
		return c.g
	}

	g, err := c.store.Load()
	switch {
	case err != nil:
		log.Printf("gallery: load failed, serving empty gallery: %v", err)
		c.g = Empty()
	case g == nil:
		log.Printf("gallery: artifacts not found, serving empty gallery")
		c.g = Empty()
	default:
		c.g = g
	}
	c.loaded = true
	return c.g
}

// Reload forces a fresh load and swaps the gallery in atomically. Unlike
// Get, errors surface to the administrative caller and leave the previously
// loaded gallery in place. Absent artifacts reload to the empty gallery.
func (c *Cache) Reload() (*Gallery, error) {
	g, err := c.store.Load()
	if err != nil {
		return nil, err
	}
	if g == nil {
		g = Empty()
	}

	c.mu.Lock()
	c.g = g
	c.loaded = true
	c.mu.Unlock()
	return g, nil
}
