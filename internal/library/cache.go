package library

import (
	"sync"

	"github.com/taxdesk/portal-client/internal/models"
)

// Cache holds the recursively loaded library. It is rebuilt wholesale and
// reads as "not loaded" while a rebuild is in progress or after any
// invalidation.
type Cache struct {
	mu         sync.RWMutex
	tree       *Tree
	loaded     bool
	generation uint64
}

// NewCache returns an empty, unloaded cache.
func NewCache() *Cache {
	return &Cache{}
}

// Loaded reports whether browsing can be served from the cache.
func (c *Cache) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// BeginRebuild marks the cache unloaded and returns a token for Rebuild.
// An Invalidate between BeginRebuild and Rebuild voids the token.
func (c *Cache) BeginRebuild() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.loaded = false
	return c.generation
}

// Rebuild installs a new tree built from the flat lists. It returns false,
// leaving the cache unloaded, when the cache was invalidated after
// BeginRebuild returned token.
func (c *Cache) Rebuild(token uint64, folders []models.FolderNode, documents []models.DocumentEntry) (*Report, bool) {
	tree, report := Build(folders, documents)

	c.mu.Lock()
	defer c.mu.Unlock()
	if token != c.generation {
		return report, false
	}
	c.tree = tree
	c.loaded = true
	return report, true
}

// Invalidate drops the loaded flag. The next browse goes to the network.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.loaded = false
}

// Tree returns the current tree when the cache is loaded.
func (c *Cache) Tree() (*Tree, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.loaded {
		return nil, false
	}
	return c.tree, true
}
