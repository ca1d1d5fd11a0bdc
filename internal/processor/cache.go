package processor

import (
	"sync"

	"github.com/pauljones0/gallery-price-sync/internal/models"
)

// Cache holds the product records of the current sync pass, keyed by identity.
// It is replaced wholesale on every fetch.
type Cache struct {
	mu       sync.RWMutex
	products map[string]models.ProductRecord
}

func NewCache() *Cache {
	return &Cache{products: make(map[string]models.ProductRecord)}
}

// Replace discards every entry and takes ownership of products.
func (c *Cache) Replace(products map[string]models.ProductRecord) {
	if products == nil {
		products = make(map[string]models.ProductRecord)
	}
	c.mu.Lock()
	c.products = products
	c.mu.Unlock()
}

func (c *Cache) Get(id string) (models.ProductRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.products[id]
	return p, ok
}

func (c *Cache) Put(p models.ProductRecord) {
	c.mu.Lock()
	c.products[p.ID] = p
	c.mu.Unlock()
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.products)
}

// Snapshot returns a copy of the cached records.
func (c *Cache) Snapshot() map[string]models.ProductRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]models.ProductRecord, len(c.products))
	for id, p := range c.products {
		out[id] = p
	}
	return out
}
