package memory

import (
	"context"
	"sync"

	"checkout-service/internal/domain"
	"checkout-service/internal/repository"
)

// CatalogRepository is a mutable in-memory menu, paired with OrderRepository
// for STORAGE=memory.
type CatalogRepository struct {
	mu    sync.RWMutex
	items map[uint64]domain.MenuItem
}

var _ repository.CatalogRepository = (*CatalogRepository)(nil)

func NewCatalogRepository(items ...domain.MenuItem) *CatalogRepository {
	c := &CatalogRepository{items: make(map[uint64]domain.MenuItem)}
	for _, it := range items {
		c.items[it.ID] = it
	}
	return c
}

func (c *CatalogRepository) Put(item domain.MenuItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[item.ID] = item
}

func (c *CatalogRepository) FindAvailableByIDs(_ context.Context, ids []uint64) ([]domain.MenuItem, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []domain.MenuItem
	for _, id := range ids {
		if it, ok := c.items[id]; ok && it.Available {
			out = append(out, it)
		}
	}
	return out, nil
}

// CartRepository records which carts were cleared.
type CartRepository struct {
	mu      sync.Mutex
	cleared map[uint64]int
}

var _ repository.CartRepository = (*CartRepository)(nil)

func NewCartRepository() *CartRepository {
	return &CartRepository{cleared: make(map[uint64]int)}
}

func (c *CartRepository) Clear(_ context.Context, ownerID uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleared[ownerID]++
	return nil
}

func (c *CartRepository) ClearedCount(ownerID uint64) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cleared[ownerID]
}
