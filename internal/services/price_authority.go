package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"checkout-service/internal/domain"
	"checkout-service/internal/logger"
	"checkout-service/internal/metrics"
	"checkout-service/internal/repository"

	"github.com/go-redis/redis/v8"
	"golang.org/x/sync/singleflight"
)

// CartLine is a requested item as submitted by the client. It carries no
// price; prices always come from the catalog.
type CartLine struct {
	MenuItemID uint64
	Quantity   int64
}

// CacheClient is the subset of the Redis client used for menu item caching.
type CacheClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// PriceAuthority resolves cart lines into priced order lines.
type PriceAuthority struct {
	catalog  repository.CatalogRepository
	cache    CacheClient
	cacheTTL time.Duration
	group    singleflight.Group
}

const catalogLookupTimeout = 5 * time.Second

func NewPriceAuthority(catalog repository.CatalogRepository) *PriceAuthority {
	return &PriceAuthority{catalog: catalog}
}

// SetCacheClient enables caching of available menu items for ttl.
// A zero ttl leaves caching disabled.
func (p *PriceAuthority) SetCacheClient(client CacheClient, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	p.cache = client
	p.cacheTTL = ttl
}

func cacheKey(id uint64) string {
	return fmt.Sprintf("menu_item:%d", id)
}

// Price validates lines and snapshots the current name and price of every
// referenced item. Lines naming the same item are merged. If any item is
// missing or unavailable the whole request fails with ErrItemsUnavailable.
func (p *PriceAuthority) Price(ctx context.Context, lines []CartLine) ([]domain.OrderLine, error) {
	if len(lines) == 0 {
		return nil, domain.ErrEmptyCart
	}

	ids := make([]uint64, 0, len(lines))
	quantities := make(map[uint64]int64, len(lines))
	for _, l := range lines {
		if l.Quantity <= 0 {
			return nil, fmt.Errorf("%w: item %d has quantity %d", domain.ErrInvalidQuantity, l.MenuItemID, l.Quantity)
		}
		if _, seen := quantities[l.MenuItemID]; !seen {
			ids = append(ids, l.MenuItemID)
		}
		quantities[l.MenuItemID] += l.Quantity
	}

	items, err := p.resolve(ctx, ids)
	if err != nil {
		return nil, err
	}

	var missing []uint64
	for _, id := range ids {
		if _, ok := items[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %v", domain.ErrItemsUnavailable, missing)
	}

	priced := make([]domain.OrderLine, 0, len(ids))
	for _, id := range ids {
		item := items[id]
		priced = append(priced, domain.OrderLine{
			CatalogItemID: id,
			Name:          item.Name,
			Quantity:      quantities[id],
			UnitPrice:     item.Price,
		})
	}
	return priced, nil
}

func (p *PriceAuthority) resolve(ctx context.Context, ids []uint64) (map[uint64]domain.MenuItem, error) {
	found := make(map[uint64]domain.MenuItem, len(ids))

	pending := ids
	if p.cache != nil {
		pending = pending[:0:0]
		for _, id := range ids {
			if item, ok := p.cached(ctx, id); ok {
				found[id] = item
				continue
			}
			pending = append(pending, id)
		}
	}
	if len(pending) == 0 {
		return found, nil
	}

	items, err := p.load(ctx, pending)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if !priceable(item) {
			continue
		}
		found[item.ID] = item
		p.store(ctx, item)
	}
	return found, nil
}

// priceable reports whether item can be sold: available, non-negative and
// expressible in whole cents.
func priceable(item domain.MenuItem) bool {
	return item.Available && !item.Price.IsNegative() && item.Price.Equal(item.Price.Round(2))
}

// load collapses concurrent catalog lookups for the same id set. The shared
// lookup is detached from the first caller's cancellation; each caller still
// stops waiting when its own ctx is done.
func (p *PriceAuthority) load(ctx context.Context, ids []uint64) ([]domain.MenuItem, error) {
	sorted := append([]uint64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	parts := make([]string, len(sorted))
	for i, id := range sorted {
		parts[i] = strconv.FormatUint(id, 10)
	}

	ch := p.group.DoChan(strings.Join(parts, ","), func() (interface{}, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), catalogLookupTimeout)
		defer cancel()
		return p.catalog.FindAvailableByIDs(lookupCtx, sorted)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]domain.MenuItem), nil
	}
}

func (p *PriceAuthority) cached(ctx context.Context, id uint64) (domain.MenuItem, bool) {
	raw, err := p.cache.Get(ctx, cacheKey(id)).Result()
	if err != nil {
		return domain.MenuItem{}, false
	}
	var item domain.MenuItem
	if err := json.Unmarshal([]byte(raw), &item); err != nil || !priceable(item) || item.ID != id {
		return domain.MenuItem{}, false
	}
	metrics.CatalogCacheHitsTotal.Inc()
	return item, true
}

func (p *PriceAuthority) store(ctx context.Context, item domain.MenuItem) {
	if p.cache == nil {
		return
	}
	data, err := json.Marshal(item)
	if err != nil {
		return
	}
	if err := p.cache.Set(ctx, cacheKey(item.ID), data, p.cacheTTL).Err(); err != nil {
		logger.Warn("menu item cache write failed", logger.Fields{"menuItemId": item.ID, "error": err})
	}
}

// Warmup preloads the cache with the given items. Lookup failures are logged
// and skipped.
func (p *PriceAuthority) Warmup(ctx context.Context, ids []uint64) error {
	if p.cache == nil || len(ids) == 0 {
		return nil
	}
	items, err := p.catalog.FindAvailableByIDs(ctx, ids)
	if err != nil {
		logger.Warn("menu item cache warmup failed", logger.Fields{"error": err})
		return err
	}
	for _, item := range items {
		if priceable(item) {
			p.store(ctx, item)
		}
	}
	logger.Info("menu item cache warmed up", logger.Fields{"count": len(items)})
	return nil
}
