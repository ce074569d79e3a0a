package providers

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// CachedDirectory is a read-through cache in front of another Directory.
// Provider templates change rarely, so short staleness is acceptable.
type CachedDirectory struct {
	next   Directory
	byID   *expirable.LRU[int64, Provider]
	byName *expirable.LRU[string, Provider]
}

// NewCachedDirectory wraps next with size-bounded, TTL-expiring caches.
func NewCachedDirectory(next Directory, size int, ttl time.Duration) *CachedDirectory {
	if size <= 0 {
		size = 256
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedDirectory{
		next:   next,
		byID:   expirable.NewLRU[int64, Provider](size, nil, ttl),
		byName: expirable.NewLRU[string, Provider](size, nil, ttl),
	}
}

func (c *CachedDirectory) Get(ctx context.Context, id int64) (*Provider, error) {
	if p, ok := c.byID.Get(id); ok {
		return &p, nil
	}
	p, err := c.next.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c.byID.Add(p.ID, *p)
	return p, nil
}

func (c *CachedDirectory) FindByName(ctx context.Context, name string) (*Provider, error) {
	key := normalizeName(name)
	if p, ok := c.byName.Get(key); ok {
		return &p, nil
	}
	p, err := c.next.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}
	c.byName.Add(key, *p)
	c.byID.Add(p.ID, *p)
	return p, nil
}

// List always goes to the backing directory; listings are filtered ad hoc.
func (c *CachedDirectory) List(ctx context.Context, specialization string) ([]Provider, error) {
	return c.next.List(ctx, specialization)
}

// Purge drops every cached entry.
func (c *CachedDirectory) Purge() {
	c.byID.Purge()
	c.byName.Purge()
}
