package inventory

import (
	"context"
	"sync"
	"time"
)

// Source produces interface snapshots. Collector implements it.
type Source interface {
	Collect(ctx context.Context) ([]Interface, error)
}

// Cache holds the last snapshot for a while so that bursts of API or scrape
// requests don't each trigger a dump. Refreshes are serialised: concurrent
// callers finding a stale snapshot wait for a single refresh.
type Cache struct {
	sync.Mutex

	src Source
	ttl time.Duration
	now func() time.Time

	snapshot []Interface
	ts       time.Time
}

func NewCache(src Source, ttl time.Duration) *Cache {
	return &Cache{src: src, ttl: ttl, now: time.Now}
}

// Get returns the cached snapshot, refreshing it first when it's older than
// the TTL. On failure the previous snapshot is discarded. The returned
// slice is shared between callers and must not be modified.
func (c *Cache) Get(ctx context.Context) ([]Interface, error) {
	c.Lock()
	defer c.Unlock()

	if c.snapshot != nil && c.now().Sub(c.ts) < c.ttl {
		return c.snapshot, nil
	}

	ifaces, err := c.src.Collect(ctx)
	if err != nil {
		c.snapshot = nil
		return nil, err
	}

	c.snapshot, c.ts = ifaces, c.now()
	return ifaces, nil
}

// Invalidate forces the next Get to refresh.
func (c *Cache) Invalidate() {
	c.Lock()
	c.snapshot = nil
	c.Unlock()
}
