// SPDX-License-Identifier: MIT

package capfs

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// AttrCache memoizes Dir.Stat results for a short TTL, for callers (an
// HTTP directory listing, a backup size estimator) that re-stat the same
// set of paths far more often than the underlying filesystem actually
// changes. It is a pure caching layer in front of the sandboxed resolver —
// every cache miss still goes through the same capability-checked Stat.
type AttrCache struct {
	dir   *Dir
	cache *gocache.Cache
}

// NewAttrCache wraps dir with a cache whose entries expire after ttl;
// expired entries are purged every 2*ttl.
func NewAttrCache(dir *Dir, ttl time.Duration) *AttrCache {
	return &AttrCache{dir: dir, cache: gocache.New(ttl, 2*ttl)}
}

// Stat returns cached Metadata for name if present and unexpired,
// otherwise calls through to Dir.Stat and caches the result.
func (c *AttrCache) Stat(name string) (Metadata, error) {
	if v, ok := c.cache.Get(name); ok {
		return v.(Metadata), nil
	}
	m, err := c.dir.Stat(name)
	if err != nil {
		return Metadata{}, err
	}
	c.cache.SetDefault(name, m)
	return m, nil
}

// Invalidate drops name from the cache, to be called whenever the caller
// knows it just mutated name out from under a previously cached Stat.
func (c *AttrCache) Invalidate(name string) {
	c.cache.Delete(name)
}
