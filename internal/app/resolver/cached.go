package resolver

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	lru "github.com/hashicorp/golang-lru"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/jukebot/internal/domain/track"
)

// Cached memoizes successful resolutions in a bounded LRU cache.
// Failures are never cached.
type Cached struct {
	next  Resolver
	cache *lru.Cache
}

// NewCached wraps next with an LRU cache of the given size.
func NewCached(next Resolver, size int) (*Cached, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create resolver cache")
	}
	return &Cached{
		next:  next,
		cache: cache,
	}, nil
}

// Name returns the wrapped resolver name.
func (c *Cached) Name() string {
	return "cached(" + c.next.Name() + ")"
}

// Match delegates to the wrapped resolver.
func (c *Cached) Match(query string) bool {
	return c.next.Match(query)
}

// Resolve returns a cached track or resolves and caches it.
func (c *Cached) Resolve(ctx context.Context, query string) (track.Track, error) {
	key := strings.TrimSpace(query)
	if v, ok := c.cache.Get(key); ok {
		zlog.Debug().Msgf("resolver cache hit: query=%q", key)
		return v.(track.Track), nil
	}

	t, err := c.next.Resolve(ctx, key)
	if err != nil {
		return track.Track{}, err
	}
	c.cache.Add(key, t)
	return t, nil
}

// Len returns the number of cached entries.
func (c *Cached) Len() int {
	return c.cache.Len()
}
