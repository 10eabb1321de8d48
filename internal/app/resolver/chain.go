package resolver

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/jukebot/internal/domain/track"
)

// Chain hands a query to the first resolver that matches it.
type Chain struct {
	resolvers []Resolver
}

// NewChain creates a new resolver chain. Order matters: specific resolvers
// (e.g. Spotify links) go before the catalog fallback.
func NewChain(resolvers ...Resolver) *Chain {
	return &Chain{
		resolvers: resolvers,
	}
}

// Name returns the chain name.
func (c *Chain) Name() string {
	return "resolver_chain"
}

// Match reports whether any resolver in the chain handles the query.
func (c *Chain) Match(query string) bool {
	for _, r := range c.resolvers {
		if r.Match(query) {
			return true
		}
	}
	return false
}

// Resolve resolves the query with the first matching resolver.
func (c *Chain) Resolve(ctx context.Context, query string) (track.Track, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return track.Track{}, errors.Wrap(ErrNoMatches, "empty query")
	}

	for i, r := range c.resolvers {
		if !r.Match(query) {
			continue
		}
		zlog.Debug().Msgf("resolving query: resolver=%s index=%d total=%d query=%q",
			r.Name(), i+1, len(c.resolvers), query)

		t, err := r.Resolve(ctx, query)
		if err != nil {
			return track.Track{}, errors.Wrapf(err, "resolver %s", r.Name())
		}
		return t, nil
	}

	return track.Track{}, errors.Wrapf(ErrNoMatches, "no resolver for query %q", query)
}
