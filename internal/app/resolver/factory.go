package resolver

import (
	zlog "github.com/rs/zerolog/log"
)

// Options configures NewFromConfig.
type Options struct {
	CacheSize int
	// Spotify is optional; Spotify links fall through to the catalog when nil.
	Spotify SpotifyClient
}

// NewFromConfig assembles the resolver used by the session manager:
// an optional Spotify link resolver in front of the catalog, behind an LRU cache.
func NewFromConfig(catalog Resolver, opts Options) (Resolver, error) {
	var resolvers []Resolver
	if opts.Spotify != nil {
		resolvers = append(resolvers, NewSpotifyResolver(opts.Spotify, catalog))
		zlog.Info().Msg("registered resolver: type=spotify")
	}
	resolvers = append(resolvers, catalog)
	zlog.Info().Msgf("registered resolver: type=%s", catalog.Name())

	chain := NewChain(resolvers...)
	if opts.CacheSize <= 0 {
		return chain, nil
	}
	return NewCached(chain, opts.CacheSize)
}
