package resolver

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/jukebot/internal/domain/track"
)

// SpotifyClient defines the Spotify operations needed to resolve links.
type SpotifyClient interface {
	GetTrack(ctx context.Context, trackID string) (*track.Track, error)
}

// SpotifyResolver resolves Spotify track links by looking up the track
// metadata and searching the catalog for "author - title".
type SpotifyResolver struct {
	spotify SpotifyClient
	catalog Resolver
}

// NewSpotifyResolver creates a Spotify link resolver backed by catalog search.
func NewSpotifyResolver(spotify SpotifyClient, catalog Resolver) *SpotifyResolver {
	return &SpotifyResolver{
		spotify: spotify,
		catalog: catalog,
	}
}

// Name returns the resolver name.
func (r *SpotifyResolver) Name() string {
	return "spotify"
}

// Match reports whether the query is a Spotify track link or URI.
func (r *SpotifyResolver) Match(query string) bool {
	return IsSpotifyTrackLink(query)
}

// Resolve looks up the Spotify track and searches the catalog for it.
func (r *SpotifyResolver) Resolve(ctx context.Context, query string) (track.Track, error) {
	st, err := r.spotify.GetTrack(ctx, query)
	if err != nil {
		return track.Track{}, errors.Wrap(err, "failed to look up spotify track")
	}

	search := st.Title
	if st.Author != "" {
		search = st.Author + " - " + st.Title
	}
	zlog.Debug().Msgf("spotify link mapped to search: link=%q search=%q", query, search)

	t, err := r.catalog.Resolve(ctx, search)
	if err != nil {
		return track.Track{}, err
	}
	return t, nil
}

// IsSpotifyTrackLink reports whether the input is a Spotify track URL or URI.
func IsSpotifyTrackLink(input string) bool {
	input = strings.TrimSpace(input)
	if strings.HasPrefix(input, "spotify:track:") {
		return true
	}
	return strings.Contains(input, "open.spotify.com") && strings.Contains(input, "/track/")
}
