package lavalink

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/disgoorg/disgolink/v3/disgolink"
	lavalinkapi "github.com/disgoorg/disgolink/v3/lavalink"

	"github.com/osa030/jukebot/internal/app/resolver"
	"github.com/osa030/jukebot/internal/domain/track"
)

// ErrNoNode is returned when no Lavalink node is available.
var ErrNoNode = errors.New("no lavalink node available")

// TrackLoader loads tracks for an identifier. disgolink.Node implements it.
type TrackLoader interface {
	LoadTracksHandler(ctx context.Context, identifier string, handler disgolink.AudioLoadResultHandler)
}

// BestNodeLoader loads tracks from the best node of the client at call time.
type BestNodeLoader struct {
	Client disgolink.Client
}

// LoadTracksHandler implements TrackLoader.
func (l BestNodeLoader) LoadTracksHandler(ctx context.Context, identifier string, handler disgolink.AudioLoadResultHandler) {
	node := l.Client.BestNode()
	if node == nil {
		handler.LoadFailed(ErrNoNode)
		return
	}
	node.LoadTracksHandler(ctx, identifier, handler)
}

// Catalog resolves queries through the Lavalink track loader. http(s)
// queries are loaded directly; anything else is searched with the search prefix.
type Catalog struct {
	loader       TrackLoader
	searchPrefix string
}

// NewCatalog creates a catalog resolver.
func NewCatalog(loader TrackLoader, searchPrefix string) *Catalog {
	if searchPrefix == "" {
		searchPrefix = "ytsearch"
	}
	return &Catalog{
		loader:       loader,
		searchPrefix: strings.TrimSuffix(searchPrefix, ":"),
	}
}

// Name returns the resolver name.
func (c *Catalog) Name() string {
	return "lavalink"
}

// Match accepts every query.
func (c *Catalog) Match(query string) bool {
	return true
}

// Identifier returns the load identifier for a query.
func (c *Catalog) Identifier(query string) string {
	query = strings.TrimSpace(query)
	if resolver.IsURI(query) {
		return query
	}
	return c.searchPrefix + ":" + query
}

// Resolve returns the first track the node finds for the query.
func (c *Catalog) Resolve(ctx context.Context, query string) (track.Track, error) {
	identifier := c.Identifier(query)

	var (
		result  *lavalinkapi.Track
		loadErr error
	)
	first := func(tracks []lavalinkapi.Track) {
		if len(tracks) > 0 {
			result = &tracks[0]
		}
	}
	c.loader.LoadTracksHandler(ctx, identifier, disgolink.NewResultHandler(
		func(t lavalinkapi.Track) {
			result = &t
		},
		func(p lavalinkapi.Playlist) {
			if p.Info.SelectedTrack >= 0 && p.Info.SelectedTrack < len(p.Tracks) {
				result = &p.Tracks[p.Info.SelectedTrack]
				return
			}
			first(p.Tracks)
		},
		first,
		func() {},
		func(err error) {
			loadErr = err
		},
	))

	if loadErr != nil {
		return track.Track{}, errors.Wrapf(loadErr, "failed to load %q", identifier)
	}
	if result == nil {
		return track.Track{}, errors.Wrapf(resolver.ErrNoMatches, "identifier %q", identifier)
	}
	return convertTrack(*result), nil
}

func convertTrack(t lavalinkapi.Track) track.Track {
	var uri string
	if t.Info.URI != nil {
		uri = *t.Info.URI
	}
	return track.Track{
		ID:         t.Encoded,
		Title:      t.Info.Title,
		Author:     t.Info.Author,
		URI:        uri,
		Duration:   time.Duration(t.Info.Length) * time.Millisecond,
		SourceName: t.Info.SourceName,
		IsStream:   t.Info.IsStream,
	}
}
