// Package resolver turns user queries into playable tracks.
package resolver

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/osa030/jukebot/internal/domain/track"
)

// ErrNoMatches is returned when a query resolves to nothing.
var ErrNoMatches = errors.New("no track found")

// Resolver is the interface for track resolvers.
type Resolver interface {
	// Name returns the resolver name (used in logs).
	Name() string
	// Match reports whether this resolver handles the query.
	Match(query string) bool
	// Resolve returns the first track for the query, or ErrNoMatches.
	Resolve(ctx context.Context, query string) (track.Track, error)
}

// IsURI reports whether the query is a direct http(s) reference rather
// than search keywords.
func IsURI(query string) bool {
	q := strings.TrimSpace(query)
	return strings.HasPrefix(q, "http://") || strings.HasPrefix(q, "https://")
}
