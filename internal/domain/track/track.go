// Package track provides the Track domain entity.
package track

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// Track represents a playable item resolved from the audio node catalog.
// A Track is immutable once resolved.
type Track struct {
	ID         string        // Opaque encoded handle understood by the audio node
	Title      string        // Display title
	Author     string        // Uploader or artist
	URI        string        // Source locator
	Duration   time.Duration // Track duration (zero for streams)
	SourceName string        // e.g. "youtube", "soundcloud"
	IsStream   bool          // Live stream flag
}

// Requester represents the guild member who requested the track.
type Requester struct {
	UserID snowflake.ID
	Name   string
}

// QueuedTrack represents a track waiting in a guild queue.
type QueuedTrack struct {
	Track     Track
	Requester Requester
	AddedAt   time.Time
}

// DisplayTitle returns the title, falling back to the locator when the
// catalog returned no title.
func (t *Track) DisplayTitle() string {
	if t.Title != "" {
		return t.Title
	}
	return t.URI
}
