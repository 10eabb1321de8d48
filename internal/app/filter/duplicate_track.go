package filter

import (
	"context"
	"regexp"
	"strings"

	"github.com/osa030/jukebot/internal/domain/track"
)

var (
	remasterPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\s*-?\s*\d{4}\s+remaster(ed)?`),      // "- 2011 Remaster"
		regexp.MustCompile(`\s*\(remaster(ed)?\s*\d{0,4}\)`),     // "(Remastered 2023)"
		regexp.MustCompile(`\s*\[remaster(ed)?\s*\d{0,4}\]`),     // "[Remastered]"
		regexp.MustCompile(`\s*-?\s*remaster(ed)?(\s+version)?`), // "- Remastered"
		regexp.MustCompile(`\s*\(.*?remaster.*?\)`),              // "(Any Remaster text)"
		regexp.MustCompile(`\s*\[.*?remaster.*?\]`),              // "[Any Remaster text]"
	}

	versionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\s*\(official\s+(music\s+)?(video|audio)\)`), // "(Official Video)"
		regexp.MustCompile(`\s*\[official\s+(music\s+)?(video|audio)\]`), // "[Official Audio]"
		regexp.MustCompile(`\s*\((lyric|lyrics)\s*video\)`),              // "(Lyric Video)"
		regexp.MustCompile(`\s*\(.*?version\)`),                          // "(Single Version)"
		regexp.MustCompile(`\s*\(.*?edit\)`),                             // "(Radio Edit)"
		regexp.MustCompile(`\s*-?\s*radio\s+edit`),                       // "- Radio Edit"
	}

	whitespace = regexp.MustCompile(`\s+`)
)

// DuplicateTrackFilter rejects tracks already waiting in the queue.
// Detects:
// - Exact track ID or locator matches
// - Re-uploads and remasters (normalized title + same author)
// Different authors with the same title are treated as covers and allowed.
type DuplicateTrackFilter struct{}

// NewDuplicateTrackFilter creates a new duplicate track filter.
func NewDuplicateTrackFilter() *DuplicateTrackFilter {
	return &DuplicateTrackFilter{}
}

// Name returns the filter name.
func (f *DuplicateTrackFilter) Name() string {
	return "duplicate_track_filter"
}

// Description returns the filter description.
func (f *DuplicateTrackFilter) Description() string {
	return "Rejects tracks already in the queue, including remasters; covers by other authors are allowed"
}

// ReturnCodes returns possible return codes.
func (f *DuplicateTrackFilter) ReturnCodes() []string {
	return []string{"duplicate_track"}
}

// ValidateConfig validates the filter configuration.
func (f *DuplicateTrackFilter) ValidateConfig(settings map[string]any) error {
	// No configuration needed
	return nil
}

// Check checks if the track is a duplicate.
func (f *DuplicateTrackFilter) Check(ctx context.Context, requested track.Track, queue []track.QueuedTrack) Result {
	for _, queued := range queue {
		if queued.Track.ID == requested.ID {
			return Reject("duplicate_track")
		}
		if queued.Track.URI != "" && queued.Track.URI == requested.URI {
			return Reject("duplicate_track")
		}
		if isSameSong(queued.Track, requested) {
			return Reject("duplicate_track")
		}
	}

	return Accept()
}

// isSameSong checks if two tracks are the same song in a different version.
func isSameSong(t1, t2 track.Track) bool {
	if normalizeTitle(t1.Title) != normalizeTitle(t2.Title) {
		return false
	}
	if t1.Author == "" || t2.Author == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(t1.Author), strings.TrimSpace(t2.Author))
}

// normalizeTitle removes remaster information and version details.
func normalizeTitle(title string) string {
	normalized := strings.ToLower(title)

	for _, pattern := range remasterPatterns {
		normalized = pattern.ReplaceAllString(normalized, "")
	}
	for _, pattern := range versionPatterns {
		normalized = pattern.ReplaceAllString(normalized, "")
	}

	normalized = strings.TrimSpace(normalized)
	normalized = whitespace.ReplaceAllString(normalized, " ")
	normalized = strings.TrimRight(normalized, " -")

	return normalized
}

func init() {
	Register("duplicate_track_filter", func() Filter {
		return NewDuplicateTrackFilter()
	})
}
