package playback

import "github.com/disgoorg/snowflake/v2"

// EventType represents a notification type delivered to the session core.
type EventType int

const (
	EventTrackEnded        EventType = iota // Current track finished on the audio node
	EventMembershipChanged                  // A member joined, left or moved between voice channels
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventTrackEnded:
		return "track_ended"
	case EventMembershipChanged:
		return "membership_changed"
	default:
		return "unknown"
	}
}

// EndReason represents why a track ended.
type EndReason string

const (
	EndFinished   EndReason = "finished"
	EndLoadFailed EndReason = "load_failed"
	EndStopped    EndReason = "stopped"
	EndReplaced   EndReason = "replaced"
	EndCleanup    EndReason = "cleanup"
)

// ShouldAdvance reports whether the queue advances after this reason.
// Stopped advances because skip is implemented as a stop.
func (r EndReason) ShouldAdvance() bool {
	return r == EndFinished || r == EndLoadFailed || r == EndStopped
}

// Event represents a notification for one guild.
type Event struct {
	Type    EventType
	GuildID snowflake.ID

	// EventTrackEnded
	Reason EndReason

	// EventMembershipChanged
	UserID          snowflake.ID
	BeforeChannelID *snowflake.ID // nil when the member was not in voice
	AfterChannelID  *snowflake.ID // nil when the member left voice
}

// Touches reports whether a membership change involves the given channel.
func (e Event) Touches(channelID snowflake.ID) bool {
	return (e.BeforeChannelID != nil && *e.BeforeChannelID == channelID) ||
		(e.AfterChannelID != nil && *e.AfterChannelID == channelID)
}
