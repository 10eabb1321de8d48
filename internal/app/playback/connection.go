package playback

import (
	"context"

	"github.com/disgoorg/snowflake/v2"

	"github.com/osa030/jukebot/internal/domain/track"
)

// Connection is the voice connection of one guild.
type Connection interface {
	// Play starts the given track, replacing nothing: callers only play
	// when the connection is idle.
	Play(ctx context.Context, t track.Track) error
	// Stop stops the current track. The audio node reports a stopped
	// track-end afterwards.
	Stop(ctx context.Context) error
	// Disconnect leaves the voice channel and releases the player.
	Disconnect(ctx context.Context) error
	// Move switches the connection to another voice channel.
	Move(ctx context.Context, channelID snowflake.ID) error
	// Playing reports whether a track is currently loaded.
	Playing() bool
	// ChannelID returns the voice channel the bot occupies.
	ChannelID() (snowflake.ID, bool)
}

// Connector hands out per-guild connections.
type Connector interface {
	// Connection returns the live connection of a guild, if any.
	Connection(guildID snowflake.ID) (Connection, bool)
	// Connect joins channelID, or moves an existing connection there.
	Connect(ctx context.Context, guildID, channelID snowflake.ID) (Connection, error)
}

// Roster counts voice channel members.
type Roster interface {
	// HumanCount returns the number of non-bot members in a voice channel.
	// ok is false when the guild is unknown to the roster.
	HumanCount(guildID, channelID snowflake.ID) (count int, ok bool)
}
