package lavalink

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	lavalinkapi "github.com/disgoorg/disgolink/v3/lavalink"
	"github.com/disgoorg/snowflake/v2"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/jukebot/internal/domain/track"
)

// connection is the voice connection of one guild.
type connection struct {
	binding *Binding
	guildID snowflake.ID
	player  audioPlayer

	mu        sync.Mutex
	channelID snowflake.ID
	current   string // encoded track loaded on the player, empty when idle
}

func (c *connection) Play(ctx context.Context, t track.Track) error {
	if t.ID == "" {
		return errors.New("track has no playable handle")
	}
	if err := c.player.Update(ctx, lavalinkapi.WithEncodedTrack(t.ID)); err != nil {
		return errors.Wrap(err, "failed to update player")
	}

	c.mu.Lock()
	c.current = t.ID
	c.mu.Unlock()
	return nil
}

func (c *connection) Stop(ctx context.Context) error {
	if err := c.player.Update(ctx, lavalinkapi.WithNullTrack()); err != nil {
		return errors.Wrap(err, "failed to stop player")
	}
	return nil
}

func (c *connection) Disconnect(ctx context.Context) error {
	c.binding.drop(c.guildID, c)
	c.clearTrack()

	var errs error
	if err := c.binding.gateway.LeaveVoice(c.guildID); err != nil {
		errs = errors.CombineErrors(errs, errors.Wrap(err, "failed to leave voice channel"))
	}
	if err := c.player.Destroy(ctx); err != nil {
		errs = errors.CombineErrors(errs, errors.Wrap(err, "failed to destroy player"))
	}
	c.binding.node.removePlayer(c.guildID)

	if errs == nil {
		zlog.Info().Msgf("voice disconnected: guild_id=%s", c.guildID)
	}
	return errs
}

func (c *connection) Move(ctx context.Context, channelID snowflake.ID) error {
	if err := c.binding.gateway.JoinVoice(c.guildID, channelID); err != nil {
		return errors.Wrapf(err, "failed to move to voice channel %s", channelID)
	}
	c.setChannel(channelID)
	zlog.Info().Msgf("voice moved: guild_id=%s channel_id=%s", c.guildID, channelID)
	return nil
}

func (c *connection) Playing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != ""
}

func (c *connection) ChannelID() (snowflake.ID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channelID, c.channelID != 0
}

func (c *connection) setChannel(channelID snowflake.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.channelID = channelID
}

func (c *connection) clearTrack() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = ""
}

// finish clears the current track if it is the encoded one.
func (c *connection) finish(encoded string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == "" || c.current != encoded {
		return false
	}
	c.current = ""
	return true
}
