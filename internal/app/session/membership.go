package session

import (
	"context"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/jukebot/internal/app/playback"
)

// OnMembershipChange tears the session down when the bot's voice channel
// has no human members left. Events for bot members must be filtered out
// by the caller.
func (m *Manager) OnMembershipChange(ctx context.Context, e playback.Event) error {
	if _, ok := m.connector.Connection(e.GuildID); !ok {
		return nil
	}

	st := m.registry.GetOrCreate(e.GuildID)
	st.Lock()
	defer st.Unlock()

	conn, ok := m.connector.Connection(e.GuildID)
	if !ok {
		return nil
	}
	channelID, ok := conn.ChannelID()
	if !ok {
		return nil
	}
	if !e.Touches(channelID) {
		return nil
	}

	humans, known := m.roster.HumanCount(e.GuildID, channelID)
	if !known {
		zlog.Debug().Msgf("membership ignored, roster unknown: guild_id=%s channel_id=%s", e.GuildID, channelID)
		return nil
	}
	if humans > 0 {
		return nil
	}

	cleared := st.ClearLocked()
	m.idle.Disarm(st)

	// Stop is best effort; the disconnect runs regardless.
	if conn.Playing() {
		if err := conn.Stop(ctx); err != nil {
			zlog.Warn().Err(err).Msgf("stop before teardown failed: guild_id=%s", e.GuildID)
		}
	}
	if err := conn.Disconnect(ctx); err != nil {
		return unavailable(err, "failed to disconnect from empty channel")
	}

	m.metrics.MembershipTeardown.Inc()
	zlog.Info().Msgf("voice channel empty, left: guild_id=%s channel_id=%s cleared=%d",
		e.GuildID, channelID, len(cleared))
	return nil
}
