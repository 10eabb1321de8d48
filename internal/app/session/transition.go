package session

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/jukebot/internal/app/playback"
)

// OnTrackEnd advances the guild queue after the current track ended, or
// arms the idle disconnect when the queue is empty.
//
// A failure to start the next track is returned; the popped track is not
// put back.
func (m *Manager) OnTrackEnd(ctx context.Context, guildID snowflake.ID, reason playback.EndReason) error {
	if !reason.ShouldAdvance() {
		zlog.Debug().Msgf("track end ignored: guild_id=%s reason=%s", guildID, reason)
		return nil
	}

	if _, ok := m.connector.Connection(guildID); !ok {
		zlog.Debug().Msgf("track end without connection: guild_id=%s reason=%s", guildID, reason)
		return nil
	}

	st := m.registry.GetOrCreate(guildID)
	st.Lock()
	defer st.Unlock()

	// A teardown holding the gate may have disconnected meanwhile
	conn, ok := m.connector.Connection(guildID)
	if !ok {
		zlog.Debug().Msgf("track end after disconnect: guild_id=%s reason=%s", guildID, reason)
		return nil
	}

	next, ok := st.PopFrontLocked()
	if !ok {
		m.idle.Arm(st, conn)
		zlog.Debug().Msgf("queue empty after track end: guild_id=%s reason=%s", guildID, reason)
		return nil
	}

	if err := conn.Play(ctx, next.Track); err != nil {
		return unavailable(err, "failed to play next track")
	}
	m.metrics.TracksStarted.Inc()
	zlog.Info().Msgf("playing next track: guild_id=%s title=%q remaining=%d",
		guildID, next.Track.DisplayTitle(), st.LenLocked())
	return nil
}
