package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/jukebot/internal/app/playback"
	"github.com/osa030/jukebot/internal/app/session/state"
	"github.com/osa030/jukebot/internal/infra/metrics"
)

// IdleScheduler arms and disarms the delayed disconnect of idle sessions.
//
// Both Arm and Disarm must be called with the session gate held. The
// delayed action re-acquires the gate before acting and checks that its
// handle is still the armed one, so a Disarm that completed under the gate
// always prevents the disconnect.
type IdleScheduler struct {
	ctx       context.Context
	delay     time.Duration
	connector playback.Connector
	metrics   *metrics.Metrics
}

// NewIdleScheduler creates a scheduler. Cancelling ctx cancels every armed action.
// The connector tells a firing action whether its connection is still live.
func NewIdleScheduler(ctx context.Context, delay time.Duration, connector playback.Connector, m *metrics.Metrics) *IdleScheduler {
	return &IdleScheduler{
		ctx:       ctx,
		delay:     delay,
		connector: connector,
		metrics:   m,
	}
}

// Delay returns the idle timeout.
func (s *IdleScheduler) Delay() time.Duration {
	return s.delay
}

// Disarm cancels the armed action of the session, if any.
func (s *IdleScheduler) Disarm(st *state.State) {
	h := st.IdleLocked()
	if h == nil {
		return
	}
	h.Cancel()
	st.SetIdleLocked(nil)
	zlog.Debug().Msgf("idle disarmed: guild_id=%s idle_id=%s", st.GuildID(), h.ID)
}

// Arm disarms any previous action and schedules a disconnect of conn after
// the idle timeout, unless the session is playing or has queued tracks by then.
func (s *IdleScheduler) Arm(st *state.State, conn playback.Connection) *state.IdleHandle {
	s.Disarm(st)

	h := state.NewIdleHandle(s.ctx, uuid.New().String(), s.delay)
	st.SetIdleLocked(h)
	s.metrics.IdleArmed.Inc()
	zlog.Debug().Msgf("idle armed: guild_id=%s idle_id=%s deadline=%s",
		st.GuildID(), h.ID, h.Deadline.Format(time.TimeOnly))

	go s.wait(st, conn, h)
	return h
}

func (s *IdleScheduler) wait(st *state.State, conn playback.Connection, h *state.IdleHandle) {
	timer := time.NewTimer(s.delay)
	defer timer.Stop()

	select {
	case <-h.Done():
		return
	case <-timer.C:
	}
	s.fire(st, conn, h)
}

func (s *IdleScheduler) fire(st *state.State, conn playback.Connection, h *state.IdleHandle) {
	st.Lock()
	defer st.Unlock()

	// Disarmed or replaced while waiting for the gate
	if h.Cancelled() || st.IdleLocked() != h {
		return
	}
	st.SetIdleLocked(nil)
	h.Cancel()

	if cur, ok := s.connector.Connection(st.GuildID()); !ok || cur != conn {
		zlog.Debug().Msgf("idle action skipped, connection gone: guild_id=%s idle_id=%s", st.GuildID(), h.ID)
		return
	}

	if conn.Playing() || st.LenLocked() > 0 {
		zlog.Debug().Msgf("idle action skipped, session active: guild_id=%s idle_id=%s", st.GuildID(), h.ID)
		return
	}

	if err := conn.Disconnect(s.ctx); err != nil {
		s.metrics.HandlerErrors.WithLabelValues("idle_disconnect").Inc()
		zlog.Error().Err(err).Msgf("idle disconnect failed: guild_id=%s", st.GuildID())
		return
	}
	s.metrics.IdleDisconnects.Inc()
	zlog.Info().Msgf("idle disconnect: guild_id=%s idle_timeout=%v", st.GuildID(), s.delay)
}
