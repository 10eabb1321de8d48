package session

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/disgoorg/snowflake/v2"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/jukebot/internal/app/session/state"
	"github.com/osa030/jukebot/internal/domain/track"
)

// EnqueueRequest represents a request to play or queue a track.
type EnqueueRequest struct {
	GuildID   snowflake.ID
	ChannelID *snowflake.ID // Requester's voice channel; nil when not in voice
	Query     string
	Requester track.Requester
}

// EnqueueResult represents the outcome of a successful enqueue.
type EnqueueResult struct {
	Track    track.Track
	Started  bool // Playback started immediately
	Position int  // 1-based queue position when not started
}

// Listing is a capped view of a guild queue.
type Listing struct {
	Tracks []track.QueuedTrack
	Total  int
}

// Overflow returns the number of queued tracks not included in Tracks.
func (l Listing) Overflow() int {
	return l.Total - len(l.Tracks)
}

// StopResult represents the outcome of a stop.
type StopResult struct {
	Cleared     int
	IdleTimeout time.Duration
}

// Enqueue resolves the query and either starts it or appends it to the
// queue, joining or moving to the requester's voice channel as needed.
func (m *Manager) Enqueue(ctx context.Context, req EnqueueRequest) (*EnqueueResult, error) {
	result, err := m.enqueue(ctx, req)
	return result, m.observe("play", req.GuildID, err)
}

func (m *Manager) enqueue(ctx context.Context, req EnqueueRequest) (*EnqueueResult, error) {
	if req.ChannelID == nil {
		return nil, ErrNotInVoice
	}

	st := m.registry.GetOrCreate(req.GuildID)
	st.Lock()
	defer st.Unlock()

	m.idle.Disarm(st)

	result, err := m.enqueueLocked(ctx, st, req)
	if err != nil {
		m.rearmLocked(st)
		return nil, err
	}
	return result, nil
}

func (m *Manager) enqueueLocked(ctx context.Context, st *state.State, req EnqueueRequest) (*EnqueueResult, error) {
	t, err := m.resolver.Resolve(ctx, req.Query)
	if err != nil {
		if errors.Is(err, ErrResolution) {
			return nil, err
		}
		return nil, unavailable(err, "failed to resolve query")
	}

	if res := m.filters.Execute(ctx, t, st.TracksLocked()); !res.Accepted {
		zlog.Info().Msgf("track rejected: guild_id=%s code=%s title=%q", req.GuildID, res.Code, t.DisplayTitle())
		return nil, rejected(res.Code)
	}

	conn, err := m.connector.Connect(ctx, req.GuildID, *req.ChannelID)
	if err != nil {
		return nil, unavailable(err, "failed to join voice channel")
	}

	if conn.Playing() {
		position := st.EnqueueLocked(track.QueuedTrack{
			Track:     t,
			Requester: req.Requester,
			AddedAt:   time.Now(),
		})
		m.metrics.TracksEnqueued.Inc()
		zlog.Info().Msgf("track queued: guild_id=%s title=%q position=%d requester=%s",
			req.GuildID, t.DisplayTitle(), position, req.Requester.UserID)
		return &EnqueueResult{Track: t, Position: position}, nil
	}

	if err := conn.Play(ctx, t); err != nil {
		return nil, unavailable(err, "failed to start playback")
	}
	m.metrics.TracksStarted.Inc()
	zlog.Info().Msgf("track started: guild_id=%s title=%q requester=%s",
		req.GuildID, t.DisplayTitle(), req.Requester.UserID)
	return &EnqueueResult{Track: t, Started: true}, nil
}

// rearmLocked restarts the idle countdown after a failed enqueue left a
// connected session with nothing to do.
func (m *Manager) rearmLocked(st *state.State) {
	conn, ok := m.connector.Connection(st.GuildID())
	if !ok || conn.Playing() || st.LenLocked() > 0 {
		return
	}
	m.idle.Arm(st, conn)
}

// List returns the first QueueDisplayLimit queued tracks and the queue length.
func (m *Manager) List(guildID snowflake.ID) Listing {
	st, ok := m.registry.Get(guildID)
	if !ok {
		return Listing{Tracks: []track.QueuedTrack{}}
	}

	snap := st.Snapshot()
	tracks := snap.Queue
	if len(tracks) > m.config.QueueDisplayLimit {
		tracks = tracks[:m.config.QueueDisplayLimit]
	}
	return Listing{Tracks: tracks, Total: len(snap.Queue)}
}

// Remove removes the queued track at a 1-based index.
func (m *Manager) Remove(ctx context.Context, guildID snowflake.ID, index int) (track.QueuedTrack, error) {
	removed, err := m.remove(guildID, index)
	return removed, m.observe("remove", guildID, err)
}

func (m *Manager) remove(guildID snowflake.ID, index int) (track.QueuedTrack, error) {
	st, ok := m.registry.Get(guildID)
	if !ok {
		return track.QueuedTrack{}, errors.Wrapf(ErrIndexOutOfRange, "index %d, queue length 0", index)
	}

	st.Lock()
	defer st.Unlock()

	removed, err := st.RemoveLocked(index)
	if err != nil {
		return track.QueuedTrack{}, err
	}
	zlog.Info().Msgf("track removed: guild_id=%s index=%d title=%q", guildID, index, removed.Track.DisplayTitle())
	return removed, nil
}

// Skip stops the current track. The queue advances when the audio node
// reports the stopped track.
func (m *Manager) Skip(ctx context.Context, guildID snowflake.ID) error {
	return m.observe("skip", guildID, m.skip(ctx, guildID))
}

func (m *Manager) skip(ctx context.Context, guildID snowflake.ID) error {
	conn, ok := m.connector.Connection(guildID)
	if !ok || !conn.Playing() {
		return ErrNothingPlaying
	}
	if err := conn.Stop(ctx); err != nil {
		return unavailable(err, "failed to stop current track")
	}
	zlog.Info().Msgf("track skipped: guild_id=%s", guildID)
	return nil
}

// Stop clears the queue, stops playback and starts the idle countdown.
func (m *Manager) Stop(ctx context.Context, guildID snowflake.ID) (*StopResult, error) {
	result, err := m.stop(ctx, guildID)
	return result, m.observe("stop", guildID, err)
}

func (m *Manager) stop(ctx context.Context, guildID snowflake.ID) (*StopResult, error) {
	conn, ok := m.connector.Connection(guildID)
	if !ok {
		return nil, ErrNotConnected
	}

	st := m.registry.GetOrCreate(guildID)
	st.Lock()
	defer st.Unlock()

	cleared := st.ClearLocked()

	var stopErr error
	if conn.Playing() {
		stopErr = conn.Stop(ctx)
	}
	m.idle.Arm(st, conn)

	if stopErr != nil {
		return nil, unavailable(stopErr, "failed to stop playback")
	}
	zlog.Info().Msgf("playback stopped: guild_id=%s cleared=%d", guildID, len(cleared))
	return &StopResult{Cleared: len(cleared), IdleTimeout: m.idle.Delay()}, nil
}

// Leave clears the queue and disconnects immediately.
func (m *Manager) Leave(ctx context.Context, guildID snowflake.ID) error {
	return m.observe("leave", guildID, m.leave(ctx, guildID))
}

func (m *Manager) leave(ctx context.Context, guildID snowflake.ID) error {
	conn, ok := m.connector.Connection(guildID)
	if !ok {
		return ErrNotConnected
	}

	st := m.registry.GetOrCreate(guildID)
	st.Lock()
	defer st.Unlock()

	cleared := st.ClearLocked()
	m.idle.Disarm(st)

	if err := conn.Disconnect(ctx); err != nil {
		return unavailable(err, "failed to disconnect")
	}
	zlog.Info().Msgf("left voice channel: guild_id=%s cleared=%d", guildID, len(cleared))
	return nil
}

func (m *Manager) observe(command string, guildID snowflake.ID, err error) error {
	if err == nil {
		return nil
	}
	kind := ErrorKind(err)
	m.metrics.CommandErrors.WithLabelValues(command, kind).Inc()
	if kind == "unavailable" || kind == "unknown" {
		zlog.Error().Err(err).Msgf("command failed: command=%s guild_id=%s", command, guildID)
	} else {
		zlog.Debug().Msgf("command refused: command=%s guild_id=%s kind=%s", command, guildID, kind)
	}
	return err
}
