package lavalink

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/disgoorg/disgolink/v3/disgolink"
	lavalinkapi "github.com/disgoorg/disgolink/v3/lavalink"
	"github.com/disgoorg/snowflake/v2"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/jukebot/internal/app/playback"
)

// ErrVoiceTimeout is returned when Discord does not complete the voice
// handshake within the configured timeout.
var ErrVoiceTimeout = errors.New("voice connection timed out")

// VoiceGateway sends voice state changes of the bot to Discord.
type VoiceGateway interface {
	JoinVoice(guildID, channelID snowflake.ID) error
	LeaveVoice(guildID snowflake.ID) error
}

// Binding implements playback.Connector on top of a Lavalink node.
// Voice updates of the bot user must be forwarded to OnVoiceStateUpdate
// and OnVoiceServerUpdate.
type Binding struct {
	node    audioNode
	gateway VoiceGateway
	events  chan<- playback.Event
	timeout time.Duration

	mu      sync.Mutex
	conns   map[snowflake.ID]*connection
	waiters map[snowflake.ID]chan struct{}

	done chan struct{}
	once sync.Once
}

// NewBinding creates a binding on a connected disgolink client and
// registers its track-end listener. Track-end notifications are sent to events.
func NewBinding(client disgolink.Client, gateway VoiceGateway, events chan<- playback.Event, voiceTimeout time.Duration) *Binding {
	b := newBinding(clientNode{Client: client}, gateway, events, voiceTimeout)
	client.AddListeners(disgolink.NewListenerFunc(b.onTrackEnd))
	return b
}

func newBinding(node audioNode, gateway VoiceGateway, events chan<- playback.Event, voiceTimeout time.Duration) *Binding {
	return &Binding{
		node:    node,
		gateway: gateway,
		events:  events,
		timeout: voiceTimeout,
		conns:   make(map[snowflake.ID]*connection),
		waiters: make(map[snowflake.ID]chan struct{}),
		done:    make(chan struct{}),
	}
}

// Connection returns the live connection of a guild.
func (b *Binding) Connection(guildID snowflake.ID) (playback.Connection, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	conn, ok := b.conns[guildID]
	if !ok {
		return nil, false
	}
	return conn, true
}

// Connect joins channelID, or moves the existing connection there, and
// waits for the voice handshake.
func (b *Binding) Connect(ctx context.Context, guildID, channelID snowflake.ID) (playback.Connection, error) {
	b.mu.Lock()
	conn, ok := b.conns[guildID]
	b.mu.Unlock()

	if ok {
		if current, _ := conn.ChannelID(); current != channelID {
			if err := conn.Move(ctx, channelID); err != nil {
				return nil, err
			}
		}
		return conn, nil
	}

	ready := b.expectVoiceServer(guildID)
	defer b.forgetVoiceServer(guildID, ready)

	if err := b.gateway.JoinVoice(guildID, channelID); err != nil {
		return nil, errors.Wrapf(err, "failed to join voice channel %s", channelID)
	}

	timer := time.NewTimer(b.timeout)
	defer timer.Stop()

	select {
	case <-ready:
	case <-timer.C:
		b.abortJoin(guildID)
		return nil, errors.Wrapf(ErrVoiceTimeout, "guild %s after %v", guildID, b.timeout)
	case <-ctx.Done():
		b.abortJoin(guildID)
		return nil, errors.Wrap(ctx.Err(), "voice connection aborted")
	}

	conn = &connection{
		binding:   b,
		guildID:   guildID,
		channelID: channelID,
		player:    b.node.player(guildID),
	}

	b.mu.Lock()
	b.conns[guildID] = conn
	b.mu.Unlock()

	zlog.Info().Msgf("voice connected: guild_id=%s channel_id=%s", guildID, channelID)
	return conn, nil
}

func (b *Binding) abortJoin(guildID snowflake.ID) {
	if err := b.gateway.LeaveVoice(guildID); err != nil {
		zlog.Warn().Err(err).Msgf("failed to leave voice after aborted join: guild_id=%s", guildID)
	}
}

func (b *Binding) expectVoiceServer(guildID snowflake.ID) chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan struct{})
	b.waiters[guildID] = ch
	return ch
}

func (b *Binding) forgetVoiceServer(guildID snowflake.ID, ch chan struct{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.waiters[guildID] == ch {
		delete(b.waiters, guildID)
	}
}

// OnVoiceStateUpdate forwards a voice state update of the bot user.
// channelID is nil when the bot left voice.
func (b *Binding) OnVoiceStateUpdate(ctx context.Context, guildID snowflake.ID, channelID *snowflake.ID, sessionID string) {
	b.node.OnVoiceStateUpdate(ctx, guildID, channelID, sessionID)

	b.mu.Lock()
	conn, ok := b.conns[guildID]
	if ok && channelID == nil {
		// Disconnected from outside, e.g. kicked by a moderator
		delete(b.conns, guildID)
	}
	b.mu.Unlock()

	if !ok {
		return
	}
	if channelID == nil {
		conn.clearTrack()
		b.node.removePlayer(guildID)
		zlog.Info().Msgf("voice disconnected externally: guild_id=%s", guildID)
		return
	}
	conn.setChannel(*channelID)
}

// OnVoiceServerUpdate forwards a voice server update and completes a pending join.
func (b *Binding) OnVoiceServerUpdate(ctx context.Context, guildID snowflake.ID, token string, endpoint string) {
	b.node.OnVoiceServerUpdate(ctx, guildID, token, endpoint)

	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.waiters[guildID]; ok {
		close(ch)
		delete(b.waiters, guildID)
	}
}

func (b *Binding) onTrackEnd(player disgolink.Player, event lavalinkapi.TrackEndEvent) {
	b.trackEnded(player.GuildID(), event.Track.Encoded, string(event.Reason))
}

// trackEnded clears the current track of the guild and notifies the
// session core. End events for a track other than the current one are stale
// and dropped.
func (b *Binding) trackEnded(guildID snowflake.ID, encoded string, reason string) {
	b.mu.Lock()
	conn, ok := b.conns[guildID]
	b.mu.Unlock()
	if !ok {
		zlog.Debug().Msgf("track end without connection: guild_id=%s reason=%s", guildID, reason)
		return
	}
	if !conn.finish(encoded) {
		zlog.Debug().Msgf("stale track end dropped: guild_id=%s reason=%s", guildID, reason)
		return
	}

	b.emit(playback.Event{
		Type:    playback.EventTrackEnded,
		GuildID: guildID,
		Reason:  endReason(reason),
	})
}

func (b *Binding) emit(e playback.Event) {
	select {
	case b.events <- e:
	case <-b.done:
	}
}

func (b *Binding) drop(guildID snowflake.ID, conn *connection) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conns[guildID] == conn {
		delete(b.conns, guildID)
	}
}

// Close stops event delivery.
func (b *Binding) Close() {
	b.once.Do(func() {
		close(b.done)
	})
}

// GuildIDs returns the guilds with a live connection.
func (b *Binding) GuildIDs() []snowflake.ID {
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := make([]snowflake.ID, 0, len(b.conns))
	for id := range b.conns {
		ids = append(ids, id)
	}
	return ids
}

func endReason(reason string) playback.EndReason {
	switch lavalinkapi.TrackEndReason(reason) {
	case lavalinkapi.TrackEndReasonFinished:
		return playback.EndFinished
	case lavalinkapi.TrackEndReasonLoadFailed:
		return playback.EndLoadFailed
	case lavalinkapi.TrackEndReasonStopped:
		return playback.EndStopped
	case lavalinkapi.TrackEndReasonReplaced:
		return playback.EndReplaced
	default:
		return playback.EndCleanup
	}
}
