package discord

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"
	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/jukebot/internal/app/session"
	"github.com/osa030/jukebot/internal/domain/track"
)

type fakeSessions struct {
	enqueueReq    session.EnqueueRequest
	enqueueResult *session.EnqueueResult
	listing       session.Listing
	removedIndex  int
	err           error
}

func (f *fakeSessions) Enqueue(ctx context.Context, req session.EnqueueRequest) (*session.EnqueueResult, error) {
	f.enqueueReq = req
	return f.enqueueResult, f.err
}

func (f *fakeSessions) List(guildID snowflake.ID) session.Listing {
	return f.listing
}

func (f *fakeSessions) Remove(ctx context.Context, guildID snowflake.ID, index int) (track.QueuedTrack, error) {
	f.removedIndex = index
	return track.QueuedTrack{Track: track.Track{Title: "gone"}}, f.err
}

func (f *fakeSessions) Skip(ctx context.Context, guildID snowflake.ID) error {
	return f.err
}

func (f *fakeSessions) Stop(ctx context.Context, guildID snowflake.ID) (*session.StopResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &session.StopResult{Cleared: 2, IdleTimeout: 2 * time.Minute}, nil
}

func (f *fakeSessions) Leave(ctx context.Context, guildID snowflake.ID) error {
	return f.err
}

type fakeVoice struct {
	channel *snowflake.ID
}

func (f fakeVoice) UserVoiceChannel(guildID, userID snowflake.ID) *snowflake.ID {
	return f.channel
}

type fakeMessages map[string]string

func (m fakeMessages) GetMessage(code string) string {
	if msg, ok := m[code]; ok {
		return msg
	}
	return m["default_error"]
}

var testMessages = fakeMessages{
	"default_error":   "oops",
	"track_not_found": "not found",
	"nothing_playing": "silence",
	"not_connected":   "not here",
	"duplicate_track": "again?",
	"rate_limited":    "slow down",
}

func newTestHandler(sessions *fakeSessions, channel *snowflake.ID) *Handler {
	return NewHandler(Config{RateLimitPerSecond: 1, RateLimitBurst: 3}, sessions, fakeVoice{channel: channel}, testMessages)
}

func invoke(command string, options map[string]any) Invocation {
	return Invocation{Command: command, GuildID: 10, UserID: 20, UserName: "alice", Options: options}
}

func TestHandler_Play(t *testing.T) {
	channel := snowflake.ID(30)
	sessions := &fakeSessions{enqueueResult: &session.EnqueueResult{Track: track.Track{Title: "Song"}, Started: true}}
	h := newTestHandler(sessions, &channel)

	reply := h.Dispatch(context.Background(), invoke(CommandPlay, map[string]any{"query": "lofi"}))

	assert.Equal(t, "▶️ Now playing: **Song**", reply.Content)
	assert.False(t, reply.Ephemeral)
	assert.Equal(t, "lofi", sessions.enqueueReq.Query)
	assert.Equal(t, &channel, sessions.enqueueReq.ChannelID)
	assert.Equal(t, track.Requester{UserID: 20, Name: "alice"}, sessions.enqueueReq.Requester)

	sessions.enqueueResult = &session.EnqueueResult{Track: track.Track{Title: "Next"}, Position: 2}
	reply = h.Dispatch(context.Background(), invoke(CommandPlay, map[string]any{"query": "next"}))
	assert.Equal(t, "✅ Queued: **Next** (position 2)", reply.Content)
}

func TestHandler_PlayMissingQuery(t *testing.T) {
	h := newTestHandler(&fakeSessions{}, nil)

	reply := h.Dispatch(context.Background(), invoke(CommandPlay, map[string]any{}))
	assert.Equal(t, "⚠️ oops", reply.Content)
	assert.True(t, reply.Ephemeral)
}

func TestHandler_Errors(t *testing.T) {
	tests := []struct {
		name    string
		command string
		options map[string]any
		err     error
		want    string
	}{
		{name: "no match", command: CommandPlay, options: map[string]any{"query": "x"}, err: errors.Wrap(session.ErrResolution, "query"), want: "⚠️ not found"},
		{name: "skip idle", command: CommandSkip, err: session.ErrNothingPlaying, want: "⚠️ silence"},
		{name: "stop disconnected", command: CommandStop, err: session.ErrNotConnected, want: "⚠️ not here"},
		{name: "leave disconnected", command: CommandLeave, err: session.ErrNotConnected, want: "⚠️ not here"},
		{name: "unknown failure", command: CommandRemove, options: map[string]any{"index": float64(1)}, err: errors.New("boom"), want: "⚠️ oops"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(&fakeSessions{err: tt.err}, nil)

			reply := h.Dispatch(context.Background(), invoke(tt.command, tt.options))

			assert.Equal(t, tt.want, reply.Content)
			assert.True(t, reply.Ephemeral)
		})
	}
}

func TestHandler_Remove(t *testing.T) {
	sessions := &fakeSessions{}
	h := newTestHandler(sessions, nil)

	// Integer options arrive as JSON numbers
	reply := h.Dispatch(context.Background(), invoke(CommandRemove, map[string]any{"index": float64(3)}))

	assert.Equal(t, 3, sessions.removedIndex)
	assert.Equal(t, "🗑️ Removed: **gone**", reply.Content)
}

func TestHandler_StopSkipLeave(t *testing.T) {
	h := newTestHandler(&fakeSessions{}, nil)

	assert.Equal(t, "⏹️ Stopped and cleared the queue. Leaving in 120 seconds unless something is played.",
		h.Dispatch(context.Background(), invoke(CommandStop, nil)).Content)
	assert.Equal(t, "⏭️ Skipped.", h.Dispatch(context.Background(), invoke(CommandSkip, nil)).Content)
	assert.Equal(t, "👋 Left the voice channel.", h.Dispatch(context.Background(), invoke(CommandLeave, nil)).Content)
}

func TestRenderListing(t *testing.T) {
	assert.Equal(t, "The queue is empty.", renderListing(session.Listing{}).Content)

	listing := session.Listing{
		Tracks: []track.QueuedTrack{
			{Track: track.Track{Title: "one", Duration: 3*time.Minute + 5*time.Second}},
			{Track: track.Track{URI: "https://example.com/two"}},
		},
		Total: 25,
	}
	assert.Equal(t,
		"🎶 **Queue**\n1. one `3:05`\n2. https://example.com/two\n... (25 tracks in total)",
		renderListing(listing).Content)
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0:59", formatDuration(59*time.Second))
	assert.Equal(t, "4:00", formatDuration(3*time.Minute+59600*time.Millisecond))
	assert.Equal(t, "1:02:03", formatDuration(time.Hour+2*time.Minute+3*time.Second))
}

func TestUserLimiter(t *testing.T) {
	l := newUserLimiter(0.001, 2)

	assert.True(t, l.Allow(1))
	assert.True(t, l.Allow(1))
	assert.False(t, l.Allow(1))
	assert.True(t, l.Allow(2), "limits are per user")
}

func TestInvocation(t *testing.T) {
	i := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type:    discordgo.InteractionApplicationCommand,
		GuildID: "10",
		Member:  &discordgo.Member{Nick: "Al", User: &discordgo.User{ID: "20", Username: "alice"}},
		Data: discordgo.ApplicationCommandInteractionData{
			Name: CommandRemove,
			Options: []*discordgo.ApplicationCommandInteractionDataOption{
				{Name: "index", Type: discordgo.ApplicationCommandOptionInteger, Value: float64(2)},
			},
		},
	}}

	inv, err := invocation(i)
	require.NoError(t, err)
	assert.Equal(t, CommandRemove, inv.Command)
	assert.Equal(t, snowflake.ID(10), inv.GuildID)
	assert.Equal(t, snowflake.ID(20), inv.UserID)
	assert.Equal(t, "Al", inv.UserName)
	assert.Equal(t, map[string]any{"index": float64(2)}, inv.Options)

	_, err = invocation(&discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type: discordgo.InteractionApplicationCommand,
		User: &discordgo.User{ID: "20"},
	}})
	assert.Error(t, err, "direct messages are rejected")
}

func TestDefinitions(t *testing.T) {
	names := make([]string, 0)
	for _, c := range Definitions() {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{CommandPlay, CommandQueue, CommandRemove, CommandSkip, CommandStop, CommandLeave}, names)
}
