package discord

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/jukebot/internal/app/playback"
)

func testState(t *testing.T) *discordgo.State {
	t.Helper()
	state := discordgo.NewState()
	state.User = &discordgo.User{ID: "1", Bot: true}

	require.NoError(t, state.GuildAdd(&discordgo.Guild{
		ID: "10",
		Members: []*discordgo.Member{
			{User: &discordgo.User{ID: "2"}},
			{User: &discordgo.User{ID: "3", Bot: true}},
		},
		VoiceStates: []*discordgo.VoiceState{
			{GuildID: "10", UserID: "1", ChannelID: "100"},
			{GuildID: "10", UserID: "2", ChannelID: "100"},
			{GuildID: "10", UserID: "3", ChannelID: "100"},
			{GuildID: "10", UserID: "4", ChannelID: "200"},
			{GuildID: "10", UserID: "5", ChannelID: "200", Member: &discordgo.Member{User: &discordgo.User{ID: "5", Bot: true}}},
		},
	}))
	return state
}

func TestHumanCount(t *testing.T) {
	state := testState(t)

	tests := []struct {
		name    string
		guild   string
		channel string
		count   int
		ok      bool
	}{
		{name: "bot itself and other bots are excluded", guild: "10", channel: "100", count: 1, ok: true},
		{name: "uncached member counts as human", guild: "10", channel: "200", count: 1, ok: true},
		{name: "empty channel", guild: "10", channel: "300", count: 0, ok: true},
		{name: "guild not cached", guild: "99", channel: "100", count: 0, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			count, ok := humanCount(state, tt.guild, tt.channel)
			assert.Equal(t, tt.count, count)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestMembershipEvent(t *testing.T) {
	tests := []struct {
		name   string
		update *discordgo.VoiceStateUpdate
		before *snowflake.ID
		after  *snowflake.ID
	}{
		{
			name: "joined",
			update: &discordgo.VoiceStateUpdate{
				VoiceState: &discordgo.VoiceState{GuildID: "10", UserID: "2", ChannelID: "100"},
			},
			after: idPtr(100),
		},
		{
			name: "left",
			update: &discordgo.VoiceStateUpdate{
				VoiceState:   &discordgo.VoiceState{GuildID: "10", UserID: "2"},
				BeforeUpdate: &discordgo.VoiceState{GuildID: "10", UserID: "2", ChannelID: "100"},
			},
			before: idPtr(100),
		},
		{
			name: "moved",
			update: &discordgo.VoiceStateUpdate{
				VoiceState:   &discordgo.VoiceState{GuildID: "10", UserID: "2", ChannelID: "200"},
				BeforeUpdate: &discordgo.VoiceState{GuildID: "10", UserID: "2", ChannelID: "100"},
			},
			before: idPtr(100),
			after:  idPtr(200),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := membershipEvent(tt.update)
			require.NoError(t, err)

			assert.Equal(t, playback.EventMembershipChanged, e.Type)
			assert.Equal(t, snowflake.ID(10), e.GuildID)
			assert.Equal(t, snowflake.ID(2), e.UserID)
			assert.Equal(t, tt.before, e.BeforeChannelID)
			assert.Equal(t, tt.after, e.AfterChannelID)
		})
	}
}

func TestMembershipEvent_InvalidID(t *testing.T) {
	_, err := membershipEvent(&discordgo.VoiceStateUpdate{
		VoiceState: &discordgo.VoiceState{GuildID: "guild", UserID: "2"},
	})
	assert.Error(t, err)
}

func idPtr(id snowflake.ID) *snowflake.ID {
	return &id
}
