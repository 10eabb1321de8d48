package discord

import (
	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	zlog "github.com/rs/zerolog/log"
)

// HumanCount returns the number of non-bot members in a voice channel,
// read from the gateway state cache. ok is false when the guild is not cached.
func (b *Bot) HumanCount(guildID, channelID snowflake.ID) (int, bool) {
	return humanCount(b.session.State, guildID.String(), channelID.String())
}

// UserVoiceChannel returns the voice channel a member is in, or nil.
func (b *Bot) UserVoiceChannel(guildID, userID snowflake.ID) *snowflake.ID {
	vs, err := b.session.State.VoiceState(guildID.String(), userID.String())
	if err != nil || vs.ChannelID == "" {
		return nil
	}
	id, err := snowflake.Parse(vs.ChannelID)
	if err != nil {
		return nil
	}
	return &id
}

func humanCount(state *discordgo.State, guildID, channelID string) (int, bool) {
	guild, err := state.Guild(guildID)
	if err != nil {
		zlog.Warn().Err(err).Msgf("guild not in state cache: guild_id=%s", guildID)
		return 0, false
	}

	// Guild.VoiceStates is guarded by the state lock
	state.RLock()
	defer state.RUnlock()

	count := 0
	for _, vs := range guild.VoiceStates {
		if vs.ChannelID != channelID {
			continue
		}
		if isBot(state, guild.ID, vs) {
			continue
		}
		count++
	}
	return count, true
}

// isBot reports whether a voice state belongs to a bot. Members missing
// from the cache count as humans.
func isBot(state *discordgo.State, guildID string, vs *discordgo.VoiceState) bool {
	if state.User != nil && vs.UserID == state.User.ID {
		return true
	}
	if vs.Member != nil && vs.Member.User != nil {
		return vs.Member.User.Bot
	}
	for _, m := range stateMembers(state, guildID) {
		if m.User != nil && m.User.ID == vs.UserID {
			return m.User.Bot
		}
	}
	return false
}

func stateMembers(state *discordgo.State, guildID string) []*discordgo.Member {
	for _, g := range state.Guilds {
		if g.ID == guildID {
			return g.Members
		}
	}
	return nil
}
