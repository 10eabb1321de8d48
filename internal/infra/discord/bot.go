// Package discord runs the Discord gateway connection of the bot.
package discord

import (
	"context"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"
	"github.com/disgoorg/snowflake/v2"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/jukebot/internal/app/playback"
)

// VoiceForwarder receives voice updates of the bot user itself.
type VoiceForwarder interface {
	OnVoiceStateUpdate(ctx context.Context, guildID snowflake.ID, channelID *snowflake.ID, sessionID string)
	OnVoiceServerUpdate(ctx context.Context, guildID snowflake.ID, token string, endpoint string)
}

// InteractionHandler handles slash command interactions.
type InteractionHandler interface {
	Commands() []*discordgo.ApplicationCommand
	Handle(s *discordgo.Session, i *discordgo.InteractionCreate)
}

// Config represents bot configuration.
type Config struct {
	Token          string
	CommandGuildID string // empty registers commands globally
}

// Bot is the Discord gateway connection. It implements the voice gateway
// and the voice roster used by the session core.
type Bot struct {
	session *discordgo.Session
	cfg     Config
	events  chan<- playback.Event

	mu       sync.RWMutex
	voice    VoiceForwarder
	handler  InteractionHandler
	commands []*discordgo.ApplicationCommand
}

// New creates a bot. Membership changes of non-bot users are sent to events.
func New(cfg Config, events chan<- playback.Event) (*Bot, error) {
	s, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create discord session")
	}
	s.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates
	s.StateEnabled = true

	b := &Bot{
		session: s,
		cfg:     cfg,
		events:  events,
	}
	s.AddHandler(b.onReady)
	s.AddHandler(b.onVoiceStateUpdate)
	s.AddHandler(b.onVoiceServerUpdate)
	s.AddHandler(b.onInteractionCreate)
	return b, nil
}

// Session returns the underlying discordgo session.
func (b *Bot) Session() *discordgo.Session {
	return b.session
}

// SetVoiceForwarder sets the receiver of the bot's own voice updates.
func (b *Bot) SetVoiceForwarder(v VoiceForwarder) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.voice = v
}

// SetInteractionHandler sets the slash command handler.
func (b *Bot) SetInteractionHandler(h InteractionHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handler = h
}

// Open connects to the gateway.
func (b *Bot) Open() error {
	if err := b.session.Open(); err != nil {
		return errors.Wrap(err, "failed to open discord session")
	}
	return nil
}

// UserID returns the bot user ID. Valid after Open.
func (b *Bot) UserID() (snowflake.ID, error) {
	if b.session.State == nil || b.session.State.User == nil {
		return 0, errors.New("discord session is not ready")
	}
	return snowflake.Parse(b.session.State.User.ID)
}

// RegisterCommands overwrites the application commands with the handler's commands.
func (b *Bot) RegisterCommands() error {
	b.mu.RLock()
	handler := b.handler
	b.mu.RUnlock()
	if handler == nil {
		return errors.New("no interaction handler set")
	}

	appID := b.session.State.User.ID
	created, err := b.session.ApplicationCommandBulkOverwrite(appID, b.cfg.CommandGuildID, handler.Commands())
	if err != nil {
		return errors.Wrap(err, "failed to register application commands")
	}

	b.mu.Lock()
	b.commands = created
	b.mu.Unlock()

	scope := "global"
	if b.cfg.CommandGuildID != "" {
		scope = "guild:" + b.cfg.CommandGuildID
	}
	zlog.Info().Msgf("registered slash commands: count=%d scope=%s", len(created), scope)
	return nil
}

// Close disconnects from the gateway.
func (b *Bot) Close() error {
	return b.session.Close()
}

// JoinVoice asks Discord to move the bot into a voice channel.
func (b *Bot) JoinVoice(guildID, channelID snowflake.ID) error {
	return b.session.ChannelVoiceJoinManual(guildID.String(), channelID.String(), false, true)
}

// LeaveVoice asks Discord to remove the bot from voice in a guild.
func (b *Bot) LeaveVoice(guildID snowflake.ID) error {
	return b.session.ChannelVoiceJoinManual(guildID.String(), "", false, false)
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	zlog.Info().Msgf("discord ready: user=%s guilds=%d", r.User.Username, len(r.Guilds))
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	b.mu.RLock()
	handler := b.handler
	b.mu.RUnlock()
	if handler == nil {
		return
	}
	handler.Handle(s, i)
}

func (b *Bot) onVoiceServerUpdate(s *discordgo.Session, e *discordgo.VoiceServerUpdate) {
	b.mu.RLock()
	voice := b.voice
	b.mu.RUnlock()
	if voice == nil {
		return
	}

	guildID, err := snowflake.Parse(e.GuildID)
	if err != nil {
		zlog.Warn().Err(err).Msgf("invalid guild id in voice server update: guild_id=%s", e.GuildID)
		return
	}
	voice.OnVoiceServerUpdate(context.Background(), guildID, e.Token, e.Endpoint)
}

func (b *Bot) onVoiceStateUpdate(s *discordgo.Session, e *discordgo.VoiceStateUpdate) {
	if s.State.User != nil && e.UserID == s.State.User.ID {
		b.forwardSelfVoiceState(e)
		return
	}
	if e.Member != nil && e.Member.User != nil && e.Member.User.Bot {
		return
	}

	event, err := membershipEvent(e)
	if err != nil {
		zlog.Warn().Err(err).Msgf("invalid voice state update: guild_id=%s user_id=%s", e.GuildID, e.UserID)
		return
	}
	b.events <- event
}

func (b *Bot) forwardSelfVoiceState(e *discordgo.VoiceStateUpdate) {
	b.mu.RLock()
	voice := b.voice
	b.mu.RUnlock()
	if voice == nil {
		return
	}

	guildID, err := snowflake.Parse(e.GuildID)
	if err != nil {
		zlog.Warn().Err(err).Msgf("invalid guild id in voice state update: guild_id=%s", e.GuildID)
		return
	}
	channelID, err := optionalID(e.ChannelID)
	if err != nil {
		zlog.Warn().Err(err).Msgf("invalid channel id in voice state update: channel_id=%s", e.ChannelID)
		return
	}
	voice.OnVoiceStateUpdate(context.Background(), guildID, channelID, e.SessionID)
}

// membershipEvent converts a voice state update of a guild member.
func membershipEvent(e *discordgo.VoiceStateUpdate) (playback.Event, error) {
	guildID, err := snowflake.Parse(e.GuildID)
	if err != nil {
		return playback.Event{}, errors.Wrap(err, "guild id")
	}
	userID, err := snowflake.Parse(e.UserID)
	if err != nil {
		return playback.Event{}, errors.Wrap(err, "user id")
	}
	after, err := optionalID(e.ChannelID)
	if err != nil {
		return playback.Event{}, errors.Wrap(err, "channel id")
	}

	var before *snowflake.ID
	if e.BeforeUpdate != nil {
		if before, err = optionalID(e.BeforeUpdate.ChannelID); err != nil {
			return playback.Event{}, errors.Wrap(err, "previous channel id")
		}
	}

	return playback.Event{
		Type:            playback.EventMembershipChanged,
		GuildID:         guildID,
		UserID:          userID,
		BeforeChannelID: before,
		AfterChannelID:  after,
	}, nil
}

func optionalID(s string) (*snowflake.ID, error) {
	if s == "" {
		return nil, nil
	}
	id, err := snowflake.Parse(s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
