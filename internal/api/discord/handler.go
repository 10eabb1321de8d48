package discord

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/cockroachdb/errors"
	"github.com/disgoorg/snowflake/v2"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/jukebot/internal/app/session"
	"github.com/osa030/jukebot/internal/domain/track"
)

// Sessions is the command surface of the session manager.
type Sessions interface {
	Enqueue(ctx context.Context, req session.EnqueueRequest) (*session.EnqueueResult, error)
	List(guildID snowflake.ID) session.Listing
	Remove(ctx context.Context, guildID snowflake.ID, index int) (track.QueuedTrack, error)
	Skip(ctx context.Context, guildID snowflake.ID) error
	Stop(ctx context.Context, guildID snowflake.ID) (*session.StopResult, error)
	Leave(ctx context.Context, guildID snowflake.ID) error
}

// VoiceLocator finds the voice channel of a guild member.
type VoiceLocator interface {
	UserVoiceChannel(guildID, userID snowflake.ID) *snowflake.ID
}

// Config represents handler configuration.
type Config struct {
	RateLimitPerSecond float64
	RateLimitBurst     int
	CommandTimeout     time.Duration
}

// Invocation is a decoded slash command.
type Invocation struct {
	Command  string
	GuildID  snowflake.ID
	UserID   snowflake.ID
	UserName string
	Options  map[string]any
}

// Handler answers slash commands.
type Handler struct {
	sessions Sessions
	voice    VoiceLocator
	messages MessageSource
	limiter  *userLimiter
	validate *validator.Validate
	timeout  time.Duration
}

// NewHandler creates a new slash command handler.
func NewHandler(cfg Config, sessions Sessions, voice VoiceLocator, messages MessageSource) *Handler {
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = 30 * time.Second
	}
	return &Handler{
		sessions: sessions,
		voice:    voice,
		messages: messages,
		limiter:  newUserLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst),
		validate: validator.New(),
		timeout:  cfg.CommandTimeout,
	}
}

// Commands returns the slash command definitions.
func (h *Handler) Commands() []*discordgo.ApplicationCommand {
	return Definitions()
}

// Handle answers an application command interaction.
func (h *Handler) Handle(s *discordgo.Session, i *discordgo.InteractionCreate) {
	inv, err := invocation(i)
	if err != nil {
		zlog.Warn().Err(err).Msg("invalid interaction")
		h.respond(s, i, renderCode(h.messages, "default_error"))
		return
	}
	zlog.Info().Msgf("command received: command=%s guild_id=%s user_id=%s", inv.Command, inv.GuildID, inv.UserID)

	if !h.limiter.Allow(inv.UserID) {
		h.respond(s, i, renderCode(h.messages, "rate_limited"))
		return
	}

	// Resolution and the voice handshake can exceed the interaction deadline
	if inv.Command == CommandPlay {
		err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		})
		if err != nil {
			zlog.Error().Err(err).Msgf("failed to defer response: command=%s", inv.Command)
			return
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()
	reply := h.Dispatch(ctx, inv)

	if inv.Command == CommandPlay {
		h.followup(s, i, reply)
		return
	}
	h.respond(s, i, reply)
}

// Dispatch runs a command and renders its outcome.
func (h *Handler) Dispatch(ctx context.Context, inv Invocation) Reply {
	switch inv.Command {
	case CommandPlay:
		var opts playOptions
		if err := h.decode(inv.Options, &opts); err != nil {
			return renderCode(h.messages, "default_error")
		}
		result, err := h.sessions.Enqueue(ctx, session.EnqueueRequest{
			GuildID:   inv.GuildID,
			ChannelID: h.voice.UserVoiceChannel(inv.GuildID, inv.UserID),
			Query:     opts.Query,
			Requester: track.Requester{UserID: inv.UserID, Name: inv.UserName},
		})
		if err != nil {
			return renderError(h.messages, err)
		}
		return renderEnqueue(result)

	case CommandQueue:
		return renderListing(h.sessions.List(inv.GuildID))

	case CommandRemove:
		var opts removeOptions
		if err := h.decode(inv.Options, &opts); err != nil {
			return renderCode(h.messages, "index_out_of_range")
		}
		removed, err := h.sessions.Remove(ctx, inv.GuildID, opts.Index)
		if err != nil {
			return renderError(h.messages, err)
		}
		return renderRemoved(removed)

	case CommandSkip:
		if err := h.sessions.Skip(ctx, inv.GuildID); err != nil {
			return renderError(h.messages, err)
		}
		return renderSkipped()

	case CommandStop:
		result, err := h.sessions.Stop(ctx, inv.GuildID)
		if err != nil {
			return renderError(h.messages, err)
		}
		return renderStopped(result)

	case CommandLeave:
		if err := h.sessions.Leave(ctx, inv.GuildID); err != nil {
			return renderError(h.messages, err)
		}
		return renderLeft()

	default:
		zlog.Warn().Msgf("unknown command: command=%s", inv.Command)
		return renderCode(h.messages, "default_error")
	}
}

func (h *Handler) decode(options map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create decoder")
	}
	if err := decoder.Decode(options); err != nil {
		return errors.Wrap(err, "failed to decode options")
	}
	if err := h.validate.Struct(out); err != nil {
		return errors.Wrap(err, "invalid options")
	}
	return nil
}

func (h *Handler) respond(s *discordgo.Session, i *discordgo.InteractionCreate, reply Reply) {
	data := &discordgo.InteractionResponseData{Content: reply.Content}
	if reply.Ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		zlog.Error().Err(err).Msg("failed to respond to interaction")
	}
}

func (h *Handler) followup(s *discordgo.Session, i *discordgo.InteractionCreate, reply Reply) {
	params := &discordgo.WebhookParams{Content: reply.Content}
	if reply.Ephemeral {
		params.Flags = discordgo.MessageFlagsEphemeral
	}
	if _, err := s.FollowupMessageCreate(i.Interaction, true, params); err != nil {
		zlog.Error().Err(err).Msg("failed to send followup")
	}
}

// invocation decodes a guild application command interaction.
func invocation(i *discordgo.InteractionCreate) (Invocation, error) {
	if i.GuildID == "" || i.Member == nil || i.Member.User == nil {
		return Invocation{}, errors.New("command used outside a guild")
	}
	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return Invocation{}, errors.Wrap(err, "guild id")
	}
	userID, err := snowflake.Parse(i.Member.User.ID)
	if err != nil {
		return Invocation{}, errors.Wrap(err, "user id")
	}

	data := i.ApplicationCommandData()
	options := make(map[string]any, len(data.Options))
	for _, opt := range data.Options {
		options[opt.Name] = opt.Value
	}

	name := i.Member.Nick
	if name == "" {
		name = i.Member.User.Username
	}

	return Invocation{
		Command:  data.Name,
		GuildID:  guildID,
		UserID:   userID,
		UserName: name,
		Options:  options,
	}, nil
}
