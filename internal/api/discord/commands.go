// Package discord provides the slash command surface of the bot.
package discord

import (
	"github.com/bwmarrin/discordgo"
)

const (
	CommandPlay   = "play"
	CommandQueue  = "queue"
	CommandRemove = "remove"
	CommandSkip   = "skip"
	CommandStop   = "stop"
	CommandLeave  = "leave"
)

var minIndex = float64(1)

// Definitions returns the slash command definitions.
func Definitions() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        CommandPlay,
			Description: "Play a link or search result, or add it to the queue",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "query",
					Description: "Link or search keywords",
					Required:    true,
				},
			},
		},
		{
			Name:        CommandQueue,
			Description: "Show the queue",
		},
		{
			Name:        CommandRemove,
			Description: "Remove a track from the queue",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "index",
					Description: "Position in the queue, starting at 1",
					Required:    true,
					MinValue:    &minIndex,
				},
			},
		},
		{
			Name:        CommandSkip,
			Description: "Skip the current track",
		},
		{
			Name:        CommandStop,
			Description: "Stop playback and clear the queue (starts the auto-leave timer)",
		},
		{
			Name:        CommandLeave,
			Description: "Make the bot leave the voice channel",
		},
	}
}

// playOptions are the options of the play command.
type playOptions struct {
	Query string `mapstructure:"query" validate:"required"`
}

// removeOptions are the options of the remove command.
type removeOptions struct {
	Index int `mapstructure:"index" validate:"required"`
}
