// Package lavalink binds the session core to a Lavalink audio node through disgolink.
package lavalink

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/disgoorg/disgolink/v3/disgolink"
	lavalinkapi "github.com/disgoorg/disgolink/v3/lavalink"
	"github.com/disgoorg/snowflake/v2"
	zlog "github.com/rs/zerolog/log"
)

// NodeConfig represents a single Lavalink node.
type NodeConfig struct {
	Name     string
	Address  string
	Password string
	Secure   bool
}

// NewClient creates a disgolink client for the bot user and connects every node.
func NewClient(ctx context.Context, userID snowflake.ID, nodes []NodeConfig) (disgolink.Client, error) {
	if len(nodes) == 0 {
		return nil, errors.New("at least one lavalink node is required")
	}

	client := disgolink.New(userID)
	for _, n := range nodes {
		_, err := client.AddNode(ctx, disgolink.NodeConfig{
			Name:     n.Name,
			Address:  n.Address,
			Password: n.Password,
			Secure:   n.Secure,
		})
		if err != nil {
			client.Close()
			return nil, errors.Wrapf(err, "failed to connect lavalink node %s", n.Name)
		}
		zlog.Info().Msgf("lavalink node connected: name=%s address=%s", n.Name, n.Address)
	}
	return client, nil
}

// audioPlayer is the part of disgolink.Player driven by a connection.
type audioPlayer interface {
	Update(ctx context.Context, opts ...lavalinkapi.PlayerUpdateOpt) error
	Destroy(ctx context.Context) error
}

// audioNode is the part of the disgolink client used by the binding.
type audioNode interface {
	player(guildID snowflake.ID) audioPlayer
	removePlayer(guildID snowflake.ID)
	OnVoiceStateUpdate(ctx context.Context, guildID snowflake.ID, channelID *snowflake.ID, sessionID string)
	OnVoiceServerUpdate(ctx context.Context, guildID snowflake.ID, token string, endpoint string)
}

type clientNode struct {
	disgolink.Client
}

func (c clientNode) player(guildID snowflake.ID) audioPlayer {
	return c.Client.Player(guildID)
}

func (c clientNode) removePlayer(guildID snowflake.ID) {
	c.Client.RemovePlayer(guildID)
}
