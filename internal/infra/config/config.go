// Package config provides configuration loading from YAML files and the environment.
package config

import (
	"net"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/osa030/jukebot/internal/app/filter"
)

// Config represents the application configuration.
type Config struct {
	Discord   DiscordConfig           `yaml:"discord"`
	Lavalink  LavalinkConfig          `yaml:"lavalink"`
	Session   SessionConfig           `yaml:"session"`
	Resolver  ResolverConfig          `yaml:"resolver"`
	Spotify   SpotifyConfig           `yaml:"spotify"`
	Filters   map[string]FilterConfig `yaml:"filters"`
	RateLimit RateLimitConfig         `yaml:"rate_limit"`
	Admin     AdminConfig             `yaml:"admin"`
	Messages  MessagesConfig          `yaml:"messages"`
}

// DiscordConfig represents the Discord gateway configuration.
type DiscordConfig struct {
	Token string `yaml:"token" env:"DISCORD_TOKEN" validate:"required"`
	// CommandGuildID registers slash commands in a single guild instead of globally.
	CommandGuildID string `yaml:"command_guild_id" validate:"omitempty,numeric"`
}

// LavalinkConfig represents the audio node configuration.
type LavalinkConfig struct {
	Nodes                  []NodeConfig `yaml:"nodes" validate:"required,min=1,dive"`
	VoiceConnectTimeoutSec int          `yaml:"voice_connect_timeout_sec" default:"10" validate:"gte=1,lte=60"`
}

// NodeConfig represents a single Lavalink node.
type NodeConfig struct {
	Name     string `yaml:"name" default:"main"`
	Address  string `yaml:"address" validate:"required,hostname_port"`
	Password string `yaml:"password" validate:"required"`
	Secure   bool   `yaml:"secure"`
}

// SessionConfig represents guild session configuration.
type SessionConfig struct {
	IdleTimeoutSec    int `yaml:"idle_timeout_sec" env:"IDLE_TIMEOUT_SEC" default:"120" validate:"gte=1"`
	QueueDisplayLimit int `yaml:"queue_display_limit" default:"20" validate:"gte=1,lte=50"`
}

// ResolverConfig represents track resolution configuration.
type ResolverConfig struct {
	SearchPrefix string `yaml:"search_prefix" default:"ytsearch" validate:"required"`
	CacheSize    int    `yaml:"cache_size" default:"256" validate:"gte=0"`
}

// SpotifyConfig represents Spotify API configuration.
type SpotifyConfig struct {
	ClientID     string `yaml:"client_id" env:"SPOTIFY_CLIENT_ID"`
	ClientSecret string `yaml:"client_secret" env:"SPOTIFY_CLIENT_SECRET"`
	Market       string `yaml:"market" validate:"omitempty,len=2" default:"US"`
}

// FilterConfig represents a filter's configuration.
type FilterConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// RateLimitConfig represents the per-user slash command rate limit.
type RateLimitConfig struct {
	PerSecond float64 `yaml:"per_second" default:"1" validate:"gt=0"`
	Burst     int     `yaml:"burst" default:"3" validate:"gte=1"`
}

// AdminConfig represents the admin RPC server configuration.
type AdminConfig struct {
	Addr  string `yaml:"addr" default:":8080" validate:"required"`
	Token string `yaml:"token" env:"ADMIN_TOKEN"`
}

// MessagesConfig represents user-facing messages.
type MessagesConfig struct {
	DefaultError          string `yaml:"default_error" default:"Something went wrong."`
	TrackNotFound         string `yaml:"track_not_found" default:"No track found."`
	IndexOutOfRange       string `yaml:"index_out_of_range" default:"There is no track at that position."`
	NothingPlaying        string `yaml:"nothing_playing" default:"Nothing is playing."`
	NotConnected          string `yaml:"not_connected" default:"I am not in a voice channel."`
	NotInVoice            string `yaml:"not_in_voice" default:"Join a voice channel first."`
	Unavailable           string `yaml:"unavailable" default:"The audio node is unavailable, try again later."`
	DuplicateTrack        string `yaml:"duplicate_track" default:"That track is already queued."`
	DurationLimitExceeded string `yaml:"duration_limit_exceeded" default:"That track is too long or too short."`
	RateLimited           string `yaml:"rate_limited" default:"Slow down a little."`
}

// Load loads configuration from an optional YAML file.
// Environment variables take precedence over file values.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read config file")
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, errors.Wrap(err, "failed to parse config file")
		}
	}

	// Override with environment variables
	if err := env.Parse(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse environment")
	}
	cfg.overrideFromEnv()

	// Set defaults using creasty/defaults
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv applies the environment variables that address the first
// Lavalink node, creating it when the file defines none.
func (c *Config) overrideFromEnv() {
	host, port := os.Getenv("LAVALINK_HOST"), os.Getenv("LAVALINK_PORT")
	password := os.Getenv("LAVALINK_PASSWORD")
	if host == "" && port == "" && password == "" {
		return
	}

	if len(c.Lavalink.Nodes) == 0 {
		c.Lavalink.Nodes = append(c.Lavalink.Nodes, NodeConfig{})
	}
	node := &c.Lavalink.Nodes[0]

	if host != "" || port != "" {
		curHost, curPort, err := net.SplitHostPort(node.Address)
		if err != nil {
			curHost, curPort = "localhost", "2333"
		}
		if host != "" {
			curHost = host
		}
		if port != "" {
			curPort = port
		}
		node.Address = net.JoinHostPort(curHost, curPort)
	}
	if password != "" {
		node.Password = password
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	return nil
}

// IdleTimeout returns the idle disconnect delay.
func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.Session.IdleTimeoutSec) * time.Second
}

// VoiceConnectTimeout returns the voice handshake timeout.
func (c *Config) VoiceConnectTimeout() time.Duration {
	return time.Duration(c.Lavalink.VoiceConnectTimeoutSec) * time.Second
}

// SpotifyEnabled reports whether Spotify links can be resolved.
func (c *Config) SpotifyEnabled() bool {
	return c.Spotify.ClientID != "" && c.Spotify.ClientSecret != ""
}

// FilterSettings converts the filter section for filter.NewChainFromConfig.
func (c *Config) FilterSettings() map[string]filter.Settings {
	result := make(map[string]filter.Settings, len(c.Filters))
	for name, fc := range c.Filters {
		result[name] = filter.Settings{Enabled: fc.Enabled, Settings: fc.Settings}
	}
	return result
}

// GetMessage returns the message for the given outcome code.
func (c *Config) GetMessage(code string) string {
	switch code {
	case "track_not_found":
		return c.Messages.TrackNotFound
	case "index_out_of_range":
		return c.Messages.IndexOutOfRange
	case "nothing_playing":
		return c.Messages.NothingPlaying
	case "not_connected":
		return c.Messages.NotConnected
	case "not_in_voice":
		return c.Messages.NotInVoice
	case "unavailable":
		return c.Messages.Unavailable
	case "duplicate_track":
		return c.Messages.DuplicateTrack
	case "duration_limit_exceeded":
		return c.Messages.DurationLimitExceeded
	case "rate_limited":
		return c.Messages.RateLimited
	default:
		return c.Messages.DefaultError
	}
}
