package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Discord: DiscordConfig{Token: "discord-token"},
		Lavalink: LavalinkConfig{
			Nodes:                  []NodeConfig{{Name: "main", Address: "localhost:2333", Password: "youshallnotpass"}},
			VoiceConnectTimeoutSec: 10,
		},
		Session:   SessionConfig{IdleTimeoutSec: 120, QueueDisplayLimit: 20},
		Resolver:  ResolverConfig{SearchPrefix: "ytsearch", CacheSize: 256},
		RateLimit: RateLimitConfig{PerSecond: 1, Burst: 3},
		Admin:     AdminConfig{Addr: ":8080"},
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestConfig_Validate_RequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing discord token",
			mutate:  func(c *Config) { c.Discord.Token = "" },
			wantErr: true,
			errMsg:  "Token",
		},
		{
			name:    "no lavalink nodes",
			mutate:  func(c *Config) { c.Lavalink.Nodes = nil },
			wantErr: true,
			errMsg:  "Nodes",
		},
		{
			name:    "node address without port",
			mutate:  func(c *Config) { c.Lavalink.Nodes[0].Address = "localhost" },
			wantErr: true,
			errMsg:  "Address",
		},
		{
			name:    "zero idle timeout",
			mutate:  func(c *Config) { c.Session.IdleTimeoutSec = 0 },
			wantErr: true,
			errMsg:  "IdleTimeoutSec",
		},
		{
			name:    "invalid market length",
			mutate:  func(c *Config) { c.Spotify.Market = "JAPAN" },
			wantErr: true,
			errMsg:  "Market",
		},
		{
			name:    "non numeric command guild",
			mutate:  func(c *Config) { c.Discord.CommandGuildID = "guild" },
			wantErr: true,
			errMsg:  "CommandGuildID",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()

			if tt.wantErr {
				require.Error(t, err, "expected validation to fail")
				assert.Contains(t, err.Error(), tt.errMsg,
					"error message should mention the problematic field")
			} else {
				assert.NoError(t, err, "expected validation to pass")
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
discord:
  token: file-token
lavalink:
  nodes:
    - address: lavalink:2333
      password: secret
filters:
  duplicate_track_filter:
    enabled: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "main", cfg.Lavalink.Nodes[0].Name)
	assert.Equal(t, 120*time.Second, cfg.IdleTimeout())
	assert.Equal(t, 10*time.Second, cfg.VoiceConnectTimeout())
	assert.Equal(t, 20, cfg.Session.QueueDisplayLimit)
	assert.Equal(t, "ytsearch", cfg.Resolver.SearchPrefix)
	assert.Equal(t, 256, cfg.Resolver.CacheSize)
	assert.Equal(t, "US", cfg.Spotify.Market)
	assert.Equal(t, ":8080", cfg.Admin.Addr)
	assert.Equal(t, 3, cfg.RateLimit.Burst)
	assert.False(t, cfg.SpotifyEnabled())
	assert.Equal(t, "No track found.", cfg.GetMessage("track_not_found"))

	settings := cfg.FilterSettings()
	require.Contains(t, settings, "duplicate_track_filter")
	assert.True(t, settings["duplicate_track_filter"].Enabled)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
discord:
  token: file-token
lavalink:
  nodes:
    - address: lavalink:2333
      password: secret
session:
  idle_timeout_sec: 60
`)
	t.Setenv("DISCORD_TOKEN", "env-token")
	t.Setenv("IDLE_TIMEOUT_SEC", "30")
	t.Setenv("LAVALINK_HOST", "audio.internal")
	t.Setenv("LAVALINK_PASSWORD", "env-secret")
	t.Setenv("SPOTIFY_CLIENT_ID", "id")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "secret")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-token", cfg.Discord.Token)
	assert.Equal(t, 30*time.Second, cfg.IdleTimeout())
	assert.Equal(t, "audio.internal:2333", cfg.Lavalink.Nodes[0].Address)
	assert.Equal(t, "env-secret", cfg.Lavalink.Nodes[0].Password)
	assert.True(t, cfg.SpotifyEnabled())
}

func TestLoad_EnvOnly(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "env-token")
	t.Setenv("LAVALINK_HOST", "127.0.0.1")
	t.Setenv("LAVALINK_PORT", "2444")
	t.Setenv("LAVALINK_PASSWORD", "pw")

	cfg, err := Load("")
	require.NoError(t, err)

	require.Len(t, cfg.Lavalink.Nodes, 1)
	assert.Equal(t, "main", cfg.Lavalink.Nodes[0].Name)
	assert.Equal(t, "127.0.0.1:2444", cfg.Lavalink.Nodes[0].Address)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "discord: [unclosed"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "discord:\n  token: x\n"))
	assert.Error(t, err, "no lavalink node configured")
}

func TestConfig_GetMessage(t *testing.T) {
	cfg := validConfig()
	cfg.Messages = MessagesConfig{
		DefaultError:   "oops",
		NothingPlaying: "silence",
		DuplicateTrack: "again?",
	}

	assert.Equal(t, "silence", cfg.GetMessage("nothing_playing"))
	assert.Equal(t, "again?", cfg.GetMessage("duplicate_track"))
	assert.Equal(t, "oops", cfg.GetMessage("something_else"))
}
