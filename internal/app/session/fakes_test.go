package session

import (
	"context"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/disgoorg/snowflake/v2"

	"github.com/osa030/jukebot/internal/app/filter"
	"github.com/osa030/jukebot/internal/app/playback"
	"github.com/osa030/jukebot/internal/app/resolver"
	"github.com/osa030/jukebot/internal/domain/track"
)

type fakeConn struct {
	mu        sync.Mutex
	connector *fakeConnector
	guildID   snowflake.ID
	channelID snowflake.ID
	playing   bool

	plays       []string
	stops       int
	disconnects int

	playErr       error
	stopErr       error
	disconnectErr error

	// onStop runs after a successful Stop, outside the connection lock.
	onStop func()
}

func (c *fakeConn) Play(ctx context.Context, t track.Track) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.playErr != nil {
		return c.playErr
	}
	c.plays = append(c.plays, t.Title)
	c.playing = true
	return nil
}

func (c *fakeConn) Stop(ctx context.Context) error {
	c.mu.Lock()
	c.stops++
	if c.stopErr != nil {
		err := c.stopErr
		c.mu.Unlock()
		return err
	}
	c.playing = false
	hook := c.onStop
	c.mu.Unlock()

	if hook != nil {
		hook()
	}
	return nil
}

func (c *fakeConn) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	c.disconnects++
	err := c.disconnectErr
	if err == nil {
		c.playing = false
	}
	c.mu.Unlock()

	if err != nil {
		return err
	}
	c.connector.drop(c.guildID)
	return nil
}

func (c *fakeConn) Move(ctx context.Context, channelID snowflake.ID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.channelID = channelID
	return nil
}

func (c *fakeConn) Playing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing
}

func (c *fakeConn) ChannelID() (snowflake.ID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channelID, true
}

func (c *fakeConn) setPlaying(playing bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playing = playing
}

func (c *fakeConn) playedTitles() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.plays...)
}

func (c *fakeConn) stopCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stops
}

func (c *fakeConn) disconnectCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disconnects
}

type fakeConnector struct {
	mu         sync.Mutex
	conns      map[snowflake.ID]*fakeConn
	connects   int
	connectErr error
}

func newFakeConnector() *fakeConnector {
	return &fakeConnector{conns: make(map[snowflake.ID]*fakeConn)}
}

func (f *fakeConnector) Connection(guildID snowflake.ID) (playback.Connection, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	conn, ok := f.conns[guildID]
	if !ok {
		return nil, false
	}
	return conn, true
}

func (f *fakeConnector) Connect(ctx context.Context, guildID, channelID snowflake.ID) (playback.Connection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.connectErr != nil {
		return nil, f.connectErr
	}
	f.connects++
	if conn, ok := f.conns[guildID]; ok {
		_ = conn.Move(ctx, channelID)
		return conn, nil
	}
	conn := &fakeConn{connector: f, guildID: guildID, channelID: channelID}
	f.conns[guildID] = conn
	return conn, nil
}

// connected installs a live connection, as if the bot had already joined.
func (f *fakeConnector) connected(guildID, channelID snowflake.ID, playing bool) *fakeConn {
	f.mu.Lock()
	defer f.mu.Unlock()
	conn := &fakeConn{connector: f, guildID: guildID, channelID: channelID, playing: playing}
	f.conns[guildID] = conn
	return conn
}

func (f *fakeConnector) drop(guildID snowflake.ID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.conns, guildID)
}

type fakeRoster struct {
	mu      sync.Mutex
	counts  map[snowflake.ID]int
	unknown bool
}

func (r *fakeRoster) HumanCount(guildID, channelID snowflake.ID) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.unknown {
		return 0, false
	}
	return r.counts[channelID], true
}

func (r *fakeRoster) set(channelID snowflake.ID, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[channelID] = n
}

// fakeResolver resolves every query to a track titled after it, except
// queries starting with "missing" (no match) or "broken" (catalog failure).
type fakeResolver struct{}

func (fakeResolver) Name() string {
	return "fake"
}

func (fakeResolver) Match(query string) bool {
	return true
}

func (fakeResolver) Resolve(ctx context.Context, query string) (track.Track, error) {
	switch {
	case strings.HasPrefix(query, "missing"):
		return track.Track{}, errors.Wrapf(resolver.ErrNoMatches, "query %q", query)
	case strings.HasPrefix(query, "broken"):
		return track.Track{}, errors.New("lavalink: connection refused")
	}
	return track.Track{ID: "enc-" + query, Title: query, URI: query}, nil
}

// bannedFilter rejects tracks whose title starts with "banned".
type bannedFilter struct{}

func (bannedFilter) Name() string {
	return "banned"
}

func (bannedFilter) Description() string {
	return "rejects banned titles"
}

func (bannedFilter) ReturnCodes() []string {
	return []string{"banned_title"}
}

func (bannedFilter) ValidateConfig(settings map[string]any) error {
	return nil
}

func (bannedFilter) Check(ctx context.Context, t track.Track, queue []track.QueuedTrack) filter.Result {
	if strings.HasPrefix(t.Title, "banned") {
		return filter.Reject("banned_title")
	}
	return filter.Accept()
}
