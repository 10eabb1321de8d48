// Package session provides the per-guild playback session manager.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/prometheus/client_golang/prometheus"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/jukebot/internal/app/filter"
	"github.com/osa030/jukebot/internal/app/playback"
	"github.com/osa030/jukebot/internal/app/resolver"
	"github.com/osa030/jukebot/internal/app/session/registry"
	"github.com/osa030/jukebot/internal/infra/metrics"
)

// Config holds session manager configuration.
type Config struct {
	IdleTimeout       time.Duration // Delay before an idle session disconnects
	QueueDisplayLimit int           // Maximum number of tracks returned by List
}

// Deps are the collaborators of the session manager.
type Deps struct {
	Connector playback.Connector
	Roster    playback.Roster
	Resolver  resolver.Resolver
	Filters   *filter.Chain        // optional
	Registry  prometheus.Registerer // optional
}

// Manager coordinates guild sessions: commands, track-end transitions,
// voice membership changes and idle teardown.
type Manager struct {
	config Config

	// Components
	registry  *registry.GuildRegistry
	idle      *IdleScheduler
	connector playback.Connector
	roster    playback.Roster
	resolver  resolver.Resolver
	filters   *filter.Chain
	metrics   *metrics.Metrics

	// Background handlers
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// SessionStatus is the admin view of one guild session.
type SessionStatus struct {
	GuildID      snowflake.ID
	QueueSize    int
	IdleArmed    bool
	IdleDeadline time.Time
	State        playback.State
	ChannelID    *snowflake.ID
}

// NewManager creates a new session manager.
func NewManager(cfg Config, deps Deps) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	if cfg.QueueDisplayLimit <= 0 {
		cfg.QueueDisplayLimit = 20
	}
	filters := deps.Filters
	if filters == nil {
		filters = filter.NewChain()
	}
	reg := deps.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	guilds := registry.NewGuildRegistry()
	m := metrics.New(reg, guilds.Count)

	return &Manager{
		config:    cfg,
		registry:  guilds,
		idle:      NewIdleScheduler(ctx, cfg.IdleTimeout, deps.Connector, m),
		connector: deps.Connector,
		roster:    deps.Roster,
		resolver:  deps.Resolver,
		filters:   filters,
		metrics:   m,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// IdleTimeout returns the configured idle timeout.
func (m *Manager) IdleTimeout() time.Duration {
	return m.idle.Delay()
}

// Run consumes notifications until ctx is done or events is closed.
// Each event is handled in its own goroutine; a failing or panicking
// handler only affects that event.
func (m *Manager) Run(ctx context.Context, events <-chan playback.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			m.wg.Add(1)
			go m.dispatch(ctx, e)
		}
	}
}

func (m *Manager) dispatch(ctx context.Context, e playback.Event) {
	defer m.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			m.metrics.HandlerErrors.WithLabelValues(e.Type.String()).Inc()
			zlog.Error().Msgf("event handler panicked: event=%s guild_id=%s panic=%v", e.Type, e.GuildID, r)
		}
	}()

	var err error
	switch e.Type {
	case playback.EventTrackEnded:
		err = m.OnTrackEnd(ctx, e.GuildID, e.Reason)
	case playback.EventMembershipChanged:
		err = m.OnMembershipChange(ctx, e)
	default:
		zlog.Warn().Msgf("unknown event type: type=%d guild_id=%s", e.Type, e.GuildID)
		return
	}

	if err != nil {
		m.metrics.HandlerErrors.WithLabelValues(e.Type.String()).Inc()
		zlog.Error().Err(err).Msgf("event handler failed: event=%s guild_id=%s", e.Type, e.GuildID)
	}
}

// Wait blocks until in-flight event handlers return.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Sessions returns the status of every known guild session.
func (m *Manager) Sessions() []SessionStatus {
	all := m.registry.All()
	result := make([]SessionStatus, 0, len(all))
	for _, st := range all {
		snap := st.Snapshot()
		conn, ok := m.connector.Connection(snap.GuildID)
		status := SessionStatus{
			GuildID:      snap.GuildID,
			QueueSize:    len(snap.Queue),
			IdleArmed:    snap.IdleArmed,
			IdleDeadline: snap.IdleDeadline,
			State:        playback.StateOf(conn, ok),
		}
		if ok {
			if channelID, ok := conn.ChannelID(); ok {
				status.ChannelID = &channelID
			}
		}
		result = append(result, status)
	}
	return result
}

// Close cancels every armed idle action. No disconnects are issued.
func (m *Manager) Close() {
	m.cancel()
}
