// Package registry provides the process-wide guild session registry.
package registry

import (
	"sort"
	"sync"

	"github.com/disgoorg/snowflake/v2"

	"github.com/osa030/jukebot/internal/app/session/state"
)

// GuildRegistry maps guild IDs to session state with race-free lazy insertion.
// Entries are never removed.
type GuildRegistry struct {
	mu       sync.RWMutex
	sessions map[snowflake.ID]*state.State
}

// NewGuildRegistry creates an empty registry.
func NewGuildRegistry() *GuildRegistry {
	return &GuildRegistry{
		sessions: make(map[snowflake.ID]*state.State),
	}
}

// GetOrCreate returns the session of a guild, creating it on first access.
// Concurrent first access for the same guild yields the same session.
func (r *GuildRegistry) GetOrCreate(guildID snowflake.ID) *state.State {
	r.mu.RLock()
	s, ok := r.sessions[guildID]
	r.mu.RUnlock()
	if ok {
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Re-check under the write lock
	if s, ok := r.sessions[guildID]; ok {
		return s
	}
	s = state.New(guildID)
	r.sessions[guildID] = s
	return s
}

// Get returns the session of a guild without creating it.
func (r *GuildRegistry) Get(guildID snowflake.ID) (*state.State, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[guildID]
	return s, ok
}

// All returns all sessions ordered by guild ID.
func (r *GuildRegistry) All() []*state.State {
	r.mu.RLock()
	result := make([]*state.State, 0, len(r.sessions))
	for _, s := range r.sessions {
		result = append(result, s)
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].GuildID() < result[j].GuildID()
	})
	return result
}

// Count returns the number of known guilds.
func (r *GuildRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
