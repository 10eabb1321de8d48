package state

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/disgoorg/snowflake/v2"

	"github.com/osa030/jukebot/internal/domain/track"
)

// ErrIndexOutOfRange is returned when a 1-based queue index is invalid.
var ErrIndexOutOfRange = errors.New("index out of range")

// State is the mutable session record of one guild.
//
// The gate guards queue and idle. Methods with the Locked suffix must be
// called with the gate held; the gate is held across collaborator calls so
// that a whole command or event is one critical section.
type State struct {
	gate sync.Mutex

	guildID snowflake.ID
	queue   []track.QueuedTrack
	idle    *IdleHandle
}

// New creates an empty session for a guild.
func New(guildID snowflake.ID) *State {
	return &State{
		guildID: guildID,
		queue:   make([]track.QueuedTrack, 0),
	}
}

// GuildID returns the guild this session belongs to.
func (s *State) GuildID() snowflake.ID {
	return s.guildID
}

// Lock acquires the gate.
func (s *State) Lock() {
	s.gate.Lock()
}

// Unlock releases the gate.
func (s *State) Unlock() {
	s.gate.Unlock()
}

// EnqueueLocked appends a track and returns its 1-based position.
func (s *State) EnqueueLocked(qt track.QueuedTrack) int {
	s.queue = append(s.queue, qt)
	return len(s.queue)
}

// PopFrontLocked removes and returns the head of the queue.
func (s *State) PopFrontLocked() (track.QueuedTrack, bool) {
	if len(s.queue) == 0 {
		return track.QueuedTrack{}, false
	}
	qt := s.queue[0]
	s.queue[0] = track.QueuedTrack{}
	s.queue = s.queue[1:]
	return qt, true
}

// RemoveLocked removes the track at a 1-based index, keeping the order of
// the remaining tracks.
func (s *State) RemoveLocked(index int) (track.QueuedTrack, error) {
	if index < 1 || index > len(s.queue) {
		return track.QueuedTrack{}, errors.Wrapf(ErrIndexOutOfRange, "index %d, queue length %d", index, len(s.queue))
	}
	removed := s.queue[index-1]
	next := make([]track.QueuedTrack, 0, len(s.queue)-1)
	next = append(next, s.queue[:index-1]...)
	next = append(next, s.queue[index:]...)
	s.queue = next
	return removed, nil
}

// ClearLocked empties the queue and returns the removed tracks.
func (s *State) ClearLocked() []track.QueuedTrack {
	removed := s.queue
	s.queue = make([]track.QueuedTrack, 0)
	return removed
}

// LenLocked returns the queue length.
func (s *State) LenLocked() int {
	return len(s.queue)
}

// TracksLocked returns a copy of the queue.
func (s *State) TracksLocked() []track.QueuedTrack {
	result := make([]track.QueuedTrack, len(s.queue))
	copy(result, s.queue)
	return result
}

// IdleLocked returns the armed idle handle, or nil.
func (s *State) IdleLocked() *IdleHandle {
	return s.idle
}

// SetIdleLocked replaces the idle handle. It does not cancel the previous one.
func (s *State) SetIdleLocked(h *IdleHandle) {
	s.idle = h
}

// Snapshot returns a point-in-time copy of the session.
func (s *State) Snapshot() Snapshot {
	s.gate.Lock()
	defer s.gate.Unlock()

	snap := Snapshot{
		GuildID: s.guildID,
		Queue:   s.TracksLocked(),
	}
	if s.idle != nil && !s.idle.Cancelled() {
		snap.IdleArmed = true
		snap.IdleDeadline = s.idle.Deadline
	}
	return snap
}
