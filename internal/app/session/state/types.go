// Package state provides the per-guild session state.
package state

import (
	"context"
	"time"

	"github.com/disgoorg/snowflake/v2"

	"github.com/osa030/jukebot/internal/domain/track"
)

// IdleHandle is the handle of one armed idle disconnect action.
// Cancelling a handle is idempotent and safe after the action fired.
type IdleHandle struct {
	ID       string
	ArmedAt  time.Time
	Deadline time.Time

	ctx    context.Context
	cancel context.CancelFunc
}

// NewIdleHandle creates a handle whose cancellation token derives from parent.
func NewIdleHandle(parent context.Context, id string, delay time.Duration) *IdleHandle {
	ctx, cancel := context.WithCancel(parent)
	now := time.Now()
	return &IdleHandle{
		ID:       id,
		ArmedAt:  now,
		Deadline: now.Add(delay),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Done returns a channel closed when the handle is cancelled.
func (h *IdleHandle) Done() <-chan struct{} {
	return h.ctx.Done()
}

// Cancel cancels the action.
func (h *IdleHandle) Cancel() {
	h.cancel()
}

// Cancelled reports whether Cancel was called (or the parent was cancelled).
func (h *IdleHandle) Cancelled() bool {
	return h.ctx.Err() != nil
}

// Snapshot is a point-in-time copy of a guild session.
type Snapshot struct {
	GuildID      snowflake.ID
	Queue        []track.QueuedTrack
	IdleArmed    bool
	IdleDeadline time.Time
}
