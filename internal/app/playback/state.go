// Package playback defines the contracts between the session core and the
// voice connection collaborator.
package playback

// State represents the externally observable playback state of a guild.
type State int

const (
	StateDisconnected State = iota // No voice connection in the guild
	StateIdle                      // Connected, nothing playing
	StatePlaying                   // Connected and a track is playing
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	default:
		return "unknown"
	}
}

// StateOf derives the state from a connection lookup.
func StateOf(conn Connection, ok bool) State {
	if !ok || conn == nil {
		return StateDisconnected
	}
	if conn.Playing() {
		return StatePlaying
	}
	return StateIdle
}
