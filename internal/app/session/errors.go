package session

import (
	"github.com/cockroachdb/errors"

	"github.com/osa030/jukebot/internal/app/resolver"
	"github.com/osa030/jukebot/internal/app/session/state"
)

var (
	ErrResolution              = resolver.ErrNoMatches
	ErrIndexOutOfRange         = state.ErrIndexOutOfRange
	ErrNothingPlaying          = errors.New("nothing is playing")
	ErrNotConnected            = errors.New("not connected to a voice channel")
	ErrNotInVoice              = errors.New("requester is not in a voice channel")
	ErrTrackRejected           = errors.New("track rejected")
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")
)

// RejectedError carries the code of the filter that rejected a track.
type RejectedError struct {
	Code string
}

func (e *RejectedError) Error() string {
	return "track rejected: " + e.Code
}

func rejected(code string) error {
	return errors.Mark(&RejectedError{Code: code}, ErrTrackRejected)
}

// unavailable wraps a collaborator failure and marks it as CollaboratorUnavailable.
func unavailable(err error, msg string) error {
	return errors.Mark(errors.Wrap(err, msg), ErrCollaboratorUnavailable)
}

// RejectionCode returns the filter code of a rejection error.
func RejectionCode(err error) (string, bool) {
	var re *RejectedError
	if errors.As(err, &re) {
		return re.Code, true
	}
	return "", false
}

// ErrorKind classifies a command error into an outcome code used for
// user-facing messages and metrics labels.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTrackRejected):
		code, _ := RejectionCode(err)
		return code
	case errors.Is(err, ErrResolution):
		return "track_not_found"
	case errors.Is(err, ErrIndexOutOfRange):
		return "index_out_of_range"
	case errors.Is(err, ErrNothingPlaying):
		return "nothing_playing"
	case errors.Is(err, ErrNotConnected):
		return "not_connected"
	case errors.Is(err, ErrNotInVoice):
		return "not_in_voice"
	case errors.Is(err, ErrCollaboratorUnavailable):
		return "unavailable"
	default:
		return "unknown"
	}
}
