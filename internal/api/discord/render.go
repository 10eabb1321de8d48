package discord

import (
	"fmt"
	"strings"
	"time"

	"github.com/osa030/jukebot/internal/app/session"
	"github.com/osa030/jukebot/internal/domain/track"
)

// Reply is a rendered command answer.
type Reply struct {
	Content   string
	Ephemeral bool
}

// MessageSource returns the user-facing message of an outcome code.
type MessageSource interface {
	GetMessage(code string) string
}

func renderEnqueue(r *session.EnqueueResult) Reply {
	if r.Started {
		return Reply{Content: fmt.Sprintf("▶️ Now playing: **%s**", r.Track.DisplayTitle())}
	}
	return Reply{Content: fmt.Sprintf("✅ Queued: **%s** (position %d)", r.Track.DisplayTitle(), r.Position)}
}

func renderListing(l session.Listing) Reply {
	if l.Total == 0 {
		return Reply{Content: "The queue is empty."}
	}

	var sb strings.Builder
	sb.WriteString("🎶 **Queue**")
	for i, qt := range l.Tracks {
		fmt.Fprintf(&sb, "\n%d. %s", i+1, qt.Track.DisplayTitle())
		if qt.Track.Duration > 0 {
			fmt.Fprintf(&sb, " `%s`", formatDuration(qt.Track.Duration))
		}
	}
	if l.Overflow() > 0 {
		fmt.Fprintf(&sb, "\n... (%d tracks in total)", l.Total)
	}
	return Reply{Content: sb.String()}
}

func renderRemoved(qt track.QueuedTrack) Reply {
	return Reply{Content: fmt.Sprintf("🗑️ Removed: **%s**", qt.Track.DisplayTitle())}
}

func renderSkipped() Reply {
	return Reply{Content: "⏭️ Skipped."}
}

func renderStopped(r *session.StopResult) Reply {
	return Reply{Content: fmt.Sprintf(
		"⏹️ Stopped and cleared the queue. Leaving in %d seconds unless something is played.",
		int(r.IdleTimeout/time.Second))}
}

func renderLeft() Reply {
	return Reply{Content: "👋 Left the voice channel."}
}

// renderError answers a command error ephemerally with the configured message.
func renderError(messages MessageSource, err error) Reply {
	return renderCode(messages, session.ErrorKind(err))
}

func renderCode(messages MessageSource, code string) Reply {
	return Reply{Content: "⚠️ " + messages.GetMessage(code), Ephemeral: true}
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
