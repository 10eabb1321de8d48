// Package metrics provides the Prometheus collectors of the session core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "jukebot"

// Metrics holds the session core collectors.
type Metrics struct {
	Sessions           prometheus.GaugeFunc
	TracksEnqueued     prometheus.Counter
	TracksStarted      prometheus.Counter
	IdleArmed          prometheus.Counter
	IdleDisconnects    prometheus.Counter
	MembershipTeardown prometheus.Counter
	CommandErrors      *prometheus.CounterVec
	HandlerErrors      *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
// sessions reports the number of known guild sessions.
func New(reg prometheus.Registerer, sessions func() int) *Metrics {
	m := &Metrics{
		Sessions: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions",
			Help:      "Number of guild sessions created since start.",
		}, func() float64 { return float64(sessions()) }),
		TracksEnqueued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tracks_enqueued_total",
			Help:      "Tracks appended to a guild queue.",
		}),
		TracksStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tracks_started_total",
			Help:      "Tracks handed to the audio node for playback.",
		}),
		IdleArmed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "idle_armed_total",
			Help:      "Idle disconnect actions armed.",
		}),
		IdleDisconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "idle_disconnects_total",
			Help:      "Disconnects issued by an idle action.",
		}),
		MembershipTeardown: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "membership_teardowns_total",
			Help:      "Sessions torn down because the voice channel had no humans left.",
		}),
		CommandErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "command_errors_total",
			Help:      "Command failures by command and kind.",
		}, []string{"command", "kind"}),
		HandlerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handler_errors_total",
			Help:      "Background handler failures by event type.",
		}, []string{"event"}),
	}

	reg.MustRegister(
		m.Sessions,
		m.TracksEnqueued,
		m.TracksStarted,
		m.IdleArmed,
		m.IdleDisconnects,
		m.MembershipTeardown,
		m.CommandErrors,
		m.HandlerErrors,
	)
	return m
}
