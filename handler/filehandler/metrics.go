package filehandler

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "nlogsink"

// Values of the mode label on Metrics.Opens.
const (
	OpenModeCreate = "create"
	OpenModeReopen = "reopen"
)

// Metrics holds the file driver's Prometheus collectors. One Metrics may
// be shared by several handlers.
type Metrics struct {
	// Opens counts files bound to a serializer, by mode.
	Opens *prometheus.CounterVec
	// Rolls counts size or interval rotations.
	Rolls prometheus.Counter
	// EventsWritten counts entries accepted by a serializer.
	EventsWritten prometheus.Counter
	// HookFailures counts failed lifecycle hooks and file syncs, by hook.
	HookFailures *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg when it
// is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Opens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "file",
			Name:      "opens_total",
			Help:      "Files bound to a serializer, by open mode.",
		}, []string{"mode"}),
		Rolls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "file",
			Name:      "rolls_total",
			Help:      "Files finished and moved aside by rotation.",
		}),
		EventsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "events_written_total",
			Help:      "Entries accepted by a file serializer.",
		}),
		HookFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "hook_failures_total",
			Help:      "Serializer hooks or file syncs that failed, by hook.",
		}, []string{"hook"}),
	}
	if reg != nil {
		reg.MustRegister(m.Opens, m.Rolls, m.EventsWritten, m.HookFailures)
	}
	return m
}
