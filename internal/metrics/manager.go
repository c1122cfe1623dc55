// Package metrics holds the Prometheus collectors shared by the logbook and
// the HTTP server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Manager struct {
	// counters
	CounterRequests          *prometheus.CounterVec
	CounterSessionsStarted   prometheus.Counter
	CounterSessionsEnded     *prometheus.CounterVec
	CounterSets              *prometheus.CounterVec
	CounterVolume            prometheus.Counter
	CounterRestTimerFinished prometheus.Counter

	// gauges
	GaugeActiveSession prometheus.Gauge

	// histograms
	HistogramRequestDuration *prometheus.HistogramVec
	HistogramSessionDuration prometheus.Histogram
}

// NewDiscardManager returns a Manager on a private registry that is never
// exported. Components use it when no Manager is configured.
func NewDiscardManager() *Manager {
	return NewManager("tinylifts", "discard", prometheus.NewRegistry())
}

// NewTestManager returns a Manager backed by a throwaway registry.
func NewTestManager() *Manager {
	m, _ := NewTestManagerAndRegistry()
	return m
}

func NewTestManagerAndRegistry() (*Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewManager("tinylifts", "test", reg), reg
}

func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	return &Manager{
		CounterRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "request",
			Help:      "The total number of incoming requests",
		}, []string{"method", "status"}),
		CounterSessionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sessions_started",
			Help:      "The total number of started sessions",
		}),
		CounterSessionsEnded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sessions_ended",
			Help:      "The total number of ended sessions by outcome",
		}, []string{"outcome"}),
		CounterSets: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sets_logged",
			Help:      "The total number of logged sets by rest intensity",
		}, []string{"intensity"}),
		CounterVolume: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "volume_kg",
			Help:      "Total weight x reps of logged sets",
		}),
		CounterRestTimerFinished: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "rest_timers_finished",
			Help:      "The total number of rest countdowns that ran to zero",
		}),
		GaugeActiveSession: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "active_session",
			Help:      "1 while a session is in progress",
		}),
		HistogramRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		HistogramSessionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "session_duration_minutes",
			Help:      "Length of completed sessions",
			Buckets:   []float64{15, 30, 45, 60, 75, 90, 120},
		}),
	}
}
