package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Manager struct {
	// counters
	CounterRequests           *prometheus.CounterVec
	CounterSessionTransitions *prometheus.CounterVec
	CounterSetsCompleted      prometheus.Counter
	CounterRestEnds           *prometheus.CounterVec
	CounterSnapshotSaves      prometheus.Counter
	CounterSnapshotFailures   *prometheus.CounterVec
	CounterLiveStatusOps      *prometheus.CounterVec
	CounterLiveStatusFailures *prometheus.CounterVec

	// gauges
	GaugeActiveSessions prometheus.Gauge

	// histograms
	HistRequestDuration prometheus.Histogram
}

func NewTestManager() *Manager {
	return NewManager("liftlog", "test", prometheus.NewRegistry())
}

func NewTestManagerAndRegistry() (*Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewManager("liftlog", "test", reg), reg
}

// SetupPrometheus returns a registry with the Go runtime and process
// collectors already registered, plus any extra collectors (e.g. the database
// pool).
func SetupPrometheus(extra ...prometheus.Collector) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewBuildInfoCollector(),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	reg.MustRegister(extra...)
	return reg
}

func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	counterRequests := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "request",
		Help:      "The total number of incoming requests",
	}, []string{"method", "status"})
	counterSessionTransitions := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "session_transitions",
		Help:      "Session lifecycle transitions by kind",
	}, []string{"kind"})
	counterSetsCompleted := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "sets_completed",
		Help:      "The total number of sets marked completed",
	})
	counterRestEnds := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "rest_ends",
		Help:      "Rest periods that ended, by reason",
	}, []string{"reason"})
	counterSnapshotSaves := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "snapshot_saves",
		Help:      "The total number of resume snapshots written",
	})
	counterSnapshotFailures := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "snapshot_failures",
		Help:      "Resume snapshot store failures by operation",
	}, []string{"op"})
	counterLiveStatusOps := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "live_status_ops",
		Help:      "Live status surface calls by operation",
	}, []string{"op"})
	counterLiveStatusFailures := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "live_status_failures",
		Help:      "Live status surface failures by operation",
	}, []string{"op"})

	gaugeActiveSessions := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "active_sessions",
		Help:      "Whether a workout session is currently running",
	})

	histReqDuration := factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Buckets: []float64{
				0.00001, 0.0001, 0.001, 0.005, 0.01,
				0.05, 0.1, 0.5, 1, 5,
			},
			Name: "request_duration_seconds",
			Help: "Total duration of requests in seconds",
		},
	)

	return &Manager{
		CounterRequests:           counterRequests,
		CounterSessionTransitions: counterSessionTransitions,
		CounterSetsCompleted:      counterSetsCompleted,
		CounterRestEnds:           counterRestEnds,
		CounterSnapshotSaves:      counterSnapshotSaves,
		CounterSnapshotFailures:   counterSnapshotFailures,
		CounterLiveStatusOps:      counterLiveStatusOps,
		CounterLiveStatusFailures: counterLiveStatusFailures,
		GaugeActiveSessions:       gaugeActiveSessions,
		HistRequestDuration:       histReqDuration,
	}
}
