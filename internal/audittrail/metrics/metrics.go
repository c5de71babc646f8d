package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Skip reasons for events that were submitted but not stored.
const (
	SkipDisabled = "disabled"
	SkipUnknown  = "unknown"
)

// Hook stages reported on failure.
const (
	StageCreate   = "create"
	StageFilter   = "filter"
	StageProvider = "provider_filter"
	StageBuild    = "build"
	StageDelete   = "delete"
)

// Metrics provides observability for the audit trail module.
type Metrics struct {
	EventsRecorded *prometheus.CounterVec
	EventsSkipped  *prometheus.CounterVec
	HookFailures   *prometheus.CounterVec
	EventsTrimmed  prometheus.Counter
	EventsDeleted  prometheus.Counter
	SearchDuration prometheus.Histogram
	TrimDuration   prometheus.Histogram
}

// New registers the audit trail metrics on the default registerer.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the audit trail metrics on reg. Tests pass a
// fresh registry so repeated construction does not collide.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		EventsRecorded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "audittrail_events_recorded_total",
			Help: "Total number of audit events persisted, by category",
		}, []string{"category"}),
		EventsSkipped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "audittrail_events_skipped_total",
			Help: "Total number of submitted audit events not persisted, by reason",
		}, []string{"reason"}),
		HookFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "audittrail_hook_failures_total",
			Help: "Total number of failed handler, provider filter or builder invocations, by stage",
		}, []string{"stage"}),
		EventsTrimmed: f.NewCounter(prometheus.CounterOpts{
			Name: "audittrail_events_trimmed_total",
			Help: "Total number of audit events removed by retention trimming",
		}),
		EventsDeleted: f.NewCounter(prometheus.CounterOpts{
			Name: "audittrail_events_deleted_total",
			Help: "Total number of audit events deleted, including trimmed events",
		}),
		SearchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "audittrail_search_duration_seconds",
			Help:    "Duration of audit trail searches",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		TrimDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "audittrail_trim_duration_seconds",
			Help:    "Duration of retention trims",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		}),
	}
}

func (m *Metrics) IncRecorded(category string) {
	m.EventsRecorded.WithLabelValues(category).Inc()
}

func (m *Metrics) IncSkipped(reason string) {
	m.EventsSkipped.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncHookFailure(stage string) {
	m.HookFailures.WithLabelValues(stage).Inc()
}

func (m *Metrics) IncDeleted() {
	m.EventsDeleted.Inc()
}

func (m *Metrics) AddTrimmed(n int) {
	m.EventsTrimmed.Add(float64(n))
}

// ObserveSearch records the duration of a search started at start.
func (m *Metrics) ObserveSearch(start time.Time) {
	m.SearchDuration.Observe(time.Since(start).Seconds())
}

// ObserveTrim records the duration of a trim started at start.
func (m *Metrics) ObserveTrim(start time.Time) {
	m.TrimDuration.Observe(time.Since(start).Seconds())
}
