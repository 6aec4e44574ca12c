package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the attendance module. Tracks entry
// outcomes and the latency of the two write paths.
type Metrics struct {
	CheckIns       *prometheus.CounterVec
	CheckOuts      prometheus.Counter
	Denials        *prometheus.CounterVec
	Conflicts      prometheus.Counter
	SessionMinutes prometheus.Histogram
	ManualDuration prometheus.Histogram
	PunchDuration  prometheus.Histogram
}

// New creates a Metrics instance with all attendance metrics registered.
func New() *Metrics {
	return &Metrics{
		CheckIns: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "gymgate_attendance_checkins_total",
			Help: "Total sessions opened, by entry method",
		}, []string{"entry_method"}),
		CheckOuts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gymgate_attendance_checkouts_total",
			Help: "Total sessions closed",
		}),
		Denials: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "gymgate_attendance_denials_total",
			Help: "Total denied entry attempts, by reason code",
		}, []string{"reason"}),
		Conflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gymgate_attendance_conflicts_total",
			Help: "Total ledger conflicts surfaced after the single retry",
		}),
		SessionMinutes: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "gymgate_attendance_session_minutes",
			Help:    "Closed session durations in minutes",
			Buckets: []float64{15, 30, 45, 60, 90, 120, 180, 240},
		}),
		ManualDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "gymgate_attendance_manual_checkin_duration_seconds",
			Help:    "Duration of manual check-in operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		PunchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "gymgate_attendance_punch_duration_seconds",
			Help:    "Duration of biometric punch operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncrementCheckIn records an opened session for an entry method.
func (m *Metrics) IncrementCheckIn(entryMethod string) {
	m.CheckIns.WithLabelValues(entryMethod).Inc()
}

// IncrementCheckOut records a closed session and its duration.
func (m *Metrics) IncrementCheckOut(durationMinutes int64) {
	m.CheckOuts.Inc()
	m.SessionMinutes.Observe(float64(durationMinutes))
}

// IncrementDenial records a denied entry attempt.
func (m *Metrics) IncrementDenial(reason string) {
	m.Denials.WithLabelValues(reason).Inc()
}

// IncrementConflict records a conflict surfaced to the caller.
func (m *Metrics) IncrementConflict() {
	m.Conflicts.Inc()
}

// ObserveManualCheckIn records the duration of a manual check-in.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveManualCheckIn(start time.Time) {
	m.ManualDuration.Observe(time.Since(start).Seconds())
}

// ObservePunch records the duration of a biometric punch.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObservePunch(start time.Time) {
	m.PunchDuration.Observe(time.Since(start).Seconds())
}
