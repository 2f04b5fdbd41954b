package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var sessionCollectors struct {
	buildDuration   *prometheus.HistogramVec
	restoreDuration *prometheus.HistogramVec
	buildBytes      prometheus.Counter
	retentionRuns   *prometheus.CounterVec
}

func registerSessionCollectors(reg *prometheus.Registry) {
	buckets := []float64{1, 5, 15, 30, 60, 300, 900, 3600, 14400}
	sessionCollectors.buildDuration = promauto.With(reg).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "safedrive_session_build_duration_seconds",
			Help:    "Duration of a sync session build, by folder.",
			Buckets: buckets,
		}, []string{"folder"})
	sessionCollectors.restoreDuration = promauto.With(reg).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "safedrive_session_restore_duration_seconds",
			Help:    "Duration of a session restore, by folder.",
			Buckets: buckets,
		}, []string{"folder"})
	sessionCollectors.buildBytes = newCounter(reg, "safedrive_session_build_bytes_total",
		"Total plaintext bytes walked while building sessions.")
	sessionCollectors.retentionRuns = newCounterVec(reg, "safedrive_retention_deleted_sessions_total",
		"Total number of sessions deleted by a retention pass, by folder.", "folder")
}

// ObserveSessionBuild records how long building a session for folder took.
func ObserveSessionBuild(folder string, duration time.Duration, bytes int64) {
	if !IsEnabled() {
		return
	}
	sessionCollectors.buildDuration.WithLabelValues(folder).Observe(duration.Seconds())
	sessionCollectors.buildBytes.Add(float64(bytes))
}

// ObserveSessionRestore records how long restoring a session for folder took.
func ObserveSessionRestore(folder string, duration time.Duration) {
	if !IsEnabled() {
		return
	}
	sessionCollectors.restoreDuration.WithLabelValues(folder).Observe(duration.Seconds())
}

// RecordRetentionDeletions records a retention pass deleting count sessions
// from folder.
func RecordRetentionDeletions(folder string, count int) {
	if !IsEnabled() || count == 0 {
		return
	}
	sessionCollectors.retentionRuns.WithLabelValues(folder).Add(float64(count))
}
