package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var cacheCollectors struct {
	writeOps   prometheus.Counter
	writeBytes prometheus.Histogram
	readOps    *prometheus.CounterVec
	readDur    prometheus.Histogram
	sizeBytes  prometheus.Gauge
	evictions  *prometheus.CounterVec
}

func registerCacheCollectors(reg *prometheus.Registry) {
	cacheCollectors.writeOps = newCounter(reg, "safedrive_cache_write_total",
		"Total number of block cache writes.")
	cacheCollectors.writeBytes = newHistogram(reg, "safedrive_cache_write_bytes",
		"Distribution of bytes written to the block cache.",
		prometheus.ExponentialBuckets(4096, 4, 8))
	cacheCollectors.readOps = newCounterVec(reg, "safedrive_cache_read_total",
		"Total number of block cache reads, by hit or miss.", "result")
	cacheCollectors.readDur = newHistogram(reg, "safedrive_cache_read_duration_seconds",
		"Duration of block cache reads.", prometheus.DefBuckets)
	cacheCollectors.sizeBytes = newGauge(reg, "safedrive_cache_size_bytes",
		"Current on-disk size of the block cache.")
	cacheCollectors.evictions = newCounterVec(reg, "safedrive_cache_evictions_total",
		"Total number of block cache evictions, by reason.", "reason")
}

// RecordCacheWrite records a block written to the local cache. bytes is the
// wrapped block size, not the plaintext size.
func RecordCacheWrite(bytes int64) {
	if !IsEnabled() {
		return
	}
	cacheCollectors.writeOps.Inc()
	cacheCollectors.writeBytes.Observe(float64(bytes))
}

// RecordCacheRead records a cache lookup, hit or miss, and how long it took.
func RecordCacheRead(hit bool, duration time.Duration) {
	if !IsEnabled() {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheCollectors.readOps.WithLabelValues(result).Inc()
	cacheCollectors.readDur.Observe(duration.Seconds())
}

// RecordCacheSize sets the cache's current on-disk size.
func RecordCacheSize(bytes int64) {
	if !IsEnabled() {
		return
	}
	cacheCollectors.sizeBytes.Set(float64(bytes))
}

// RecordCacheEviction records a cache entry evicted for reason (e.g.
// "size_limit").
func RecordCacheEviction(reason string) {
	if !IsEnabled() {
		return
	}
	cacheCollectors.evictions.WithLabelValues(reason).Inc()
}
